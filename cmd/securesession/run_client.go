package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultline/securesession/internal/config"
	"github.com/vaultline/securesession/internal/logging"
	"github.com/vaultline/securesession/pkg/primitives"
	"github.com/vaultline/securesession/pkg/session"
	"github.com/vaultline/securesession/pkg/transport/tcp"
)

var (
	clientConfigPath string
	clientPeerID     string
	clientPeerKey    string
)

var runClientCmd = &cobra.Command{
	Use:   "run-client",
	Short: "Dial a responder and send lines from stdin",
	Long: `run-client connects to a run-server instance, completes the
handshake as the initiator, then sends each line read from stdin as
an application record and prints the echoed reply.`,
	RunE: runClient,
}

func init() {
	rootCmd.AddCommand(runClientCmd)

	runClientCmd.Flags().StringVarP(&clientConfigPath, "config", "c", "", "path to a YAML config file (required)")
	runClientCmd.Flags().StringVar(&clientPeerID, "peer-id", "", "identity of the server to connect to")
	runClientCmd.Flags().StringVar(&clientPeerKey, "peer-key", "", "path to the server's PEM-encoded signing public key")
	runClientCmd.MarkFlagRequired("config")
	runClientCmd.MarkFlagRequired("peer-id")
	runClientCmd.MarkFlagRequired("peer-key")
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(clientConfigPath)
	if err != nil {
		return err
	}
	if cfg.Transport.Kind != "tcp" {
		return fmt.Errorf("run-client: transport.kind %q not wired into this command; use tcp", cfg.Transport.Kind)
	}

	signPriv, err := loadSigningPrivateKey(cfg.Identity.SigningKeyPath)
	if err != nil {
		return err
	}
	peerKey, err := loadSigningPublicKey(clientPeerKey)
	if err != nil {
		return err
	}

	reg, closeReg, err := buildRegistry(cfg.Registry)
	if err != nil {
		return err
	}
	defer closeReg()
	if err := registerPeer(reg, []byte(clientPeerID), peerKey); err != nil {
		return fmt.Errorf("register peer: %w", err)
	}

	log, closeLog, err := newLogger("securesession-client", cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	t, err := tcp.Dial(cfg.Transport.DialAddr, tcp.DefaultConfig())
	if err != nil {
		return err
	}
	defer t.Close()

	sess, err := session.New(primitives.Default{}, []byte(cfg.Identity.ID), signPriv, callbacksFor(t, reg, log))
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Connect(); err != nil {
		return err
	}
	if err := driveHandshake(sess); err != nil {
		return err
	}
	log.Info("handshake complete")
	fmt.Println("type a line and press enter")

	scanner := bufio.NewScanner(os.Stdin)
	buf := make([]byte, 4096)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := sess.Send([]byte(line)); err != nil {
			return err
		}
		n, err := sess.Receive(buf)
		if err != nil {
			return err
		}
		fmt.Println(string(buf[:n]))
	}
	return scanner.Err()
}
