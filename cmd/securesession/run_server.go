package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/vaultline/securesession/internal/config"
	"github.com/vaultline/securesession/internal/logging"
	"github.com/vaultline/securesession/pkg/identity"
	"github.com/vaultline/securesession/pkg/primitives"
	"github.com/vaultline/securesession/pkg/session"
	"github.com/vaultline/securesession/pkg/transport/tcp"
)

var (
	serverConfigPath string
	serverPeerID     string
	serverPeerKey    string
)

var runServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Accept one handshake and echo application records",
	Long: `run-server listens for a single incoming connection, acts as the
handshake responder, and echoes every application record it receives
back to the sender prefixed with "echo: ".

Only the TCP transport is wired into this demo command; the
WebSocket and QUIC transports are library packages meant to be
embedded the same way (see pkg/transport/websocket and
pkg/transport/quic).`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runServerCmd)

	runServerCmd.Flags().StringVarP(&serverConfigPath, "config", "c", "", "path to a YAML config file (required)")
	runServerCmd.Flags().StringVar(&serverPeerID, "peer-id", "", "identity of the single peer allowed to connect")
	runServerCmd.Flags().StringVar(&serverPeerKey, "peer-key", "", "path to that peer's PEM-encoded signing public key")
	runServerCmd.MarkFlagRequired("config")
	runServerCmd.MarkFlagRequired("peer-id")
	runServerCmd.MarkFlagRequired("peer-key")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serverConfigPath)
	if err != nil {
		return err
	}
	if cfg.Transport.Kind != "tcp" {
		return fmt.Errorf("run-server: transport.kind %q not wired into this command; use tcp", cfg.Transport.Kind)
	}

	signPriv, err := loadSigningPrivateKey(cfg.Identity.SigningKeyPath)
	if err != nil {
		return err
	}
	peerKey, err := loadSigningPublicKey(serverPeerKey)
	if err != nil {
		return err
	}

	reg, closeReg, err := buildRegistry(cfg.Registry)
	if err != nil {
		return err
	}
	defer closeReg()
	if err := registerPeer(reg, []byte(serverPeerID), peerKey); err != nil {
		return fmt.Errorf("register peer: %w", err)
	}

	log, closeLog, err := newLogger("securesession-server", cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	ln, err := tcp.Listen(cfg.Transport.ListenAddr)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Info("listening", logging.Fields{"addr": cfg.Transport.ListenAddr})

	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	return serveConn(conn, cfg, signPriv, reg, log)
}

func serveConn(conn net.Conn, cfg *config.Config, signPriv []byte, reg identity.Registry, log *logging.Logger) error {
	t := tcp.New(conn, tcp.DefaultConfig())
	defer t.Close()

	sess, err := session.New(primitives.Default{}, []byte(cfg.Identity.ID), signPriv, callbacksFor(t, reg, log))
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := driveHandshake(sess); err != nil {
		return err
	}
	log.Info("handshake complete, echoing records")

	buf := make([]byte, 4096)
	for {
		n, err := sess.Receive(buf)
		if err != nil {
			return err
		}
		msg := string(buf[:n])
		log.Info("received record", logging.Fields{"message": msg})
		if err := sess.Send([]byte("echo: " + msg)); err != nil {
			return err
		}
	}
}
