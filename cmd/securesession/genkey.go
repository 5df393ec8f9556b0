package main

import (
	"encoding/pem"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultline/securesession/pkg/primitives"
)

var (
	genkeyOutDir string
	genkeyName   string
)

var genkeyCmd = &cobra.Command{
	Use:   "genkey",
	Short: "Generate a long-term P-256 signing identity",
	Long: `genkey generates a fresh P-256 ECDSA signing keypair and writes it as
two PEM files: <name>.key (the raw 32-byte private scalar) and
<name>.pub (the raw 65-byte uncompressed public point).`,
	RunE: runGenkey,
}

func init() {
	rootCmd.AddCommand(genkeyCmd)

	genkeyCmd.Flags().StringVarP(&genkeyOutDir, "out", "o", ".", "output directory")
	genkeyCmd.Flags().StringVarP(&genkeyName, "name", "n", "identity", "base filename for the generated keypair")
}

func runGenkey(cmd *cobra.Command, args []string) error {
	kp, err := primitives.GenerateSigningKeyPair()
	if err != nil {
		return fmt.Errorf("generate signing keypair: %w", err)
	}

	if err := os.MkdirAll(genkeyOutDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	privPath := genkeyOutDir + "/" + genkeyName + ".key"
	pubPath := genkeyOutDir + "/" + genkeyName + ".pub"

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "SECURESESSION SIGNING PRIVATE KEY",
		Bytes: primitives.SigningPrivateKeyBytes(kp.Private),
	})
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "SECURESESSION SIGNING PUBLIC KEY",
		Bytes: primitives.SigningPublicKeyBytes(kp.Public),
	})

	if err := os.WriteFile(privPath, privPEM, 0600); err != nil {
		return fmt.Errorf("write %s: %w", privPath, err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0644); err != nil {
		return fmt.Errorf("write %s: %w", pubPath, err)
	}

	fmt.Printf("wrote %s and %s\n", privPath, pubPath)
	return nil
}
