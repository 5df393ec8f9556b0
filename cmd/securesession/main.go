// Command securesession is a demonstration CLI for the secure session
// handshake and transport core: it generates long-term signing
// identities and drives a minimal line-oriented chat over an
// established session.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "securesession",
	Short: "Secure session handshake and transport core CLI",
	Long: `securesession drives the mutually-authenticated ECDH handshake and
encrypted record layer implemented by this module.

It supports:
  - Long-term P-256 signing identity generation
  - Running as a handshake responder (server) over TCP
  - Running as a handshake initiator (client) against a responder over TCP`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "securesession: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}
