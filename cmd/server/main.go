package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/uniedit/ghiblify/cmd/server/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ghiblify",
		Short: "Ghiblify image stylization server",
		Long:  `Ghiblify accepts uploaded images, restyles them through Replicate and tracks per-user quota and history.`,
		// Running without a subcommand starts the server.
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunServer(cmd.Context())
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewStoreCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
