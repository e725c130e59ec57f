// Command pvadmin is the operator CLI for the vault storage engine:
// listing, inspecting, deleting, migrating and restoring player vaults
// without a running game server.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultworks/playervaults/internal/config"
	"github.com/vaultworks/playervaults/pkg/vault"
)

var (
	configPath string

	cfg    *config.Config
	store  vault.Storage
	logger = log.New(os.Stderr, "pvadmin: ", log.LstdFlags)
)

var rootCmd = &cobra.Command{
	Use:   "pvadmin",
	Short: "pvadmin administers player vault storage",
	Long: `pvadmin operates directly on the vault storage backend described
by the configuration file. It is meant to be run while the game server
is stopped: the engine assumes a single process owns the data root.`,
	SilenceUsage: true,
	// PersistentPreRunE loads the configuration and opens the backend
	// for every subcommand.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		store, err = cfg.NewStorage(logger)
		if err != nil {
			return fmt.Errorf("open storage backend: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "Path to configuration file")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(existsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(deleteAllCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(restoreCmd)
}
