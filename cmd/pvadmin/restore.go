package main

import (
	"fmt"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vaultworks/playervaults/internal/config"
	"github.com/vaultworks/playervaults/pkg/backup"
	"github.com/vaultworks/playervaults/pkg/vault"
)

var restorePromptPassphrase bool

func init() {
	restoreCmd.Flags().BoolVar(&restorePromptPassphrase, "prompt-passphrase", false, "Prompt for the backup passphrase instead of reading it from the configuration")
}

var restoreCmd = &cobra.Command{
	Use:   "restore <holder>",
	Short: "Restore a holder's file from the pre-overwrite backup",
	Long: `Restore the most recent rotated backup of a holder's vault file into
the flat-file data root, replacing the live file. Only the flat-file
backend keeps rotated backups.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Backend != config.BackendFile {
			return fmt.Errorf("restore requires the flat-file backend (configured: %s)", cfg.Storage.Backend)
		}
		holder := vault.NormalizeHolder(args[0])

		passphrase := []byte(cfg.Storage.File.BackupPassphrase)
		if restorePromptPassphrase {
			fmt.Print("Backup passphrase: ")
			entered, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("read passphrase: %w", err)
			}
			passphrase = entered
		}

		root := filepath.Clean(cfg.Storage.File.Root)
		dir := cfg.Storage.File.BackupsDir
		if dir == "" {
			dir = filepath.Join(filepath.Dir(root), "backups")
		}
		rot := &backup.Rotator{Dir: dir, Passphrase: passphrase}

		name := holder + ".yml"
		if err := rot.Restore(name, filepath.Join(root, name)); err != nil {
			return err
		}
		fmt.Printf("restored %s from backup\n", name)
		return nil
	},
}
