package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultworks/playervaults/pkg/convert"
)

var convertDryRun bool

func init() {
	convertCmd.Flags().BoolVar(&convertDryRun, "dry-run", false, "Report what would be migrated without writing")
}

var convertCmd = &cobra.Command{
	Use:   "convert <source-dir>",
	Short: "Migrate a legacy vault directory into the configured backend",
	Long: `Migrate legacy name-keyed vault files into the configured storage
backend. Display names are resolved to account ids through the uuids.yml
index next to the legacy files; unresolvable or unreadable files are
skipped and left in place.

Run this before first starting the server on the new storage layout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		resolve, err := convert.ResolverFromIndex(source)
		if err != nil {
			return err
		}
		conv := &convert.Converter{
			Source:  source,
			Resolve: resolve,
			DryRun:  convertDryRun,
			Logger:  logger,
		}
		res, err := conv.Run(store)
		if err != nil {
			return err
		}
		action := "migrated"
		if convertDryRun {
			action = "would migrate"
		}
		fmt.Printf("%s %d vault(s) across %d owner file(s), %d skipped\n", action, res.Vaults, res.Owners, res.Skipped)
		return nil
	},
}
