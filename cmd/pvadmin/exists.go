package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vaultworks/playervaults/pkg/vault"
)

var existsCmd = &cobra.Command{
	Use:   "exists <holder> <number>",
	Short: "Report whether a vault has ever been saved",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder := vault.NormalizeHolder(args[0])
		number, err := strconv.Atoi(args[1])
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid vault number %q", args[1])
		}
		if store.Exists(holder, number) {
			fmt.Printf("vault %d for %s exists\n", number, holder)
			return nil
		}
		return fmt.Errorf("no vault %d for %s", number, holder)
	},
}
