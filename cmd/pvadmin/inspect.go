package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vaultworks/playervaults/pkg/vault"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <holder> <number>",
	Short: "Print a vault's contents as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder := vault.NormalizeHolder(args[0])
		number, err := strconv.Atoi(args[1])
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid vault number %q", args[1])
		}

		rec, err := store.Load(holder, number, -1)
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Printf("no vault %d for %s\n", number, holder)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Holder   string              `json:"holder"`
			Number   int                 `json:"number"`
			Size     int                 `json:"size"`
			Slots    []*vault.ItemRecord `json:"slots"`
			Overflow []*vault.ItemRecord `json:"overflow,omitempty"`
		}{holder, number, rec.Size, rec.Slots, rec.Overflow})
	},
}
