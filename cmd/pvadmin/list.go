package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vaultworks/playervaults/pkg/vault"
)

var listCmd = &cobra.Command{
	Use:   "list <holder>",
	Short: "List a holder's vault numbers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder := vault.NormalizeHolder(args[0])
		numbers := store.Numbers(holder)
		if len(numbers) == 0 {
			fmt.Printf("no vaults for %s\n", holder)
			return nil
		}
		sorted := make([]int, 0, len(numbers))
		for n := range numbers {
			sorted = append(sorted, n)
		}
		sort.Ints(sorted)
		for _, n := range sorted {
			fmt.Printf("vault%d\n", n)
		}
		return nil
	},
}
