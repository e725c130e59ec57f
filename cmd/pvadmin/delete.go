package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaultworks/playervaults/pkg/vault"
)

var (
	deleteForce    bool
	deleteAllForce bool
)

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
	deleteAllCmd.Flags().BoolVarP(&deleteAllForce, "force", "f", false, "Skip confirmation prompt")
}

var deleteCmd = &cobra.Command{
	Use:   "delete <holder> <number>",
	Short: "Delete one vault",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder := vault.NormalizeHolder(args[0])
		number, err := strconv.Atoi(args[1])
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid vault number %q", args[1])
		}
		if !deleteForce && !confirm(fmt.Sprintf("Delete vault %d of %s?", number, holder)) {
			fmt.Println("aborted")
			return nil
		}
		if err := store.Delete(holder, number); err != nil {
			return err
		}
		fmt.Printf("deleted vault %d for %s\n", number, holder)
		return nil
	},
}

var deleteAllCmd = &cobra.Command{
	Use:   "delete-all <holder>",
	Short: "Delete every vault a holder owns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		holder := vault.NormalizeHolder(args[0])
		if !deleteAllForce && !confirm(fmt.Sprintf("Delete ALL vaults of %s?", holder)) {
			fmt.Println("aborted")
			return nil
		}
		if err := store.DeleteAll(holder); err != nil {
			return err
		}
		fmt.Printf("deleted all vaults for %s\n", holder)
		return nil
	},
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
