package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup <table>",
	Short: "Snapshot a full table to a columnar backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stk, err := buildStack(false)
		if err != nil {
			return err
		}

		path, err := stk.snaps.Backup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ %s backed up to %s\n", args[0], path)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(backupCmd)
}
