package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <table> <snapshot>",
	Short: "Replace a table's contents from a backup file",
	Long: `Restore replaces the full contents of a table with a snapshot taken by
the backup command. The replace runs in one transaction: rows absent from
the snapshot are removed. The snapshot must have been taken from the same
table it is restored into.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stk, err := buildStack(false)
		if err != nil {
			return err
		}

		out, err := stk.snaps.Restore(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("✓ %s restored: %d rows (snapshot taken %s)\n",
			out.Table, out.Rows, out.BackedUpAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(restoreCmd)
}
