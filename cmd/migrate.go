package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"dataforge/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <dir>",
	Short: "Migrate the Olist CSV exports into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]

		stk, err := buildStack(true)
		if err != nil {
			return err
		}
		defer stk.close()

		driver := migrate.New(stk.reg, stk.proc)
		tables := stk.reg.Tables()

		log.Printf("Migrating %d tables from %s (dependency order)...", len(tables), dir)
		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(len(tables)).AppendCompleted().PrependElapsed()
		var current string
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("%-30s", current)
		})

		lastTable := ""
		driver.OnProgress = func(table string, processed int) {
			current = fmt.Sprintf("%s (%d)", table, processed)
			if table != lastTable {
				if lastTable != "" {
					bar.Incr()
				}
				lastTable = table
			}
		}

		results, err := driver.MigrateAll(cmd.Context(), dir)
		if err == nil {
			for bar.Incr() {
			}
		}
		uiprogress.Stop()

		elapsed := time.Since(start)

		// Report whatever completed, then surface the failure if any.
		fmt.Println("\n📊 Migration Report (Dependency Order):")
		totalAccepted, totalRejected := 0, 0
		for i, tbl := range tables {
			out, ok := results[tbl.Name]
			if !ok {
				fmt.Printf("[!] [%02d/%02d] %-32s : not reached\n", i+1, len(tables), tbl.Name)
				continue
			}
			icon := "✓"
			if out.Rejected > 0 {
				icon = "!"
			}
			fmt.Printf("[%s] [%02d/%02d] %-32s : %d accepted, %d rejected (of %d)\n",
				icon, i+1, len(tables), tbl.Name, out.Accepted, out.Rejected, out.Total)
			totalAccepted += out.Accepted
			totalRejected += out.Rejected
		}
		fmt.Println("--------------------------------------------------")
		fmt.Printf("Total: %d accepted, %d rejected\n", totalAccepted, totalRejected)
		log.Printf("Migration done! Time Elapsed: %s", elapsed)

		return err
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
