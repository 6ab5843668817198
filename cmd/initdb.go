package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var schemaDir string

var initdbCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the database schema",
	Long: `Initdb applies every .sql file in the schema directory in sorted order,
one transaction per file. Files are numbered so parents are created before
the tables that reference them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := os.ReadDir(schemaDir)
		if err != nil {
			return fmt.Errorf("read schema dir: %w", err)
		}

		var files []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
				files = append(files, e.Name())
			}
		}
		sort.Strings(files)
		if len(files) == 0 {
			return fmt.Errorf("no .sql files in %s", schemaDir)
		}

		for i, name := range files {
			path := filepath.Join(schemaDir, name)
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}

			tx, err := DB.BeginTx(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("begin tx for %s: %w", name, err)
			}
			if _, err := tx.ExecContext(cmd.Context(), string(content)); err != nil {
				tx.Rollback()
				return fmt.Errorf("apply %s: %w", name, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit %s: %w", name, err)
			}
			log.Printf("[%02d/%02d] applied %s", i+1, len(files), name)
		}

		fmt.Printf("✓ schema ready (%d files)\n", len(files))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(initdbCmd)

	initdbCmd.Flags().StringVar(&schemaDir, "schema-dir", "schema", "directory holding the DDL files")
}
