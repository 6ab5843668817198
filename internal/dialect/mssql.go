package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server Driver
)

type MSSQLDialect struct{}

// MSSQL Driver (go-mssqldb) prefers @p1, @p2 named parameters over ?,
// especially when prepared statements are involved.

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

// UpsertQuery uses MERGE; SQL Server has no ON CONFLICT clause.
func (d *MSSQLDialect) UpsertQuery(table string, cols, keyCols []string) string {
	srcCols := make([]string, len(cols))
	for i, c := range cols {
		srcCols[i] = fmt.Sprintf("%s AS %s", d.Placeholder(i), c)
	}
	onParts := make([]string, len(keyCols))
	for i, k := range keyCols {
		onParts[i] = fmt.Sprintf("target.%s = src.%s", k, k)
	}
	insertVals := make([]string, len(cols))
	for i, c := range cols {
		insertVals[i] = "src." + c
	}

	q := fmt.Sprintf("MERGE INTO %s AS target USING (SELECT %s) AS src ON (%s)",
		table, strings.Join(srcCols, ", "), strings.Join(onParts, " AND "))

	if update := nonKey(cols, keyCols); len(update) > 0 {
		sets := make([]string, len(update))
		for i, c := range update {
			sets[i] = fmt.Sprintf("target.%s = src.%s", c, c)
		}
		q += fmt.Sprintf(" WHEN MATCHED THEN UPDATE SET %s", strings.Join(sets, ", "))
	}

	q += fmt.Sprintf(" WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		strings.Join(cols, ", "), strings.Join(insertVals, ", "))
	return q
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), vals)
}

func (d *MSSQLDialect) ExistsQuery(table, column string) string {
	return fmt.Sprintf("SELECT CASE WHEN EXISTS(SELECT 1 FROM %s WHERE %s = @p1) THEN 1 ELSE 0 END", table, column)
}

func (d *MSSQLDialect) SelectAllQuery(table string, cols []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
}

func (d *MSSQLDialect) DeleteAllQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

func (d *MSSQLDialect) BeforeRestore(tx *sql.Tx, table string) error {
	_, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s NOCHECK CONSTRAINT all", table))
	return err
}

func (d *MSSQLDialect) AfterRestore(tx *sql.Tx, table string) error {
	_, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s WITH CHECK CHECK CONSTRAINT all", table))
	return err
}
