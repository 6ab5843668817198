package dialect

import (
	"database/sql"
	"fmt"
	"strings"
)

type OracleDialect struct{}

func (d *OracleDialect) Placeholder(index int) string {
	return fmt.Sprintf(":%d", index+1)
}

// UpsertQuery uses MERGE against DUAL; Oracle has no ON CONFLICT clause.
func (d *OracleDialect) UpsertQuery(table string, cols, keyCols []string) string {
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

	q := fmt.Sprintf("MERGE INTO %s target USING (SELECT %s FROM DUAL) src ON (%s)",
		table, strings.Join(srcCols, ", "), strings.Join(onParts, " AND "))

	if update := nonKey(cols, keyCols); len(update) > 0 {
		sets := make([]string, len(update))
		for i, c := range update {
			sets[i] = fmt.Sprintf("target.%s = src.%s", c, c)
		}
		q += fmt.Sprintf(" WHEN MATCHED THEN UPDATE SET %s", strings.Join(sets, ", "))
	}

	q += fmt.Sprintf(" WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(insertVals, ", "))
	return q
}

func (d *OracleDialect) InsertQuery(table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), vals)
}

func (d *OracleDialect) ExistsQuery(table, column string) string {
	return fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE %s = :1 FETCH FIRST 1 ROWS ONLY", table, column)
}

func (d *OracleDialect) SelectAllQuery(table string, cols []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
}

func (d *OracleDialect) DeleteAllQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s", table)
}

func (d *OracleDialect) BeforeRestore(tx *sql.Tx, table string) error {
	// FKs are declared DEFERRABLE in the DDL; checks then happen at commit.
	_, err := tx.Exec("SET CONSTRAINTS ALL DEFERRED")
	return err
}

func (d *OracleDialect) AfterRestore(tx *sql.Tx, table string) error {
	_, err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE")
	return err
}
