package dialect

import "database/sql"

// Dialect abstracts database-specific SQL for the store: placeholder style,
// upsert syntax and constraint handling around a full-table replace.
type Dialect interface {
	// Placeholder returns the bind marker for a zero-based parameter index
	// (?, $1, @p1, :1 ...).
	Placeholder(index int) string

	// UpsertQuery inserts one row, overwriting an existing row with the same
	// primary key. cols is the full column list, keyCols the primary key
	// subset; bind parameters follow cols order.
	UpsertQuery(table string, cols, keyCols []string) string

	// InsertQuery inserts one row with no conflict handling (restore path,
	// target table is empty inside the transaction).
	InsertQuery(table string, cols []string) string

	// ExistsQuery reports whether a row with the given column value exists.
	// It binds one parameter and selects a single boolean-ish column.
	ExistsQuery(table, column string) string

	SelectAllQuery(table string, cols []string) string
	DeleteAllQuery(table string) string

	// Restore hooks: relax and re-arm FK enforcement around a full-table
	// replace, inside the replace transaction.
	BeforeRestore(tx *sql.Tx, table string) error
	AfterRestore(tx *sql.Tx, table string) error
}
