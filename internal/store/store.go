// Package store implements the transactional table store over database/sql,
// parameterized by a SQL dialect.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"dataforge/internal/dialect"
	"dataforge/internal/schema"
)

// Store is the relational collaborator the batch processor and the snapshot
// manager write through. WriteBatch and ReplaceAll are each one transaction:
// all rows or none.
type Store interface {
	Exists(ctx context.Context, table, column string, value any) (bool, error)
	WriteBatch(ctx context.Context, tbl *schema.Table, rows []map[string]any) error
	ScanAll(ctx context.Context, tbl *schema.Table) ([]map[string]any, error)
	ReplaceAll(ctx context.Context, tbl *schema.Table, rows []map[string]any) error
}

// SQLStore implements Store against any of the supported dialects.
//
// A per-table RW lock arbitrates between batch writes (shared) and restore
// (exclusive): a full-table replace must never interleave with a concurrent
// batch commit on the same table.
type SQLStore struct {
	db *sql.DB
	d  dialect.Dialect

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func New(db *sql.DB, d dialect.Dialect) *SQLStore {
	return &SQLStore{db: db, d: d, locks: make(map[string]*sync.RWMutex)}
}

func (s *SQLStore) lockFor(table string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[table]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[table] = l
	}
	return l
}

// Exists reports whether a row with the given column value is present.
func (s *SQLStore) Exists(ctx context.Context, table, column string, value any) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, s.d.ExistsQuery(table, column), value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists %s.%s: %w", table, column, err)
	}
	return exists, nil
}

// WriteBatch upserts all rows inside one transaction. Any failure rolls the
// whole batch back; the store's own constraints are the second line of
// defense behind validation.
func (s *SQLStore) WriteBatch(ctx context.Context, tbl *schema.Table, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	lock := s.lockFor(tbl.Name)
	lock.RLock()
	defer lock.RUnlock()

	cols := tbl.ColumnNames()
	var keyCols []string
	for _, c := range tbl.Key() {
		keyCols = append(keyCols, c.Name)
	}
	query := s.d.UpsertQuery(tbl.Name, cols, keyCols)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch write %s: %w", tbl.Name, err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, query, args(cols, row)...); err != nil {
			return fmt.Errorf("write %s row: %w", tbl.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch write %s: %w", tbl.Name, err)
	}
	return nil
}

// ScanAll reads every row of the table in store order.
func (s *SQLStore) ScanAll(ctx context.Context, tbl *schema.Table) ([]map[string]any, error) {
	lock := s.lockFor(tbl.Name)
	lock.RLock()
	defer lock.RUnlock()

	cols := tbl.ColumnNames()
	rows, err := s.db.QueryContext(ctx, s.d.SelectAllQuery(tbl.Name, cols))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", tbl.Name, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		targets := scanTargets(tbl)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", tbl.Name, err)
		}
		row, err := rowFromTargets(tbl, targets)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", tbl.Name, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", tbl.Name, err)
	}
	return out, nil
}

// ReplaceAll makes the table's contents exactly rows: delete everything, then
// insert the new set, all within one transaction. A mid-way failure leaves
// the prior contents untouched.
func (s *SQLStore) ReplaceAll(ctx context.Context, tbl *schema.Table, rows []map[string]any) error {
	lock := s.lockFor(tbl.Name)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", tbl.Name, err)
	}
	defer tx.Rollback()

	if err := s.d.BeforeRestore(tx, tbl.Name); err != nil {
		return fmt.Errorf("prepare replace %s: %w", tbl.Name, err)
	}

	if _, err := tx.ExecContext(ctx, s.d.DeleteAllQuery(tbl.Name)); err != nil {
		return fmt.Errorf("clear %s: %w", tbl.Name, err)
	}

	cols := tbl.ColumnNames()
	query := s.d.InsertQuery(tbl.Name, cols)
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, query, args(cols, row)...); err != nil {
			return fmt.Errorf("restore %s row: %w", tbl.Name, err)
		}
	}

	if err := s.d.AfterRestore(tx, tbl.Name); err != nil {
		return fmt.Errorf("finish replace %s: %w", tbl.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s: %w", tbl.Name, err)
	}
	return nil
}

// args flattens a typed row into bind parameters in column order.
func args(cols []string, row map[string]any) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = row[c]
	}
	return out
}

// scanTargets builds per-column scan destinations. Decimals are scanned as
// strings so precision survives the driver round-trip.
func scanTargets(tbl *schema.Table) []any {
	targets := make([]any, len(tbl.Columns))
	for i, c := range tbl.Columns {
		switch c.Type {
		case schema.TypeInteger:
			targets[i] = new(sql.NullInt64)
		case schema.TypeTimestamp:
			targets[i] = new(sql.NullTime)
		default: // string, decimal, uuid
			targets[i] = new(sql.NullString)
		}
	}
	return targets
}

// rowFromTargets converts scanned values back to the typed representation
// used everywhere else (string, int64, decimal.Decimal, time.Time or nil).
func rowFromTargets(tbl *schema.Table, targets []any) (map[string]any, error) {
	row := make(map[string]any, len(tbl.Columns))
	for i, c := range tbl.Columns {
		switch v := targets[i].(type) {
		case *sql.NullInt64:
			if v.Valid {
				row[c.Name] = v.Int64
			} else {
				row[c.Name] = nil
			}
		case *sql.NullTime:
			if v.Valid {
				row[c.Name] = v.Time.UTC()
			} else {
				row[c.Name] = nil
			}
		case *sql.NullString:
			if !v.Valid {
				row[c.Name] = nil
				continue
			}
			if c.Type == schema.TypeDecimal {
				d, err := decimal.NewFromString(v.String)
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", c.Name, err)
				}
				row[c.Name] = d
			} else {
				row[c.Name] = v.String
			}
		}
	}
	return row, nil
}
