// Package migrate streams the historical Olist CSV exports through the batch
// processor, one table at a time in FK dependency order.
package migrate

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dataforge/internal/batch"
	"dataforge/internal/schema"
)

// Processor is the single write path shared with the ingestion API.
type Processor interface {
	Process(ctx context.Context, table string, raws []map[string]any) (*batch.Outcome, error)
}

// Driver reads per-table source files and submits them in chunks bounded by
// the batch ceiling. Chunk boundaries have no correctness impact: every
// chunk is independently atomic.
type Driver struct {
	reg       *schema.Registry
	proc      Processor
	chunkSize int

	// OnProgress, when set, is called after each processed chunk with the
	// cumulative record count for the table.
	OnProgress func(table string, processed int)
}

func New(reg *schema.Registry, proc Processor) *Driver {
	return &Driver{reg: reg, proc: proc, chunkSize: batch.MaxBatchSize}
}

// MigrateAll migrates every table found in dir, parents before children.
// Data-quality rejections accumulate per table and never halt the run; an
// unreadable source file or a store failure aborts it with the partial
// results gathered so far.
func (d *Driver) MigrateAll(ctx context.Context, dir string) (map[string]*batch.Outcome, error) {
	results := make(map[string]*batch.Outcome)
	for _, tbl := range d.reg.Tables() {
		outcome, err := d.migrateTable(ctx, tbl, filepath.Join(dir, tbl.SourceFile))
		if err != nil {
			return results, fmt.Errorf("migrate %s: %w", tbl.Name, err)
		}
		results[tbl.Name] = outcome
	}
	return results, nil
}

// MigrateFile migrates a single table from an explicit source file. The
// caller owns the ordering; feeding children before their parents surfaces
// ForeignKeyViolation rejections.
func (d *Driver) MigrateFile(ctx context.Context, table, path string) (*batch.Outcome, error) {
	tbl, err := d.reg.Table(table)
	if err != nil {
		return nil, err
	}
	return d.migrateTable(ctx, tbl, path)
}

func (d *Driver) migrateTable(ctx context.Context, tbl *schema.Table, path string) (*batch.Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", filepath.Base(path), err)
	}

	agg := &batch.Outcome{Table: tbl.Name}
	chunk := make([]map[string]any, 0, d.chunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		out, err := d.proc.Process(ctx, tbl.Name, chunk)
		if err != nil {
			return err
		}
		agg.Merge(out)
		chunk = chunk[:0]
		if d.OnProgress != nil {
			d.OnProgress(tbl.Name, agg.Total)
		}
		return nil
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		raw := make(map[string]any, len(header))
		for i, h := range header {
			if i < len(row) {
				raw[h] = row[i]
			}
		}
		chunk = append(chunk, raw)
		if len(chunk) == d.chunkSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return agg, nil
}
