// Package snapshot serializes full tables to columnar Arrow IPC files for
// backup and restores them with a transactional full-table replace.
package snapshot

import (
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dataforge/internal/schema"
)

const (
	metaTable     = "dataforge:table"
	metaCreatedAt = "dataforge:created_at"

	decimalPrecision = 18
	chunkRows        = 4096
)

// arrowType maps a logical column type onto its lossless Arrow encoding.
// Decimals travel as decimal128 at the column's declared scale, timestamps
// as microseconds UTC.
func arrowType(c *schema.Column) arrow.DataType {
	switch c.Type {
	case schema.TypeInteger:
		return arrow.PrimitiveTypes.Int64
	case schema.TypeDecimal:
		return &arrow.Decimal128Type{Precision: decimalPrecision, Scale: c.Scale}
	case schema.TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default: // string, uuid
		return arrow.BinaryTypes.String
	}
}

func arrowSchema(tbl *schema.Table, createdAt time.Time) *arrow.Schema {
	fields := make([]arrow.Field, len(tbl.Columns))
	for i, c := range tbl.Columns {
		// All snapshot columns are nullable: the snapshot records state,
		// it does not re-validate it.
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c), Nullable: true}
	}
	md := arrow.NewMetadata(
		[]string{metaTable, metaCreatedAt},
		[]string{tbl.Name, createdAt.UTC().Format(time.RFC3339)},
	)
	return arrow.NewSchema(fields, &md)
}

// Encode writes rows as a zstd-compressed Arrow IPC file tagged with the
// table name and creation timestamp.
func Encode(w io.Writer, tbl *schema.Table, rows []map[string]any, createdAt time.Time) error {
	sch := arrowSchema(tbl, createdAt)
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(sch), ipc.WithAllocator(memory.DefaultAllocator), ipc.WithZstd())
	if err != nil {
		return fmt.Errorf("open snapshot writer: %w", err)
	}

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, sch)
	defer bldr.Release()

	for start := 0; start < len(rows) || start == 0; start += chunkRows {
		end := start + chunkRows
		if end > len(rows) {
			end = len(rows)
		}
		for _, row := range rows[start:end] {
			for i, c := range tbl.Columns {
				if err := appendValue(bldr.Field(i), c, row[c.Name]); err != nil {
					return fmt.Errorf("column %s: %w", c.Name, err)
				}
			}
		}
		rec := bldr.NewRecord()
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			return fmt.Errorf("write snapshot chunk: %w", err)
		}
		if len(rows) == 0 {
			break
		}
	}

	if err := fw.Close(); err != nil {
		return fmt.Errorf("finish snapshot: %w", err)
	}
	return nil
}

func appendValue(b array.Builder, c *schema.Column, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch bldr := b.(type) {
	case *array.StringBuilder:
		switch s := v.(type) {
		case string:
			bldr.Append(s)
		case uuid.UUID:
			bldr.Append(s.String())
		default:
			return fmt.Errorf("expected string, got %T", v)
		}
	case *array.Int64Builder:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", v)
		}
		bldr.Append(n)
	case *array.Decimal128Builder:
		d, ok := v.(decimal.Decimal)
		if !ok {
			return fmt.Errorf("expected decimal, got %T", v)
		}
		num, err := decimal128.FromString(d.String(), decimalPrecision, c.Scale)
		if err != nil {
			return fmt.Errorf("decimal %s out of range: %w", d, err)
		}
		bldr.Append(num)
	case *array.TimestampBuilder:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("expected time, got %T", v)
		}
		ts, err := arrow.TimestampFromTime(t.UTC(), arrow.Microsecond)
		if err != nil {
			return err
		}
		bldr.Append(ts)
	default:
		return fmt.Errorf("unhandled builder %T", b)
	}
	return nil
}

// Decode reads a snapshot back into typed rows. It returns the table name
// and creation timestamp the snapshot was tagged with; the caller decides
// whether the tag matches the restore target.
func Decode(r ipc.ReadAtSeeker) (table string, createdAt time.Time, rows []map[string]any, err error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("open snapshot reader: %w", err)
	}
	defer fr.Close()

	md := fr.Schema().Metadata()
	if idx := md.FindKey(metaTable); idx >= 0 {
		table = md.Values()[idx]
	}
	if idx := md.FindKey(metaCreatedAt); idx >= 0 {
		createdAt, _ = time.Parse(time.RFC3339, md.Values()[idx])
	}
	if table == "" {
		return "", time.Time{}, nil, fmt.Errorf("snapshot carries no table tag")
	}

	fields := fr.Schema().Fields()
	for {
		rec, err := fr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", time.Time{}, nil, fmt.Errorf("read snapshot chunk: %w", err)
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make(map[string]any, len(fields))
			for j, f := range fields {
				val, err := cellValue(rec.Column(j), f, i)
				if err != nil {
					return "", time.Time{}, nil, fmt.Errorf("column %s: %w", f.Name, err)
				}
				row[f.Name] = val
			}
			rows = append(rows, row)
		}
	}
	return table, createdAt, rows, nil
}

func cellValue(col arrow.Array, f arrow.Field, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}
	switch arr := col.(type) {
	case *array.String:
		return arr.Value(i), nil
	case *array.Int64:
		return arr.Value(i), nil
	case *array.Decimal128:
		dt, ok := f.Type.(*arrow.Decimal128Type)
		if !ok {
			return nil, fmt.Errorf("decimal column with %s type", f.Type)
		}
		d, err := decimal.NewFromString(arr.Value(i).ToString(dt.Scale))
		if err != nil {
			return nil, err
		}
		return d, nil
	case *array.Timestamp:
		return arr.Value(i).ToTime(arrow.Microsecond).UTC(), nil
	default:
		return nil, fmt.Errorf("unhandled array %T", col)
	}
}
