package schema

import "regexp"

// FieldType is the logical type of a column, independent of any SQL dialect.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInteger
	TypeDecimal
	TypeTimestamp
	TypeUUID
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeTimestamp:
		return "timestamp"
	case TypeUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// ForeignKey declares that a column references the key column of another table.
type ForeignKey struct {
	Table  string
	Column string
}

type Column struct {
	Name        string
	Type        FieldType
	Nullable    bool
	IsPK        bool
	MaxLen      int            // 0 = unbounded (strings only)
	Enum        []string       // allowed values (strings only)
	Pattern     *regexp.Regexp // value must match (strings only)
	NonNegative bool           // integers and decimals
	MinInt      *int64         // inclusive bounds (integers only)
	MaxInt      *int64
	Scale       int32 // decimal digits after the point (decimals only)
	Ref         *ForeignKey
}

type Table struct {
	Name         string
	SourceFile   string // historical CSV file consumed by the migration driver
	Columns      []*Column
	Dependencies []string // referenced table names, derived from column Refs
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Key returns the primary key columns in declaration order.
func (t *Table) Key() []*Column {
	var pk []*Column
	for _, c := range t.Columns {
		if c.IsPK {
			pk = append(pk, c)
		}
	}
	return pk
}

// ColumnNames returns all column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
