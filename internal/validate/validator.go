package validate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dataforge/internal/schema"
)

// Constraint names a validation check a record can fail.
type Constraint string

const (
	MissingRequiredField Constraint = "MissingRequiredField"
	TypeMismatch         Constraint = "TypeMismatch"
	ConstraintViolation  Constraint = "ConstraintViolation"
	ForeignKeyViolation  Constraint = "ForeignKeyViolation"
)

// Rejection names the first field and constraint a record failed, together
// with the offending raw value.
type Rejection struct {
	Field      string     `json:"field"`
	Constraint Constraint `json:"constraint"`
	Value      any        `json:"value,omitempty"`
	Detail     string     `json:"detail,omitempty"`
}

// Result is the outcome of validating one raw record. When Accepted is true,
// Record holds the coerced typed values keyed by column name.
type Result struct {
	Accepted  bool
	Record    map[string]any
	Rejection *Rejection
}

// KeyLookup answers foreign-key existence checks against the store. It is the
// only store round-trip validation performs.
type KeyLookup interface {
	Exists(ctx context.Context, table, column string, value any) (bool, error)
}

// Validator checks raw records against the registry, one table at a time.
// Validation is read-only: it never writes, so concurrent calls are safe.
type Validator struct {
	reg    *schema.Registry
	lookup KeyLookup
}

func New(reg *schema.Registry, lookup KeyLookup) *Validator {
	return &Validator{reg: reg, lookup: lookup}
}

// Timestamp formats accepted on input. The first is the Olist export format.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Validate checks one raw record against the named table's schema. Columns are
// checked in declaration order and the first failure ends the record
// (fail-fast); the rejection still names the exact field and constraint.
// Unknown fields in the raw record are ignored. The error return is
// infrastructure-only: a failed foreign-key lookup round-trip.
func (v *Validator) Validate(ctx context.Context, table string, raw map[string]any) (Result, error) {
	tbl, err := v.reg.Table(table)
	if err != nil {
		return Result{}, err
	}
	return v.ValidateAgainst(ctx, tbl, raw)
}

// ValidateAgainst is Validate with the schema already resolved, so batch
// callers can look the table up once.
func (v *Validator) ValidateAgainst(ctx context.Context, tbl *schema.Table, raw map[string]any) (Result, error) {
	typed := make(map[string]any, len(tbl.Columns))

	for _, col := range tbl.Columns {
		rv, present := raw[col.Name]
		if !present || isNull(rv) {
			if !col.Nullable {
				return reject(col.Name, MissingRequiredField, nil, "field is required"), nil
			}
			typed[col.Name] = nil
			continue
		}

		val, err := coerce(col, rv)
		if err != nil {
			return reject(col.Name, TypeMismatch, rv, err.Error()), nil
		}

		if detail := checkConstraints(col, val); detail != "" {
			return reject(col.Name, ConstraintViolation, rv, detail), nil
		}

		if col.Ref != nil {
			ok, err := v.lookup.Exists(ctx, col.Ref.Table, col.Ref.Column, val)
			if err != nil {
				return Result{}, fmt.Errorf("foreign key lookup %s.%s: %w", col.Ref.Table, col.Ref.Column, err)
			}
			if !ok {
				return reject(col.Name, ForeignKeyViolation, rv,
					fmt.Sprintf("no %s row with %s", col.Ref.Table, col.Ref.Column)), nil
			}
		}

		typed[col.Name] = val
	}

	return Result{Accepted: true, Record: typed}, nil
}

func reject(field string, c Constraint, value any, detail string) Result {
	return Result{Rejection: &Rejection{Field: field, Constraint: c, Value: value, Detail: detail}}
}

// isNull treats nil and the empty string as null. CSV sources encode missing
// cells as "", matching the original export.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return true
	}
	return false
}

// coerce parses a raw value into the column's logical type. Typed outputs are
// string, int64, decimal.Decimal, time.Time (UTC) or uuid.UUID.
func coerce(col *schema.Column, raw any) (any, error) {
	switch col.Type {
	case schema.TypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return strings.TrimSpace(s), nil

	case schema.TypeInteger:
		switch n := raw.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			// JSON numbers arrive as float64; only integral values pass.
			if n != float64(int64(n)) {
				return nil, fmt.Errorf("%v is not an integer", n)
			}
			return int64(n), nil
		case string:
			s := strings.TrimSpace(n)
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
			// The export writes some integer columns as "640.0".
			if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
				return int64(f), nil
			}
			return nil, fmt.Errorf("cannot parse %q as integer", n)
		default:
			return nil, fmt.Errorf("expected integer, got %T", raw)
		}

	case schema.TypeDecimal:
		switch n := raw.(type) {
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(n))
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q as decimal", n)
			}
			return d, nil
		case float64:
			return decimal.NewFromFloat(n), nil
		case int:
			return decimal.NewFromInt(int64(n)), nil
		case int64:
			return decimal.NewFromInt(n), nil
		case decimal.Decimal:
			return n, nil
		default:
			return nil, fmt.Errorf("expected decimal, got %T", raw)
		}

	case schema.TypeTimestamp:
		switch ts := raw.(type) {
		case time.Time:
			return ts.UTC(), nil
		case string:
			s := strings.TrimSpace(ts)
			for _, layout := range timestampFormats {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC(), nil
				}
			}
			return nil, fmt.Errorf("cannot parse %q as timestamp", ts)
		default:
			return nil, fmt.Errorf("expected timestamp, got %T", raw)
		}

	case schema.TypeUUID:
		switch u := raw.(type) {
		case uuid.UUID:
			return u, nil
		case string:
			id, err := uuid.Parse(strings.TrimSpace(u))
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q as uuid", u)
			}
			return id, nil
		default:
			return nil, fmt.Errorf("expected uuid, got %T", raw)
		}
	}
	return nil, fmt.Errorf("unhandled type %s", col.Type)
}

// checkConstraints applies range, enum, pattern, length and non-negativity
// checks to an already-coerced value. Empty return means the value passed.
func checkConstraints(col *schema.Column, val any) string {
	switch v := val.(type) {
	case string:
		if col.MaxLen > 0 && len(v) > col.MaxLen {
			return fmt.Sprintf("longer than %d characters", col.MaxLen)
		}
		if len(col.Enum) > 0 && !containsString(col.Enum, v) {
			return fmt.Sprintf("not one of %v", col.Enum)
		}
		if col.Pattern != nil && !col.Pattern.MatchString(v) {
			return fmt.Sprintf("does not match %s", col.Pattern)
		}
	case int64:
		if col.NonNegative && v < 0 {
			return "must be non-negative"
		}
		if col.MinInt != nil && v < *col.MinInt {
			return fmt.Sprintf("below minimum %d", *col.MinInt)
		}
		if col.MaxInt != nil && v > *col.MaxInt {
			return fmt.Sprintf("above maximum %d", *col.MaxInt)
		}
	case decimal.Decimal:
		if col.NonNegative && v.IsNegative() {
			return "must be non-negative"
		}
	}
	return ""
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
