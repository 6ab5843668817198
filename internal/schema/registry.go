package schema

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrUnknownTable is returned when a table name is not one of the nine
// recognized tables.
var ErrUnknownTable = errors.New("unknown table")

var (
	hexID   = regexp.MustCompile(`^[0-9a-f]{32}$`)
	stateBR = regexp.MustCompile(`^[a-zA-Z]{2}$`)
)

func i64(v int64) *int64 { return &v }

// Registry holds the nine table schemas. It is built once at startup and
// read-only afterwards, so it is safe for concurrent use without locking.
type Registry struct {
	tables map[string]*Table
	order  []*Table // FK dependency order, parents first
}

// NewRegistry builds the registry for the Olist e-commerce schema.
// Tables are declared in load tiers (independent tables first); the final
// order is recomputed from the declared foreign keys.
func NewRegistry() *Registry {
	tables := []*Table{
		{
			Name:       "geolocation",
			SourceFile: "olist_geolocation_dataset.csv",
			Columns: []*Column{
				{Name: "geolocation_zip_code_prefix", Type: TypeInteger, IsPK: true, NonNegative: true, MaxInt: i64(99999)},
				{Name: "geolocation_lat", Type: TypeDecimal, Scale: 8},
				{Name: "geolocation_lng", Type: TypeDecimal, Scale: 8},
				{Name: "geolocation_city", Type: TypeString, MaxLen: 64},
				{Name: "geolocation_state", Type: TypeString, Pattern: stateBR},
			},
		},
		{
			Name:       "product_category_name_translation",
			SourceFile: "product_category_name_translation.csv",
			Columns: []*Column{
				{Name: "product_category_name", Type: TypeString, IsPK: true, MaxLen: 64},
				{Name: "product_category_name_english", Type: TypeString, MaxLen: 64},
			},
		},
		{
			Name:       "customers",
			SourceFile: "olist_customers_dataset.csv",
			Columns: []*Column{
				{Name: "customer_id", Type: TypeString, IsPK: true, Pattern: hexID},
				{Name: "customer_unique_id", Type: TypeString, Pattern: hexID},
				{Name: "customer_zip_code_prefix", Type: TypeInteger, NonNegative: true, MaxInt: i64(99999)},
				{Name: "customer_city", Type: TypeString, MaxLen: 64},
				{Name: "customer_state", Type: TypeString, Pattern: stateBR},
			},
		},
		{
			Name:       "sellers",
			SourceFile: "olist_sellers_dataset.csv",
			Columns: []*Column{
				{Name: "seller_id", Type: TypeString, IsPK: true, Pattern: hexID},
				{Name: "seller_zip_code_prefix", Type: TypeInteger, NonNegative: true, MaxInt: i64(99999)},
				{Name: "seller_city", Type: TypeString, MaxLen: 64},
				{Name: "seller_state", Type: TypeString, Pattern: stateBR},
			},
		},
		{
			Name:       "products",
			SourceFile: "olist_products_dataset.csv",
			Columns: []*Column{
				{Name: "product_id", Type: TypeString, IsPK: true, Pattern: hexID},
				{Name: "product_category_name", Type: TypeString, Nullable: true, MaxLen: 64,
					Ref: &ForeignKey{Table: "product_category_name_translation", Column: "product_category_name"}},
				{Name: "product_name_length", Type: TypeInteger, Nullable: true, NonNegative: true},
				{Name: "product_description_length", Type: TypeInteger, Nullable: true, NonNegative: true},
				{Name: "product_photos_qty", Type: TypeInteger, Nullable: true, NonNegative: true},
				{Name: "product_weight_g", Type: TypeInteger, Nullable: true, NonNegative: true},
				{Name: "product_length_cm", Type: TypeInteger, Nullable: true, NonNegative: true},
				{Name: "product_height_cm", Type: TypeInteger, Nullable: true, NonNegative: true},
				{Name: "product_width_cm", Type: TypeInteger, Nullable: true, NonNegative: true},
			},
		},
		{
			Name:       "orders",
			SourceFile: "olist_orders_dataset.csv",
			Columns: []*Column{
				{Name: "order_id", Type: TypeString, IsPK: true, Pattern: hexID},
				{Name: "customer_id", Type: TypeString, Pattern: hexID,
					Ref: &ForeignKey{Table: "customers", Column: "customer_id"}},
				{Name: "order_status", Type: TypeString,
					Enum: []string{"created", "approved", "invoiced", "processing", "shipped", "delivered", "unavailable", "canceled"}},
				{Name: "order_purchase_timestamp", Type: TypeTimestamp},
				{Name: "order_approved_at", Type: TypeTimestamp, Nullable: true},
				{Name: "order_delivered_carrier_date", Type: TypeTimestamp, Nullable: true},
				{Name: "order_delivered_customer_date", Type: TypeTimestamp, Nullable: true},
				{Name: "order_estimated_delivery_date", Type: TypeTimestamp},
			},
		},
		{
			Name:       "order_items",
			SourceFile: "olist_order_items_dataset.csv",
			Columns: []*Column{
				{Name: "order_id", Type: TypeString, IsPK: true, Pattern: hexID,
					Ref: &ForeignKey{Table: "orders", Column: "order_id"}},
				{Name: "order_item_id", Type: TypeInteger, IsPK: true, MinInt: i64(1)},
				{Name: "product_id", Type: TypeString, Pattern: hexID,
					Ref: &ForeignKey{Table: "products", Column: "product_id"}},
				{Name: "seller_id", Type: TypeString, Pattern: hexID,
					Ref: &ForeignKey{Table: "sellers", Column: "seller_id"}},
				{Name: "shipping_limit_date", Type: TypeTimestamp},
				{Name: "price", Type: TypeDecimal, NonNegative: true, Scale: 2},
				{Name: "freight_value", Type: TypeDecimal, NonNegative: true, Scale: 2},
			},
		},
		{
			Name:       "order_payments",
			SourceFile: "olist_order_payments_dataset.csv",
			Columns: []*Column{
				{Name: "order_id", Type: TypeString, IsPK: true, Pattern: hexID,
					Ref: &ForeignKey{Table: "orders", Column: "order_id"}},
				{Name: "payment_sequential", Type: TypeInteger, IsPK: true, MinInt: i64(1)},
				{Name: "payment_type", Type: TypeString,
					Enum: []string{"credit_card", "boleto", "voucher", "debit_card", "not_defined"}},
				{Name: "payment_installments", Type: TypeInteger, MinInt: i64(0), MaxInt: i64(24)},
				{Name: "payment_value", Type: TypeDecimal, NonNegative: true, Scale: 2},
			},
		},
		{
			Name:       "order_reviews",
			SourceFile: "olist_order_reviews_dataset.csv",
			Columns: []*Column{
				{Name: "review_id", Type: TypeString, IsPK: true, Pattern: hexID},
				{Name: "order_id", Type: TypeString, IsPK: true, Pattern: hexID,
					Ref: &ForeignKey{Table: "orders", Column: "order_id"}},
				{Name: "review_score", Type: TypeInteger, MinInt: i64(1), MaxInt: i64(5)},
				{Name: "review_comment_title", Type: TypeString, Nullable: true},
				{Name: "review_comment_message", Type: TypeString, Nullable: true},
				{Name: "review_creation_date", Type: TypeTimestamp},
				{Name: "review_answer_timestamp", Type: TypeTimestamp, Nullable: true},
			},
		},
	}

	r := &Registry{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		t.Dependencies = dependencies(t)
		r.tables[t.Name] = t
	}
	if err := r.check(); err != nil {
		panic(err) // registry is static; a bad declaration is a programming error
	}
	order, err := SortTablesByDependency(tables)
	if err != nil {
		panic(err)
	}
	r.order = order
	return r
}

// dependencies collects the distinct referenced table names, skipping
// self-references.
func dependencies(t *Table) []string {
	seen := make(map[string]bool)
	var deps []string
	for _, c := range t.Columns {
		if c.Ref == nil || c.Ref.Table == t.Name || seen[c.Ref.Table] {
			continue
		}
		seen[c.Ref.Table] = true
		deps = append(deps, c.Ref.Table)
	}
	return deps
}

// check verifies that every foreign key points at an existing key column of a
// compatible logical type.
func (r *Registry) check() error {
	for _, t := range r.tables {
		for _, c := range t.Columns {
			if c.Ref == nil {
				continue
			}
			ref, ok := r.tables[c.Ref.Table]
			if !ok {
				return fmt.Errorf("%s.%s references unknown table %q", t.Name, c.Name, c.Ref.Table)
			}
			target := ref.Column(c.Ref.Column)
			if target == nil {
				return fmt.Errorf("%s.%s references unknown column %s.%s", t.Name, c.Name, c.Ref.Table, c.Ref.Column)
			}
			if target.Type != c.Type {
				return fmt.Errorf("%s.%s (%s) references %s.%s (%s): type mismatch",
					t.Name, c.Name, c.Type, c.Ref.Table, c.Ref.Column, target.Type)
			}
		}
	}
	return nil
}

// Table returns the schema for the named table.
func (r *Registry) Table(name string) (*Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// Tables returns all tables in FK dependency order, parents first.
func (r *Registry) Tables() []*Table {
	out := make([]*Table, len(r.order))
	copy(out, r.order)
	return out
}

// LoadOrder returns the table names in FK dependency order.
func (r *Registry) LoadOrder() []string {
	names := make([]string, len(r.order))
	for i, t := range r.order {
		names[i] = t.Name
	}
	return names
}
