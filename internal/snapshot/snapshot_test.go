package snapshot_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dataforge/internal/schema"
	"dataforge/internal/snapshot"
)

func mustTable(t *testing.T, name string) *schema.Table {
	t.Helper()
	tbl, err := schema.NewRegistry().Table(name)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tbl := mustTable(t, "order_items")
	ship := time.Date(2017, 9, 19, 9, 45, 35, 0, time.UTC)
	rows := []map[string]any{
		{
			"order_id":            "a0000000000000000000000000000000",
			"order_item_id":       int64(1),
			"product_id":          "b0000000000000000000000000000000",
			"seller_id":           "c0000000000000000000000000000000",
			"shipping_limit_date": ship,
			"price":               decimal.RequireFromString("58.90"),
			"freight_value":       decimal.RequireFromString("0.00"),
		},
		{
			"order_id":            "a0000000000000000000000000000000",
			"order_item_id":       int64(2),
			"product_id":          "b0000000000000000000000000000000",
			"seller_id":           "c0000000000000000000000000000000",
			"shipping_limit_date": ship,
			"price":               decimal.RequireFromString("1234567890.12"),
			"freight_value":       nil, // null must stay distinct from zero
		},
	}

	var buf bytes.Buffer
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := snapshot.Encode(&buf, tbl, rows, created); err != nil {
		t.Fatal(err)
	}

	table, createdAt, got, err := snapshot.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if table != "order_items" {
		t.Errorf("table tag = %q, want order_items", table)
	}
	if !createdAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", createdAt, created)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}

	price, ok := got[0]["price"].(decimal.Decimal)
	if !ok || !price.Equal(decimal.RequireFromString("58.90")) {
		t.Errorf("price round-trip lost precision: %v", got[0]["price"])
	}
	freight, ok := got[0]["freight_value"].(decimal.Decimal)
	if !ok || !freight.Equal(decimal.Zero) {
		t.Errorf("zero decimal round-trip: %v", got[0]["freight_value"])
	}
	if got[1]["freight_value"] != nil {
		t.Errorf("null decimal became %v", got[1]["freight_value"])
	}
	ts, ok := got[0]["shipping_limit_date"].(time.Time)
	if !ok || !ts.Equal(ship) {
		t.Errorf("timestamp round-trip: %v", got[0]["shipping_limit_date"])
	}
	if got[1]["order_item_id"] != int64(2) {
		t.Errorf("integer round-trip: %v", got[1]["order_item_id"])
	}
}

func TestEncodeDecodeEmptyTable(t *testing.T) {
	tbl := mustTable(t, "sellers")

	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, tbl, nil, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}

	table, _, rows, err := snapshot.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if table != "sellers" || len(rows) != 0 {
		t.Errorf("empty snapshot decoded to table=%q rows=%d", table, len(rows))
	}
}

// snapStore serves Manager tests from memory.
type snapStore struct {
	scanned  []map[string]any
	replaced map[string][]map[string]any
}

func (s *snapStore) Exists(context.Context, string, string, any) (bool, error) { return false, nil }

func (s *snapStore) WriteBatch(context.Context, *schema.Table, []map[string]any) error { return nil }

func (s *snapStore) ScanAll(context.Context, *schema.Table) ([]map[string]any, error) {
	return s.scanned, nil
}

func (s *snapStore) ReplaceAll(_ context.Context, tbl *schema.Table, rows []map[string]any) error {
	if s.replaced == nil {
		s.replaced = make(map[string][]map[string]any)
	}
	s.replaced[tbl.Name] = rows
	return nil
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	reg := schema.NewRegistry()
	st := &snapStore{scanned: []map[string]any{
		{
			"seller_id":              "c0000000000000000000000000000000",
			"seller_zip_code_prefix": int64(13023),
			"seller_city":            "campinas",
			"seller_state":           "SP",
		},
	}}
	m := snapshot.NewManager(st, reg, t.TempDir())

	path, err := m.Backup(context.Background(), "sellers")
	if err != nil {
		t.Fatal(err)
	}

	out, err := m.Restore(context.Background(), "sellers", path)
	if err != nil {
		t.Fatal(err)
	}
	if out.Rows != 1 || out.Table != "sellers" {
		t.Errorf("outcome = %+v", out)
	}
	restored := st.replaced["sellers"]
	if len(restored) != 1 {
		t.Fatalf("store holds %d restored rows, want 1", len(restored))
	}
	if restored[0]["seller_city"] != "campinas" || restored[0]["seller_zip_code_prefix"] != int64(13023) {
		t.Errorf("restored row = %+v", restored[0])
	}
}

func TestRestoreRejectsWrongTableSnapshot(t *testing.T) {
	reg := schema.NewRegistry()
	st := &snapStore{}
	m := snapshot.NewManager(st, reg, t.TempDir())

	path, err := m.Backup(context.Background(), "sellers")
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Restore(context.Background(), "customers", path)
	if err == nil {
		t.Fatal("restoring a sellers snapshot into customers must fail")
	}
	if !errors.Is(err, snapshot.ErrTableMismatch) {
		t.Errorf("err = %v, want ErrTableMismatch", err)
	}
	if len(st.replaced) != 0 {
		t.Error("mismatched restore must not touch the store")
	}
}
