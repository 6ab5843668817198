package schema_test

import (
	"errors"
	"testing"

	"dataforge/internal/schema"
)

func TestRegistryKnowsNineTables(t *testing.T) {
	reg := schema.NewRegistry()

	names := reg.LoadOrder()
	if len(names) != 9 {
		t.Fatalf("expected 9 tables, got %d: %v", len(names), names)
	}
	for _, name := range names {
		tbl, err := reg.Table(name)
		if err != nil {
			t.Fatalf("Table(%q): %v", name, err)
		}
		if len(tbl.Key()) == 0 {
			t.Errorf("table %s has no primary key columns", name)
		}
		if tbl.SourceFile == "" {
			t.Errorf("table %s has no source file", name)
		}
	}
}

func TestRegistryUnknownTable(t *testing.T) {
	reg := schema.NewRegistry()

	_, err := reg.Table("invoices")
	if !errors.Is(err, schema.ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestLoadOrderRespectsForeignKeys(t *testing.T) {
	reg := schema.NewRegistry()

	pos := make(map[string]int)
	for i, name := range reg.LoadOrder() {
		pos[name] = i
	}

	for _, tbl := range reg.Tables() {
		for _, dep := range tbl.Dependencies {
			if pos[dep] >= pos[tbl.Name] {
				t.Errorf("table %s loads at %d before its dependency %s at %d",
					tbl.Name, pos[tbl.Name], dep, pos[dep])
			}
		}
	}

	if pos["customers"] >= pos["orders"] {
		t.Errorf("customers at %d should precede orders at %d", pos["customers"], pos["orders"])
	}
	if pos["orders"] >= pos["order_items"] {
		t.Errorf("orders at %d should precede order_items at %d", pos["orders"], pos["order_items"])
	}
}

func TestSortTablesByDependency_Simple(t *testing.T) {
	tables := []*schema.Table{
		{Name: "OrderItems", Dependencies: []string{"Orders"}},
		{Name: "Orders", Dependencies: []string{"Users"}},
		{Name: "Users", Dependencies: []string{}},
	}

	sorted, err := schema.SortTablesByDependency(tables)
	if err != nil {
		t.Fatal(err)
	}

	if sorted[0].Name != "Users" {
		t.Errorf("Expected Users first, got %s", sorted[0].Name)
	}
	if sorted[1].Name != "Orders" {
		t.Errorf("Expected Orders second, got %s", sorted[1].Name)
	}
	if sorted[2].Name != "OrderItems" {
		t.Errorf("Expected OrderItems third, got %s", sorted[2].Name)
	}
}

func TestSortTablesByDependency_CycleIsAnError(t *testing.T) {
	tables := []*schema.Table{
		{Name: "A", Dependencies: []string{"B"}},
		{Name: "B", Dependencies: []string{"A"}},
	}

	if _, err := schema.SortTablesByDependency(tables); err == nil {
		t.Fatal("expected an error for a dependency cycle")
	}
}

func TestForeignKeyTypesMatchReferencedKeys(t *testing.T) {
	reg := schema.NewRegistry()

	for _, tbl := range reg.Tables() {
		for _, col := range tbl.Columns {
			if col.Ref == nil {
				continue
			}
			ref, err := reg.Table(col.Ref.Table)
			if err != nil {
				t.Fatalf("%s.%s: %v", tbl.Name, col.Name, err)
			}
			target := ref.Column(col.Ref.Column)
			if target == nil {
				t.Fatalf("%s.%s references missing column %s.%s", tbl.Name, col.Name, col.Ref.Table, col.Ref.Column)
			}
			if target.Type != col.Type {
				t.Errorf("%s.%s type %s does not match %s.%s type %s",
					tbl.Name, col.Name, col.Type, col.Ref.Table, col.Ref.Column, target.Type)
			}
		}
	}
}
