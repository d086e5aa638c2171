package rules

import (
	"errors"
	"testing"
	"time"
)

func TestExpressionStoreInterfaceExists(t *testing.T) {
	var _ ExpressionStore = (*InMemoryExpressionStore)(nil)
	var _ ExpressionStore = (*PostgresExpressionStore)(nil)
}

func TestInMemoryExpressionStoreAdd(t *testing.T) {
	store := NewInMemoryExpressionStore()

	def := &ExpressionDefinition{
		ID:             "ptype-02",
		CatalogVersion: "1718",
		Name:           "ProgType_02",
		Scope:          ScopeDelivery,
		Expression:     `delivery.AimType == 4 && has(delivery.ProgType)`,
		Parameters:     []string{"AimType", "ProgType"},
		Active:         true,
	}
	if err := store.Add(def); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	retrieved, err := store.Get("ptype-02")
	if err != nil {
		t.Fatalf("Get() failed after Add(): %v", err)
	}
	if retrieved.Name != def.Name || retrieved.Expression != def.Expression {
		t.Errorf("Get() = %+v, want %+v", retrieved, def)
	}

	// the stored copy is independent of the caller's
	def.Parameters[0] = "changed"
	retrieved, _ = store.Get("ptype-02")
	if retrieved.Parameters[0] != "AimType" {
		t.Errorf("stored parameters changed through caller slice: %v", retrieved.Parameters)
	}
}

func TestInMemoryExpressionStoreAddDuplicate(t *testing.T) {
	store := NewInMemoryExpressionStore()

	first := &ExpressionDefinition{ID: "dup", CatalogVersion: "1718", Name: "First_01", Expression: `true`}
	if err := store.Add(first); err != nil {
		t.Fatalf("First Add() should succeed: %v", err)
	}

	tests := []struct {
		name string
		def  *ExpressionDefinition
	}{
		{"same id", &ExpressionDefinition{ID: "dup", CatalogVersion: "1718", Name: "Second_01", Expression: `true`}},
		{"same name in version", &ExpressionDefinition{ID: "other", CatalogVersion: "1718", Name: "First_01", Expression: `true`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Add(tt.def); !errors.Is(err, ErrExpressionExists) {
				t.Errorf("Add() error = %v, want ErrExpressionExists", err)
			}
		})
	}

	sameNameOtherVersion := &ExpressionDefinition{ID: "next-year", CatalogVersion: "1819", Name: "First_01", Expression: `true`}
	if err := store.Add(sameNameOtherVersion); err != nil {
		t.Errorf("Add() in another catalog version failed: %v", err)
	}
}

func TestInMemoryExpressionStoreGetNotFound(t *testing.T) {
	store := NewInMemoryExpressionStore()
	if _, err := store.Get("missing"); !errors.Is(err, ErrExpressionNotFound) {
		t.Errorf("Get() error = %v, want ErrExpressionNotFound", err)
	}
}

func TestInMemoryExpressionStoreTimestamps(t *testing.T) {
	store := NewInMemoryExpressionStore()
	before := time.Now()

	def := &ExpressionDefinition{ID: "ts", CatalogVersion: "1718", Name: "Stamp_01", Expression: `true`}
	if err := store.Add(def); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	after := time.Now()

	got, _ := store.Get("ts")
	if got.CreatedAt.Before(before) || got.CreatedAt.After(after) {
		t.Errorf("CreatedAt = %v, should be between %v and %v", got.CreatedAt, before, after)
	}
	if !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("UpdatedAt = %v, should equal CreatedAt = %v on creation", got.UpdatedAt, got.CreatedAt)
	}

	time.Sleep(5 * time.Millisecond)
	got.Expression = `false`
	if err := store.Update(got); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	updated, _ := store.Get("ts")
	if !updated.CreatedAt.Equal(got.CreatedAt) {
		t.Error("Update() should preserve CreatedAt")
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Error("Update() should advance UpdatedAt")
	}
	if updated.Expression != `false` {
		t.Errorf("Expression = %s, want false", updated.Expression)
	}
}

func TestInMemoryExpressionStoreUpdateNotFound(t *testing.T) {
	store := NewInMemoryExpressionStore()
	err := store.Update(&ExpressionDefinition{ID: "missing"})
	if !errors.Is(err, ErrExpressionNotFound) {
		t.Errorf("Update() error = %v, want ErrExpressionNotFound", err)
	}
}

func TestInMemoryExpressionStoreDelete(t *testing.T) {
	store := NewInMemoryExpressionStore()
	_ = store.Add(&ExpressionDefinition{ID: "del", CatalogVersion: "1718", Name: "Delete_01", Expression: `true`})

	if err := store.Delete("del"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get("del"); err == nil {
		t.Error("Get() after Delete() should fail")
	}
	if err := store.Delete("del"); !errors.Is(err, ErrExpressionNotFound) {
		t.Errorf("second Delete() error = %v, want ErrExpressionNotFound", err)
	}
}

func TestInMemoryExpressionStoreListActive(t *testing.T) {
	store := NewInMemoryExpressionStore()
	defs := []*ExpressionDefinition{
		{ID: "a", CatalogVersion: "1718", Name: "Active_01", Expression: `true`, Active: true},
		{ID: "b", CatalogVersion: "1718", Name: "Inactive_01", Expression: `true`},
		{ID: "c", CatalogVersion: "1819", Name: "Active_01", Expression: `true`, Active: true},
		{ID: "d", CatalogVersion: "1718", Name: "Active_02", Expression: `true`, Active: true},
	}
	for _, def := range defs {
		if err := store.Add(def); err != nil {
			t.Fatalf("Add(%s) failed: %v", def.ID, err)
		}
		time.Sleep(time.Millisecond)
	}

	active, err := store.ListActive("1718")
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if len(active) != 2 || active[0].ID != "a" || active[1].ID != "d" {
		t.Errorf("ListActive() = %v, want [a d]", ids(active))
	}
}

func TestJoinSplitParameterNames(t *testing.T) {
	names := []string{"AimType", "LearnerHE.TTACCOM"}
	if got := splitParameterNames(joinParameterNames(names)); len(got) != 2 || got[1] != "LearnerHE.TTACCOM" {
		t.Errorf("round trip = %v", got)
	}
	if got := splitParameterNames(""); got != nil {
		t.Errorf("splitParameterNames(\"\") = %v, want nil", got)
	}
}

func ids(defs []*ExpressionDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.ID
	}
	return out
}
