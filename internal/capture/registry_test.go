package capture_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/persistorai/auditrail/internal/capture"
)

type Invoice struct {
	InvoiceId string
	Total     float64
}

type Tag struct {
	Label string
}

type Account struct {
	ID uuid.UUID
}

func TestRegistry_EntityIDConventions(t *testing.T) {
	reg := capture.NewRegistry(testLogger())
	capture.MustRegister(reg, capture.EntityType[Invoice]{
		Properties: func(i Invoice) map[string]any { return map[string]any{"InvoiceId": i.InvoiceId, "Total": i.Total} },
	})
	capture.MustRegister(reg, capture.EntityType[Tag]{
		Properties: func(g Tag) map[string]any { return map[string]any{"Label": g.Label} },
	})
	capture.MustRegister(reg, capture.EntityType[Account]{
		Properties: func(a Account) map[string]any { return map[string]any{"ID": a.ID} },
	})

	accountID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name   string
		entity any
		want   string
	}{
		{name: "Id property", entity: Product{Id: 42}, want: "42"},
		{name: "type-prefixed Id", entity: Invoice{InvoiceId: "INV-1"}, want: "INV-1"},
		{name: "ID stringer", entity: Account{ID: accountID}, want: accountID.String()},
		{name: "pointer value", entity: &Product{Id: 7}, want: "7"},
		{name: "no key convention", entity: Tag{Label: "x"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := reg.Lookup(tt.entity)
			if !ok {
				t.Fatalf("Lookup(%T) not found", tt.entity)
			}

			if got := d.EntityID(tt.entity); got != tt.want {
				t.Errorf("EntityID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistry_CompositeKey(t *testing.T) {
	reg := newRegistry(t)

	d, ok := reg.Lookup(OrderLine{OrderID: 10, LineNo: 3})
	if !ok {
		t.Fatal("OrderLine not registered")
	}

	if got := d.EntityID(OrderLine{OrderID: 10, LineNo: 3}); got != "10_3" {
		t.Errorf("EntityID = %q, want 10_3", got)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	reg := newRegistry(t)

	err := capture.Register(reg, capture.EntityType[Product]{Properties: productProps})
	if !errors.Is(err, capture.ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity, got %v", err)
	}

	err = capture.Register(reg, capture.EntityType[Tag]{
		Name:       "Product",
		Properties: func(Tag) map[string]any { return nil },
	})
	if !errors.Is(err, capture.ErrDuplicateEntity) {
		t.Fatalf("expected ErrDuplicateEntity for name clash, got %v", err)
	}
}

func TestRegistry_MissingProperties(t *testing.T) {
	reg := capture.NewRegistry(testLogger())
	if err := capture.Register(reg, capture.EntityType[Tag]{}); err == nil {
		t.Fatal("expected error for missing properties function")
	}
}

func TestRegistry_Rows(t *testing.T) {
	reg := capture.NewRegistry(testLogger())

	tests := []struct {
		name     string
		row      capture.Row
		wantName string
		wantID   string
	}{
		{
			name:     "plural table with id",
			row:      capture.Row{Table: "users", Values: map[string]any{"id": 5, "email": "a@b.c"}},
			wantName: "User",
			wantID:   "5",
		},
		{
			name:     "schema-qualified snake table with singular key",
			row:      capture.Row{Table: "public.order_items", Values: map[string]any{"order_item_id": "oi-9"}},
			wantName: "OrderItem",
			wantID:   "oi-9",
		},
		{
			name:     "no key",
			row:      capture.Row{Table: "events", Values: map[string]any{"kind": "x"}},
			wantName: "Event",
			wantID:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := reg.Lookup(tt.row)
			if !ok {
				t.Fatal("rows are always resolvable")
			}

			if d.Name() != tt.wantName {
				t.Errorf("Name = %q, want %q", d.Name(), tt.wantName)
			}

			if got := d.EntityID(&tt.row); got != tt.wantID {
				t.Errorf("EntityID = %q, want %q", got, tt.wantID)
			}
		})
	}
}

func TestRegistry_ResolveUnregistered(t *testing.T) {
	reg := capture.NewRegistry(testLogger())

	type Widget struct {
		ID   int
		Name string
	}

	if _, ok := reg.Lookup(Widget{}); ok {
		t.Fatal("Widget should not be registered")
	}

	d := reg.Resolve(&Widget{ID: 3, Name: "w"})
	if d.Name() != "Widget" {
		t.Errorf("Name = %q, want Widget", d.Name())
	}

	if got := d.EntityID(&Widget{ID: 3}); got != "3" {
		t.Errorf("EntityID = %q, want 3", got)
	}

	if props := d.Properties(Widget{Name: "w"}); props["Name"] != "w" {
		t.Errorf("Properties = %v", props)
	}
}
