package capture_test

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/persistorai/auditrail/internal/capture"
	"github.com/persistorai/auditrail/internal/models"
)

func decodeKeys(t *testing.T, raw json.RawMessage) []string {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decoding %s: %v", raw, err)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func TestSerializeDiff(t *testing.T) {
	ex := capture.NewExclusions(capture.Options{ExcludedProperties: []string{"Password"}})
	original := map[string]any{"Name": "a", "Price": 1.5, "Password": "old"}
	current := map[string]any{"Name": "a", "Price": 2.5, "Password": "new"}

	tests := []struct {
		name    string
		action  models.Action
		mod     []string
		wantOld []string
		wantNew []string
	}{
		{name: "create", action: models.ActionCreate, wantNew: []string{"Name", "Price"}},
		{name: "delete", action: models.ActionDelete, wantOld: []string{"Name", "Price"}},
		{name: "update", action: models.ActionUpdate, mod: []string{"Price", "Password"}, wantOld: []string{"Price"}, wantNew: []string{"Price"}},
		{name: "soft delete", action: models.ActionSoftDelete, mod: []string{"Name"}, wantOld: []string{"Name"}, wantNew: []string{"Name"}},
		{name: "update of excluded only", action: models.ActionUpdate, mod: []string{"Password"}, wantOld: []string{}, wantNew: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := capture.PendingMutation{Original: original, Current: current, Modified: tt.mod}

			oldValues, newValues, err := capture.SerializeDiff(m, tt.action, ex)
			if err != nil {
				t.Fatalf("SerializeDiff: %v", err)
			}

			if tt.wantOld == nil {
				if oldValues != nil {
					t.Errorf("OldValues = %s, want absent", oldValues)
				}
			} else if got := decodeKeys(t, oldValues); !reflect.DeepEqual(got, tt.wantOld) {
				t.Errorf("OldValues keys = %v, want %v", got, tt.wantOld)
			}

			if tt.wantNew == nil {
				if newValues != nil {
					t.Errorf("NewValues = %s, want absent", newValues)
				}
			} else if got := decodeKeys(t, newValues); !reflect.DeepEqual(got, tt.wantNew) {
				t.Errorf("NewValues keys = %v, want %v", got, tt.wantNew)
			}
		})
	}
}

func TestSerializeDiff_UnsupportedAction(t *testing.T) {
	_, _, err := capture.SerializeDiff(capture.PendingMutation{}, models.Action("Purge"), capture.Exclusions{})
	if err == nil {
		t.Fatal("expected error for unsupported action")
	}
}

func TestSerializeDiff_PortableValues(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2024, 3, 1, 12, 30, 0, 500, loc)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	var nilTime *time.Time
	price := 9.99

	m := capture.PendingMutation{Current: map[string]any{
		"At":      at,
		"Deleted": nilTime,
		"ID":      id,
		"Price":   &price,
		"Raw":     []byte("hi"),
		"Zeta":    true,
	}}

	_, newValues, err := capture.SerializeDiff(m, models.ActionCreate, capture.Exclusions{})
	if err != nil {
		t.Fatalf("SerializeDiff: %v", err)
	}

	want := `{"At":"2024-03-01T10:30:00.0000005Z","Deleted":null,"ID":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","Price":9.99,"Raw":"aGk=","Zeta":true}`
	if string(newValues) != want {
		t.Errorf("NewValues =\n%s\nwant\n%s", newValues, want)
	}
}

func TestSerializeDiff_NonFiniteFloats(t *testing.T) {
	m := capture.PendingMutation{Current: map[string]any{
		"Inf":    math.Inf(1),
		"NaN":    math.NaN(),
		"NegInf": float32(math.Inf(-1)),
		"Price":  float32(2.5),
	}}

	_, newValues, err := capture.SerializeDiff(m, models.ActionCreate, capture.Exclusions{})
	if err != nil {
		t.Fatalf("SerializeDiff: %v", err)
	}

	want := `{"Inf":"Infinity","NaN":"NaN","NegInf":"-Infinity","Price":2.5}`
	if string(newValues) != want {
		t.Errorf("NewValues = %s, want %s", newValues, want)
	}

	original := map[string]any{"Score": math.NaN(), "Rate": 1.0}
	current := map[string]any{"Score": math.NaN(), "Rate": math.Inf(1)}
	if got := capture.ModifiedProperties(original, current); !reflect.DeepEqual(got, []string{"Rate"}) {
		t.Errorf("ModifiedProperties = %v, want [Rate]", got)
	}
}

func TestSerializeDiff_Deterministic(t *testing.T) {
	m := capture.PendingMutation{Current: map[string]any{"b": 1, "a": 2, "c": map[string]any{"y": 1, "x": 2}}}

	first, _, err := capture.SerializeDiff(m, models.ActionCreate, capture.Exclusions{})
	if err != nil {
		t.Fatal(err)
	}

	for range 20 {
		_, again, err := capture.SerializeDiff(m, models.ActionCreate, capture.Exclusions{})
		if err != nil {
			t.Fatal(err)
		}

		if string(again) != string(first) {
			t.Fatalf("non-deterministic output: %s vs %s", again, first)
		}
	}

	if string(first) != `{"a":2,"b":1,"c":{"x":2,"y":1}}` {
		t.Errorf("got %s", first)
	}
}

func TestModifiedProperties(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got := capture.ModifiedProperties(
		map[string]any{"Name": "a", "Price": 1.0, "At": at, "Gone": 1},
		map[string]any{"Name": "a", "Price": 2.0, "At": at.In(time.FixedZone("X", 3600)), "New": true},
	)

	want := []string{"Gone", "New", "Price"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ModifiedProperties = %v, want %v", got, want)
	}
}
