package capture

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/persistorai/auditrail/internal/models"
)

// SerializeDiff renders the old and new value maps of m for action. Create
// carries only new values and Delete only old values. Update and SoftDelete
// carry the modified, non-excluded properties on both sides. Objects are
// encoded with sorted keys so equal diffs produce equal bytes.
func SerializeDiff(m PendingMutation, action models.Action, ex Exclusions) (oldValues, newValues json.RawMessage, err error) {
	switch action {
	case models.ActionCreate:
		newValues, err = encodeProperties(m.Current, nil, ex)
		if err != nil {
			return nil, nil, fmt.Errorf("serializing new values: %w", err)
		}

		return nil, newValues, nil

	case models.ActionDelete:
		oldValues, err = encodeProperties(m.Original, nil, ex)
		if err != nil {
			return nil, nil, fmt.Errorf("serializing old values: %w", err)
		}

		return oldValues, nil, nil

	case models.ActionUpdate, models.ActionSoftDelete:
		oldValues, err = encodeProperties(m.Original, m.Modified, ex)
		if err != nil {
			return nil, nil, fmt.Errorf("serializing old values: %w", err)
		}

		newValues, err = encodeProperties(m.Current, m.Modified, ex)
		if err != nil {
			return nil, nil, fmt.Errorf("serializing new values: %w", err)
		}

		return oldValues, newValues, nil

	default:
		return nil, nil, fmt.Errorf("serializing diff: unsupported action %q", action)
	}
}

// EncodeValues serializes a full property map in portable form.
func EncodeValues(props map[string]any, ex Exclusions) (json.RawMessage, error) {
	return encodeProperties(props, nil, ex)
}

// encodeProperties encodes props, restricted to only when only is non-nil.
func encodeProperties(props map[string]any, only []string, ex Exclusions) (json.RawMessage, error) {
	out := make(map[string]any, len(props))

	if only == nil {
		for k, v := range props {
			if !ex.PropertyExcluded(k) {
				out[k] = portable(v)
			}
		}
	} else {
		for _, k := range only {
			if ex.PropertyExcluded(k) {
				continue
			}

			// A property absent on one side is recorded as null.
			out[k] = portable(props[k])
		}
	}

	// encoding/json sorts map keys.
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// portable converts v into a value whose JSON form survives a round trip:
// times become RFC 3339 UTC strings, Stringers become strings, non-finite
// floats become "NaN", "Infinity" or "-Infinity", and pointers are dereferenced.
func portable(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		return portableFloat(x)
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return portableFloat(f)
		}

		return x
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, []byte, json.Number:
		return x
	case json.RawMessage:
		if len(bytes.TrimSpace(x)) == 0 {
			return nil
		}

		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return nil
		}

		return x.UTC().Format(time.RFC3339Nano)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = portable(e)
		}

		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = portable(e)
		}

		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}

		return portable(rv.Elem().Interface())
	}

	t := rv.Type()
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return v
	}

	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}

	return v
}

func portableFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	return f
}

// ModifiedProperties returns the sorted names of properties whose encoded
// values differ between original and current, including added and removed
// properties.
func ModifiedProperties(original, current map[string]any) []string {
	seen := make(map[string]struct{}, len(current))
	changed := make([]string, 0)

	for k, cur := range current {
		seen[k] = struct{}{}

		old, ok := original[k]
		if !ok || !sameValue(old, cur) {
			changed = append(changed, k)
		}
	}

	for k := range original {
		if _, ok := seen[k]; !ok {
			changed = append(changed, k)
		}
	}

	sort.Strings(changed)

	return changed
}

func sameValue(a, b any) bool {
	ab, errA := json.Marshal(portable(a))
	bb, errB := json.Marshal(portable(b))

	if errA != nil || errB != nil {
		return false
	}

	return bytes.Equal(ab, bb)
}
