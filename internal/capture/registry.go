// Package capture turns the tracked changes of one save operation into audit
// entries: it reads entity snapshots, classifies each mutation, serializes a
// minimal diff, and holds the result until the business commit settles.
package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateEntity is returned when a type or entity name is registered twice.
var ErrDuplicateEntity = errors.New("entity already registered")

// EntityType describes how to audit values of type T.
type EntityType[T any] struct {
	// Name is the recorded entity name. Defaults to the Go type name.
	Name string

	// Properties enumerates the auditable properties of a value. Required.
	Properties func(T) map[string]any

	// Key extracts the key parts of a value. Multiple parts form a composite
	// key joined with "_". When nil, the Id, {Name}Id and ID properties are tried.
	Key func(T) []any
}

// Descriptor is the resolved, type-erased form of an EntityType.
type Descriptor struct {
	name        string
	properties  func(any) map[string]any
	key         func(any) []any
	conventions []string
}

// Name returns the recorded entity name.
func (d *Descriptor) Name() string { return d.name }

// Properties returns the current property values of v.
func (d *Descriptor) Properties(v any) map[string]any {
	props := d.properties(v)
	if props == nil {
		return map[string]any{}
	}

	return props
}

// EntityID returns the stringified key of v, or "" when no key is found.
func (d *Descriptor) EntityID(v any) string {
	if d.key != nil {
		return joinKey(d.key(v))
	}

	return d.conventionalID(d.Properties(v))
}

func (d *Descriptor) conventionalID(props map[string]any) string {
	for _, name := range d.conventions {
		if v, ok := props[name]; ok && v != nil {
			return formatKey(v)
		}
	}

	return ""
}

// Registry maps Go types to entity descriptors. Register every type at
// startup; lookups afterwards are read-only and safe for concurrent use.
type Registry struct {
	log   *logrus.Logger
	types map[reflect.Type]*Descriptor
	names map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry(log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Registry{
		log:   log,
		types: make(map[reflect.Type]*Descriptor),
		names: make(map[string]struct{}),
	}
}

// Register adds T (and *T) to the registry.
func Register[T any](r *Registry, et EntityType[T]) error {
	typ := reflect.TypeFor[T]()
	if et.Properties == nil {
		return fmt.Errorf("registering %s: properties function is required", typ)
	}

	name := et.Name
	if name == "" {
		name = typ.Name()
	}

	if name == "" {
		return fmt.Errorf("registering %s: entity name is required for unnamed types", typ)
	}

	if _, ok := r.types[typ]; ok {
		return fmt.Errorf("registering %s: %w", typ, ErrDuplicateEntity)
	}

	if _, ok := r.names[name]; ok {
		return fmt.Errorf("registering %s as %q: %w", typ, name, ErrDuplicateEntity)
	}

	d := &Descriptor{
		name: name,
		properties: func(v any) map[string]any {
			t, ok := asValue[T](v)
			if !ok {
				return nil
			}

			return et.Properties(t)
		},
		conventions: []string{"Id", name + "Id", "ID"},
	}

	if et.Key != nil {
		d.key = func(v any) []any {
			t, ok := asValue[T](v)
			if !ok {
				return nil
			}

			return et.Key(t)
		}
	}

	r.types[typ] = d
	r.types[reflect.PointerTo(typ)] = d
	r.names[name] = struct{}{}

	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](r *Registry, et EntityType[T]) {
	if err := Register(r, et); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor of a registered value or row.
func (r *Registry) Lookup(v any) (*Descriptor, bool) {
	switch row := v.(type) {
	case Row:
		return rowDescriptor(row.Table), true
	case *Row:
		if row == nil {
			return nil, false
		}

		return rowDescriptor(row.Table), true
	}

	if v == nil {
		return nil, false
	}

	d, ok := r.types[reflect.TypeOf(v)]

	return d, ok
}

// Resolve returns the descriptor of v, falling back to a descriptor built from
// the JSON encoding of v for unregistered types.
func (r *Registry) Resolve(v any) *Descriptor {
	if d, ok := r.Lookup(v); ok {
		return d
	}

	name := typeName(v)

	return &Descriptor{
		name:        name,
		properties:  jsonProperties,
		conventions: []string{"Id", name + "Id", "ID", "id"},
	}
}

func asValue[T any](v any) (T, bool) {
	switch x := v.(type) {
	case T:
		return x, true
	case *T:
		if x != nil {
			return *x, true
		}
	}

	var zero T

	return zero, false
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Name() == "" {
		return fmt.Sprintf("%T", v)
	}

	return t.Name()
}

func jsonProperties(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	var props map[string]any
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil
	}

	return props
}

// Row is an untyped entity such as a database row: a table name and its
// column values.
type Row struct {
	Table  string
	Values map[string]any
}

// rowDescriptor names a row entity after its singular table name, so rows of
// "order_items" are recorded as "OrderItem" with key "id" or "order_item_id".
func rowDescriptor(table string) *Descriptor {
	singular := inflection.Singular(baseTableName(table))

	return &Descriptor{
		name: toCamel(singular),
		properties: func(v any) map[string]any {
			switch row := v.(type) {
			case Row:
				return row.Values
			case *Row:
				return row.Values
			}

			return nil
		},
		conventions: []string{"id", singular + "_id"},
	}
}

func baseTableName(table string) string {
	table = strings.TrimSpace(table)
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}

	return strings.Trim(table, `"`)
}

func toCamel(s string) string {
	var b strings.Builder

	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}

		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}

		b.WriteRune(r)
	}

	return b.String()
}

func joinKey(parts []any) string {
	if len(parts) == 0 {
		return ""
	}

	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = formatKey(p)
	}

	return strings.Join(strs, "_")
}

func formatKey(v any) string {
	switch p := portable(v).(type) {
	case nil:
		return ""
	case string:
		return p
	default:
		return fmt.Sprint(p)
	}
}
