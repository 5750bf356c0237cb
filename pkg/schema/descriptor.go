package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/dan-solli/lwwgraph/pkg/id"
	"github.com/dan-solli/lwwgraph/pkg/label"
)

// FieldDescriptor is one struct field's compiled shape: its kind, and
// the label it's addressed by on the wire (its own label for every
// kind except Backlinks, which carries the label of the forward field
// it inverts).
type FieldDescriptor struct {
	GoName string
	Kind   FieldKind
	Label  label.Label
}

// Descriptor is an entity type's compiled schema: its own node label
// plus every field's descriptor, derived once by TryRegister and cached
// for every later call.
type Descriptor struct {
	Name   string
	Label  label.Label
	Fields []FieldDescriptor

	byGoName map[string]FieldDescriptor
}

// FieldLabel returns the compiled label for the named Go field. It
// panics if goName was not a validated field of this descriptor — a
// programmer error, not a runtime condition.
func (d *Descriptor) FieldLabel(goName string) label.Label {
	fd, ok := d.byGoName[goName]
	if !ok {
		panic(fmt.Sprintf("schema: %s has no field %q", d.Name, goName))
	}
	return fd.Label
}

var (
	registryMu sync.RWMutex
	registry   = map[reflect.Type]*Descriptor{}
)

var (
	markerType = reflect.TypeOf((*fieldMarker)(nil)).Elem()
	idType     = reflect.TypeOf(id.Id{})
)

// TryRegister validates T's struct shape against the structural rules
// every entity must satisfy (named struct, no anonymous/embedded
// fields, no field named "id", every field one of the six view kinds,
// every Backlinks field tagged with the field it inverts) and compiles
// its Descriptor. The result is cached: repeated calls for the same T
// are free after the first.
func TryRegister[T any]() (*Descriptor, error) {
	var zero T
	t := reflect.TypeOf(zero)

	if t == nil || t.Kind() != reflect.Struct {
		return nil, &SchemaError{Struct: fmt.Sprintf("%T", zero), Issues: []string{"entity type must be a named struct"}}
	}
	if t.Name() == "" {
		return nil, &SchemaError{Struct: t.String(), Issues: []string{"entity type must be a named struct, not an anonymous one"}}
	}
	if strings.ContainsRune(t.Name(), '[') {
		return nil, &SchemaError{Struct: t.Name(), Issues: []string{"generic entity types are not supported"}}
	}

	registryMu.RLock()
	if d, ok := registry[t]; ok {
		registryMu.RUnlock()
		return d, nil
	}
	registryMu.RUnlock()

	structName := t.Name()
	var issues []string
	var fields []FieldDescriptor

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type == idType {
			continue
		}
		if f.Anonymous {
			issues = append(issues, fmt.Sprintf("field %s: embedded fields are not supported", f.Name))
			continue
		}
		if !f.IsExported() {
			continue
		}

		snake := camelToSnake(f.Name)
		if snake == "id" {
			issues = append(issues, fmt.Sprintf(`field %s: field name "id" is reserved for the entity's implicit identity`, f.Name))
			continue
		}

		if !f.Type.Implements(markerType) {
			issues = append(issues, fmt.Sprintf("field %s: type %s is not Atom/AtomOption/Link/LinkOption/Multilinks/Backlinks", f.Name, f.Type))
			continue
		}
		marker := reflect.New(f.Type).Elem().Interface().(fieldMarker)
		kind := marker.fieldKind()

		var lbl label.Label
		if kind == KindBacklinks {
			tag, ok := f.Tag.Lookup("backlink")
			if !ok || tag == "" {
				issues = append(issues, fmt.Sprintf(`field %s: Backlinks requires a backlink:"Struct.field" tag`, f.Name))
				continue
			}
			lbl = label.Hash(tag)
		} else {
			lbl = label.Hash(label.FieldName(structName, snake))
		}

		fields = append(fields, FieldDescriptor{GoName: f.Name, Kind: kind, Label: lbl})
	}

	if len(issues) > 0 {
		return nil, &SchemaError{Struct: structName, Issues: issues}
	}

	d := &Descriptor{
		Name:     structName,
		Label:    label.Hash(structName),
		Fields:   fields,
		byGoName: make(map[string]FieldDescriptor, len(fields)),
	}
	for _, fd := range fields {
		d.byGoName[fd.GoName] = fd
	}

	registryMu.Lock()
	registry[t] = d
	registryMu.Unlock()
	return d, nil
}

// MustRegister is TryRegister, panicking on a SchemaError. Entity
// packages call it from an init or a package-level var so a malformed
// schema fails at process start rather than at first use.
func MustRegister[T any]() *Descriptor {
	d, err := TryRegister[T]()
	if err != nil {
		panic(err)
	}
	return d
}

func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
