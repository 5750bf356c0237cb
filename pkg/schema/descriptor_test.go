package schema

import (
	"strings"
	"testing"

	"github.com/dan-solli/lwwgraph/pkg/id"
)

type validPerson struct {
	ID   id.Id
	Name Atom[string]
	Age  AtomOption[int]
}

func TestRegisterValidStruct(t *testing.T) {
	d, err := TryRegister[validPerson]()
	if err != nil {
		t.Fatalf("TryRegister: %v", err)
	}
	if d.Name != "validPerson" {
		t.Errorf("Name = %q, want %q", d.Name, "validPerson")
	}
	if len(d.Fields) != 2 {
		t.Fatalf("Fields = %+v, want 2 entries", d.Fields)
	}
	if d.FieldLabel("Name") == 0 {
		t.Errorf("Name field label is zero")
	}
	if d.FieldLabel("Name") == d.FieldLabel("Age") {
		t.Errorf("distinct fields hashed to the same label")
	}
}

func TestRegisterIsCached(t *testing.T) {
	d1, err := TryRegister[validPerson]()
	if err != nil {
		t.Fatalf("TryRegister: %v", err)
	}
	d2, err := TryRegister[validPerson]()
	if err != nil {
		t.Fatalf("TryRegister: %v", err)
	}
	if d1 != d2 {
		t.Errorf("TryRegister returned different *Descriptor values for the same type")
	}
}

type hasPlainField struct {
	ID     id.Id
	Name   Atom[string]
	Orphan string
}

func TestRegisterRejectsUnsupportedFieldType(t *testing.T) {
	_, err := TryRegister[hasPlainField]()
	if err == nil {
		t.Fatal("expected an error for a non-view field")
	}
	if !strings.Contains(err.Error(), "Orphan") {
		t.Errorf("error %q does not name the offending field", err.Error())
	}
}

type hasReservedIDField struct {
	ID id.Id
	Id Atom[string]
}

func TestRegisterRejectsReservedIdFieldName(t *testing.T) {
	_, err := TryRegister[hasReservedIDField]()
	if err == nil {
		t.Fatal("expected an error for a field whose snake name is \"id\"")
	}
	if !strings.Contains(err.Error(), "reserved") {
		t.Errorf("error %q does not mention the reserved name", err.Error())
	}
}

type embedsAnother struct {
	ID id.Id
	hasReservedIDField
}

func TestRegisterRejectsAnonymousField(t *testing.T) {
	_, err := TryRegister[embedsAnother]()
	if err == nil {
		t.Fatal("expected an error for an embedded field")
	}
	if !strings.Contains(err.Error(), "embedded") {
		t.Errorf("error %q does not mention embedding", err.Error())
	}
}

type missingBacklinkTag struct {
	ID      id.Id
	Friends Backlinks[validPerson]
}

func TestRegisterRejectsUntaggedBacklinks(t *testing.T) {
	_, err := TryRegister[missingBacklinkTag]()
	if err == nil {
		t.Fatal("expected an error for an untagged Backlinks field")
	}
	if !strings.Contains(err.Error(), "backlink") {
		t.Errorf("error %q does not mention the backlink tag", err.Error())
	}
}

type taggedBacklinks struct {
	ID      id.Id
	Friends Backlinks[validPerson] `backlink:"validPerson.friend"`
}

func TestRegisterAcceptsTaggedBacklinks(t *testing.T) {
	d, err := TryRegister[taggedBacklinks]()
	if err != nil {
		t.Fatalf("TryRegister: %v", err)
	}
	if d.FieldLabel("Friends") == 0 {
		t.Errorf("Friends field label is zero")
	}
}

func TestRegisterRejectsGenericEntity(t *testing.T) {
	type genericEntity[T any] struct {
		ID   id.Id
		Name Atom[string]
	}
	_, err := TryRegister[genericEntity[int]]()
	if err == nil {
		t.Fatal("expected an error for a generic entity type")
	}
}

func TestCamelToSnake(t *testing.T) {
	cases := map[string]string{
		"Name":      "name",
		"FirstName": "first_name",
		"ID":        "i_d",
		"a":         "a",
	}
	for in, want := range cases {
		if got := camelToSnake(in); got != want {
			t.Errorf("camelToSnake(%q) = %q, want %q", in, got, want)
		}
	}
}
