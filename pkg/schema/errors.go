package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFieldMissing is returned by a required (non-Option) field's
// accessor when the edge or atom payload backing it is absent —
// typically because the graph was mutated out from under an entity
// reference after it was bound. Hand-written Get functions translate
// this into "entity not found" for the whole entity.
var ErrFieldMissing = errors.New("schema: required field missing")

// SchemaError reports structural validation failures for an entity
// type, collected across every field before failing so a single
// TryRegister call surfaces every problem at once.
type SchemaError struct {
	Struct string
	Issues []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Struct, strings.Join(e.Issues, "; "))
}
