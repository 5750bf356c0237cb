// Package schema is the reflection-driven schema compiler: it derives
// per-field labels from a Go struct's shape, validates that shape
// against the rules every entity must satisfy, and provides the six
// generic field views (Atom, AtomOption, Link, LinkOption, Multilinks,
// Backlinks) hand-written entity constructors and getters are built
// from.
//
// There is no macro layer: reflect.Type exposes no way to recover a
// generic type's own type arguments (Atom[string]'s string is
// invisible to reflection), so a field's value type can't be derived
// generically at TryRegister time. TryRegister therefore only compiles
// structure — field kind, name, label — and entity packages supply
// their own Create/Get functions, written the way a code generator
// would emit them, wiring those labels to Write*/Bind* calls typed by
// hand.
package schema
