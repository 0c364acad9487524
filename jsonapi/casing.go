package jsonapi

import (
	"fmt"
	"strings"
	"unicode"
)

// CamelToSnake converts a camelCase wire name to its snake_case internal
// form. Every upper-case rune becomes an underscore plus the lower-case
// rune, so the conversion inverts cleanly with SnakeToCamel.
func CamelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SnakeToCamel converts a snake_case internal name back to its camelCase
// wire form. Inverse of CamelToSnake for names produced by it.
func SnakeToCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	upper := false
	for _, r := range s {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Translator converts attribute keys between the vendor's wire casing and
// the internal casing. Known keys translate exactly in both directions;
// unknown keys pass through verbatim so no field is ever renamed blindly
// or lost.
type Translator struct {
	toInternal map[string]string
	toWire     map[string]string
}

// NewTranslator builds a Translator from wire→internal pairs. The mapping
// must be a bijection; a duplicated internal name is rejected.
func NewTranslator(wireToInternal map[string]string) (*Translator, error) {
	t := &Translator{
		toInternal: make(map[string]string, len(wireToInternal)),
		toWire:     make(map[string]string, len(wireToInternal)),
	}
	for wire, internal := range wireToInternal {
		if _, dup := t.toWire[internal]; dup {
			return nil, fmt.Errorf("jsonapi: translation target %q mapped twice", internal)
		}
		t.toInternal[wire] = internal
		t.toWire[internal] = wire
	}
	return t, nil
}

// MustTranslator is like NewTranslator but panics on an invalid mapping.
// For package-level translation tables.
func MustTranslator(wireToInternal map[string]string) *Translator {
	t, err := NewTranslator(wireToInternal)
	if err != nil {
		panic(err)
	}
	return t
}

// Internal translates a wire key to its internal form. Unknown keys are
// returned unchanged.
func (t *Translator) Internal(wire string) string {
	if v, ok := t.toInternal[wire]; ok {
		return v
	}
	return wire
}

// Wire translates an internal key back to its wire form. Unknown keys are
// returned unchanged.
func (t *Translator) Wire(internal string) string {
	if v, ok := t.toWire[internal]; ok {
		return v
	}
	return internal
}

// InternalAttributes returns a copy of attrs with known wire keys renamed
// to their internal form. Unknown keys and all values copy verbatim.
func (t *Translator) InternalAttributes(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[t.Internal(k)] = v
	}
	return out
}

// WireAttributes is the inverse of InternalAttributes.
func (t *Translator) WireAttributes(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[t.Wire(k)] = v
	}
	return out
}
