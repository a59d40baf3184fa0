package cli

import (
	"reflect"
	"strings"
	"unicode"
)

// anyType is interface{}'s reflect.Type, used for every synthesized field -
// the concrete JSON-decoded value (string, float64, bool, map, slice, nil)
// flows through untouched, and the engine's flattener already switches on
// the concrete kind once unboxed (§4.7 step 2c).
var anyType = reflect.TypeOf((*any)(nil)).Elem()

// buildDynamicInstance synthesizes a pointer to an anonymous struct with one
// field per key in fields, so `objstore put` can hand the engine a graph
// root without a precompiled Go type for the caller's class.
//
// This is the CLI's only consumer of runtime type synthesis; library
// callers register real Go types via [objectstore.TypeRegistry.Register]
// and never need this.
func buildDynamicInstance(fields map[string]any) any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	seen := make(map[string]bool, len(keys))
	structFields := make([]reflect.StructField, 0, len(keys))

	for i, k := range keys {
		name := sanitizeIdent(k, i)
		for seen[name] {
			name += "_"
		}

		seen[name] = true

		structFields = append(structFields, reflect.StructField{
			Name: name,
			Type: anyType,
			Tag:  reflect.StructTag(`objstore:"` + k + `"`),
		})
	}

	t := reflect.StructOf(structFields)
	v := reflect.New(t)

	for i, k := range keys {
		if fields[k] == nil {
			continue // leave the interface{} field at its nil zero value
		}

		v.Elem().Field(i).Set(reflect.ValueOf(fields[k]))
	}

	return v.Interface()
}

// sanitizeIdent turns an arbitrary JSON key into a valid exported Go field
// identifier, falling back to a positional name if nothing survives.
func sanitizeIdent(key string, idx int) string {
	var b strings.Builder

	for i, r := range key {
		switch {
		case unicode.IsLetter(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsDigit(r) && i > 0:
			b.WriteRune(r)
		}
	}

	name := b.String()
	if name == "" {
		return "Field" + string(rune('A'+idx%26))
	}

	return strings.ToUpper(name[:1]) + name[1:]
}
