package objectstore

import (
	"fmt"
	"reflect"
	"strings"
)

// structTag is the struct tag key used to override a field's serialized
// name, mirroring encoding/json's `json:"name"` convention.
const structTag = "objstore"

// Reflector is the capability interface for reading and writing an
// instance's fields without the caller needing reflection of its own (§9:
// "runtime reflection -> explicit field walk via a capability interface").
//
// The default implementation walks exported struct fields via [reflect] and
// honors the `objstore:"name"` tag; a host can swap in a generated
// descriptor table instead.
type Reflector interface {
	// FieldNames returns the serializable field names of t, in struct
	// declaration order.
	FieldNames(t reflect.Type) []string

	// Get returns the named field's value from instance.
	Get(instance any, name string) (any, error)

	// Set assigns value to the named field on instance.
	Set(instance any, name string, value any) error
}

// UUIDAware lets an object carry its own identity instead of having one
// assigned during flattening.
type UUIDAware interface {
	GetUUID() (string, bool)
	SetUUID(string)
}

// PreSerialize is an opt-in lifecycle hook invoked before a node is
// serialized during flattening (the `__sleep` hook in §9).
type PreSerialize interface {
	PreSerialize()
}

// PostDeserialize is an opt-in lifecycle hook invoked after a node's fields
// are populated during rehydration (the `__wakeup` hook in §9).
type PostDeserialize interface {
	PostDeserialize()
}

// StructReflector is the default [Reflector]: it walks exported fields of a
// struct (addressed through a pointer) via [reflect].
type StructReflector struct{}

// NewStructReflector returns the default struct-tag based reflector.
func NewStructReflector() StructReflector { return StructReflector{} }

func elemType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t
}

func fieldName(f reflect.StructField) (string, bool) {
	if f.PkgPath != "" { // unexported
		return "", false
	}

	tag := f.Tag.Get(structTag)
	if tag == "-" {
		return "", false
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}

	return name, true
}

// FieldNames returns t's exported field names (or their objstore tag
// override), in declaration order.
func (StructReflector) FieldNames(t reflect.Type) []string {
	t = elemType(t)
	if t.Kind() != reflect.Struct {
		return nil
	}

	names := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		if name, ok := fieldName(t.Field(i)); ok {
			names = append(names, name)
		}
	}

	return names
}

func structValue(instance any) (reflect.Value, error) {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("objectstore: instance must be a non-nil pointer, got %T", instance)
	}

	return v.Elem(), nil
}

func findField(sv reflect.Value, name string) (reflect.Value, bool) {
	t := sv.Type()

	for i := 0; i < t.NumField(); i++ {
		fname, ok := fieldName(t.Field(i))
		if ok && fname == name {
			return sv.Field(i), true
		}
	}

	return reflect.Value{}, false
}

// Get returns the named field's value.
func (StructReflector) Get(instance any, name string) (any, error) {
	sv, err := structValue(instance)
	if err != nil {
		return nil, err
	}

	fv, ok := findField(sv, name)
	if !ok {
		return nil, fmt.Errorf("objectstore: no such field %q on %T", name, instance)
	}

	return fv.Interface(), nil
}

// Set assigns value to the named field.
func (StructReflector) Set(instance any, name string, value any) error {
	sv, err := structValue(instance)
	if err != nil {
		return err
	}

	fv, ok := findField(sv, name)
	if !ok {
		return fmt.Errorf("objectstore: no such field %q on %T", name, instance)
	}

	if !fv.CanSet() {
		return fmt.Errorf("objectstore: field %q on %T is not settable", name, instance)
	}

	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	converted, err := convertValue(value, fv.Type())
	if err != nil {
		return fmt.Errorf("objectstore: cannot assign %T to field %q of type %s: %w", value, name, fv.Type(), err)
	}

	fv.Set(converted)

	return nil
}

// convertValue converts a decoded value (as produced by [rehydrator] - bare
// scalars, []any, and map[string]any for collections) into target, walking
// into slice and map elements so a concrete field type like []string or
// map[string]*User round-trips even though the rehydrator only ever hands
// back the generic JSON-shaped containers.
func convertValue(value any, target reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(value)

	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}

	switch {
	case target.Kind() == reflect.Slice && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array):
		out := reflect.MakeSlice(target, rv.Len(), rv.Len())

		for i := 0; i < rv.Len(); i++ {
			elem, err := convertValue(rv.Index(i).Interface(), target.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}

			out.Index(i).Set(elem)
		}

		return out, nil

	case target.Kind() == reflect.Map && rv.Kind() == reflect.Map:
		out := reflect.MakeMapWithSize(target, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			key, err := convertValue(iter.Key().Interface(), target.Key())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key().Interface(), err)
			}

			elem, err := convertValue(iter.Value().Interface(), target.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("value for key %v: %w", iter.Key().Interface(), err)
			}

			out.SetMapIndex(key, elem)
		}

		return out, nil

	default:
		return reflect.Value{}, fmt.Errorf("no conversion from %s to %s", rv.Type(), target)
	}
}
