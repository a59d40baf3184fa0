package objectstore

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeRegistry maps class names (as seen by the caller, §3 "class") to Go
// types, standing in for the source system's dynamic class loading (§9
// "Runtime reflection -> explicit field walk via a capability interface").
//
// A class must be registered before it can be loaded as its Go type (so the
// rehydrator can allocate an instance without invoking a constructor, per
// §4.8 step 4). An unregistered type can still be stored, under its bare Go
// type name (see [TypeRegistry.ClassNameOf]), and loads back as a
// [Placeholder].
type TypeRegistry struct {
	mu        sync.RWMutex
	byName    map[string]reflect.Type
	byType    map[reflect.Type]string
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// Register associates className with the type of zero, which must be a
// pointer to a struct (e.g. `(*User)(nil)`). Registering the same class name
// twice overwrites the previous association.
func (r *TypeRegistry) Register(className string, zero any) {
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byName[className] = t
	r.byType[t] = className
}

// ClassNameOf returns the registered class name for instance's type, or its
// bare Go type name if it was never registered (so ad hoc types can still be
// stored, just without rename-map support).
func (r *TypeRegistry) ClassNameOf(instance any) string {
	t := reflect.TypeOf(instance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.byType[t]; ok {
		return name
	}

	return t.Name()
}

// New allocates a zero-valued, uninitialised instance of className without
// invoking any constructor (§4.8 step 4 "bypass constructor invocation").
// Returns false if className isn't registered.
func (r *TypeRegistry) New(className string) (any, bool) {
	r.mu.RLock()
	t, ok := r.byName[className]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return reflect.New(t).Interface(), true
}

// Instantiate allocates className via the registry, or - if className is
// unknown and not resolved by classMap - returns a [Placeholder] carrying
// the stored class name for later resurrection (§4.8 "Unknown class").
func (r *TypeRegistry) Instantiate(storedClass string, classMap ClassMap) (any, string, bool) {
	resolved := classMap.Resolve(storedClass)

	if inst, ok := r.New(resolved); ok {
		return inst, resolved, true
	}

	return &Placeholder{Class: storedClass}, storedClass, false
}

func (r *TypeRegistry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return fmt.Sprintf("TypeRegistry(%d classes)", len(r.byName))
}
