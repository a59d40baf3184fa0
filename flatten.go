package objectstore

import (
	"fmt"
	"reflect"
)

// flatNode is one entry of the ordered list produced by flattening: a
// single record ready for strategy.Serialize (§4.7).
type flatNode struct {
	UUID     string
	Class    string
	Fields   map[string]any
	Children []string
}

type queuedNode struct {
	instance any
	uuid     string
	depth    int
}

// flattener walks an in-memory object graph and produces an ordered,
// cycle-free list of records (§4.7).
type flattener struct {
	registry *TypeRegistry
	refl     Reflector
	maxDepth int
	uuidgen  *UUIDGenerator

	visited map[uintptr]string // pointer identity -> assigned uuid
}

func newFlattener(registry *TypeRegistry, refl Reflector, uuidgen *UUIDGenerator, maxDepth int) *flattener {
	return &flattener{
		registry: registry,
		refl:     refl,
		maxDepth: maxDepth,
		uuidgen:  uuidgen,
		visited:  make(map[uintptr]string),
	}
}

// flattenGraph produces the ordered node list plus the root's UUID.
func flattenGraph(root any, registry *TypeRegistry, refl Reflector, uuidgen *UUIDGenerator, maxDepth int) ([]flatNode, string, error) {
	f := newFlattener(registry, refl, uuidgen, maxDepth)

	rootUUID, err := f.identityOf(root)
	if err != nil {
		return nil, "", err
	}

	queue := []queuedNode{{instance: root, uuid: rootUUID, depth: 0}}

	var nodes []flatNode

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		node, more, err := f.processNode(item.instance, item.uuid, item.depth)
		if err != nil {
			return nil, "", err
		}

		nodes = append(nodes, node)
		queue = append(queue, more...)
	}

	return nodes, rootUUID, nil
}

// identityOf returns the stable UUID for inst, assigning one on first
// encounter (via UUIDAware, an existing v4-shaped "UUID" field, or a fresh
// generation) and recording it in the identity map (§4.7 step 2a-b).
func (f *flattener) identityOf(inst any) (string, error) {
	ptr, err := pointerIdentity(inst)
	if err != nil {
		return "", err
	}

	if uuid, ok := f.visited[ptr]; ok {
		return uuid, nil
	}

	var uuid string

	if aware, ok := inst.(UUIDAware); ok {
		if existing, ok := aware.GetUUID(); ok && ValidateUUID(existing) {
			uuid = existing
		}
	}

	if uuid == "" {
		if v, err := f.refl.Get(inst, "UUID"); err == nil {
			if s, ok := v.(string); ok && ValidateUUID(s) {
				uuid = s
			}
		}
	}

	if uuid == "" {
		generated, err := f.uuidgen.Generate()
		if err != nil {
			return "", err
		}

		uuid = generated
	}

	f.visited[ptr] = uuid

	if aware, ok := inst.(UUIDAware); ok {
		aware.SetUUID(uuid)
	}

	return uuid, nil
}

func pointerIdentity(inst any) (uintptr, error) {
	v := reflect.ValueOf(inst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return 0, fmt.Errorf("objectstore: graph nodes must be non-nil pointers, got %T", inst)
	}

	return v.Pointer(), nil
}

func (f *flattener) processNode(inst any, uuid string, depth int) (flatNode, []queuedNode, error) {
	if hook, ok := inst.(PreSerialize); ok {
		hook.PreSerialize()
	}

	className := f.registry.ClassNameOf(inst)

	fields := make(map[string]any)

	var children []string

	var more []queuedNode

	for _, name := range f.refl.FieldNames(reflect.TypeOf(inst)) {
		v, err := f.refl.Get(inst, name)
		if err != nil {
			return flatNode{}, nil, err
		}

		sv, childUUIDs, enqueue, err := f.flattenValue(v, depth)
		if err != nil {
			return flatNode{}, nil, err
		}

		fields[name] = sv
		children = append(children, childUUIDs...)
		more = append(more, enqueue...)
	}

	return flatNode{UUID: uuid, Class: className, Fields: fields, Children: dedupe(children)}, more, nil
}

// flattenValue flattens a single field value, per §4.7 step 2c.
func (f *flattener) flattenValue(v any, depth int) (any, []string, []queuedNode, error) {
	if v == nil {
		return nil, nil, nil, nil
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v, nil, nil, nil

	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())

		var children []string

		var more []queuedNode

		for i := 0; i < rv.Len(); i++ {
			sv, childUUIDs, enqueue, err := f.flattenValue(rv.Index(i).Interface(), depth)
			if err != nil {
				return nil, nil, nil, err
			}

			out[i] = sv
			children = append(children, childUUIDs...)
			more = append(more, enqueue...)
		}

		return out, children, more, nil

	case reflect.Map:
		out := make(map[string]any, rv.Len())

		var children []string

		var more []queuedNode

		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprintf("%v", iter.Key().Interface())

			sv, childUUIDs, enqueue, err := f.flattenValue(iter.Value().Interface(), depth)
			if err != nil {
				return nil, nil, nil, err
			}

			out[key] = sv
			children = append(children, childUUIDs...)
			more = append(more, enqueue...)
		}

		return out, children, more, nil

	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil, nil, nil
		}

		if rv.Elem().Kind() != reflect.Struct {
			return v, nil, nil, nil
		}

		return f.flattenObjectRef(v, depth)

	default:
		return nil, nil, nil, fmt.Errorf("objectstore: unsupported field kind %s", rv.Kind())
	}
}

// flattenObjectRef handles a pointer-to-struct field: either a reference to
// an already-visited node, a new child to enqueue, or - past max depth - an
// inline copy (§4.7 step 3).
func (f *flattener) flattenObjectRef(v any, depth int) (any, []string, []queuedNode, error) {
	ptr, err := pointerIdentity(v)
	if err != nil {
		return nil, nil, nil, err
	}

	if uuid, ok := f.visited[ptr]; ok {
		return refMarker(uuid), []string{uuid}, nil, nil
	}

	if depth+1 >= f.maxDepth {
		inlined, err := f.inlineValue(v, map[uintptr]bool{})
		if err != nil {
			return nil, nil, nil, err
		}

		return inlined, nil, nil, nil
	}

	uuid, err := f.identityOf(v)
	if err != nil {
		return nil, nil, nil, err
	}

	return refMarker(uuid), []string{uuid}, []queuedNode{{instance: v, uuid: uuid, depth: depth + 1}}, nil
}

// inlineValue serializes v's fields directly into the parent record instead
// of as a separate UUID-addressed node, once max depth is exceeded. It is
// never enqueued and never assigned a UUID of its own.
//
// inlineVisited guards against infinite recursion if a cycle is encountered
// while already past max depth; on a repeat, an empty placeholder object
// breaks the loop rather than recursing forever.
func (f *flattener) inlineValue(v any, inlineVisited map[uintptr]bool) (any, error) {
	ptr, err := pointerIdentity(v)
	if err != nil {
		return nil, err
	}

	if inlineVisited[ptr] {
		return map[string]any{"$inline": true, "class": f.registry.ClassNameOf(v)}, nil
	}

	inlineVisited[ptr] = true

	className := f.registry.ClassNameOf(v)
	fields := make(map[string]any)

	for _, name := range f.refl.FieldNames(reflect.TypeOf(v)) {
		fv, err := f.refl.Get(v, name)
		if err != nil {
			return nil, err
		}

		rv := reflect.ValueOf(fv)
		if fv != nil && rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
			nested, err := f.inlineValue(fv, inlineVisited)
			if err != nil {
				return nil, err
			}

			fields[name] = nested

			continue
		}

		fields[name] = fv
	}

	return map[string]any{"$inline": true, "class": className, "fields": fields}, nil
}

func dedupe(uuids []string) []string {
	if len(uuids) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(uuids))
	out := make([]string, 0, len(uuids))

	for _, u := range uuids {
		if seen[u] {
			continue
		}

		seen[u] = true
		out = append(out, u)
	}

	return out
}
