package objectstore

// nodeReader reads one node's metadata and already-unserialized fields,
// performing whatever locking/TTL/checksum checks the engine requires
// before returning (§4.8 steps 1-3). It is supplied by [Store.Load] so the
// rehydrator itself stays free of locking and disk concerns.
type nodeReader func(uuid string) (*Metadata, map[string]any, error)

// rehydrator reconstructs a live object graph from a root UUID, restoring
// identity across cycles and multiple references (§4.8).
type rehydrator struct {
	registry *TypeRegistry
	refl     Reflector
	classMap ClassMap
	read     nodeReader

	identity map[string]any // uuid -> instance, populated before fields (step 5)
}

func newRehydrator(registry *TypeRegistry, refl Reflector, classMap ClassMap, read nodeReader) *rehydrator {
	return &rehydrator{
		registry: registry,
		refl:     refl,
		classMap: classMap,
		read:     read,
		identity: make(map[string]any),
	}
}

// rehydrateGraph loads rootUUID and everything it (transitively) references.
func rehydrateGraph(rootUUID string, registry *TypeRegistry, refl Reflector, classMap ClassMap, read nodeReader) (any, error) {
	r := newRehydrator(registry, refl, classMap, read)
	return r.load(rootUUID)
}

// load returns the instance for uuid, reusing the identity map on a repeat
// visit - this is the mechanism that gives cyclic and shared references a
// single Go instance (§4.8 "Identity guarantee").
func (r *rehydrator) load(uuid string) (any, error) {
	if inst, ok := r.identity[uuid]; ok {
		return inst, nil
	}

	meta, fields, err := r.read(uuid)
	if err != nil {
		return nil, err
	}

	inst, _, known := r.registry.Instantiate(meta.Class, r.classMap)

	if aware, ok := inst.(UUIDAware); ok {
		aware.SetUUID(uuid)
	}

	// Register before populating fields: a field that references this same
	// uuid (a self-cycle) must resolve to this exact instance.
	r.identity[uuid] = inst

	for name, raw := range fields {
		resolved, err := r.resolveValue(raw)
		if err != nil {
			return nil, err
		}

		if !known {
			placeholder, _ := inst.(*Placeholder)
			placeholder.Set(name, resolved)

			continue
		}

		if err := r.refl.Set(inst, name, resolved); err != nil {
			return nil, err
		}
	}

	if hook, ok := inst.(PostDeserialize); ok {
		hook.PostDeserialize()
	}

	return inst, nil
}

// resolveValue walks a decoded field value, recursively loading any
// {"$ref": uuid} markers (including inside nested slices/maps) and
// reconstructing any inlined (past-max-depth) sub-objects.
func (r *rehydrator) resolveValue(v any) (any, error) {
	switch vv := v.(type) {
	case map[string]any:
		if ref, ok := isRefMarker(vv); ok && len(vv) == 1 {
			return r.load(ref)
		}

		if inline, _ := vv["$inline"].(bool); inline {
			return r.resolveInline(vv)
		}

		out := make(map[string]any, len(vv))

		for k, mv := range vv {
			rv, err := r.resolveValue(mv)
			if err != nil {
				return nil, err
			}

			out[k] = rv
		}

		return out, nil

	case []any:
		out := make([]any, len(vv))

		for i, ev := range vv {
			rv, err := r.resolveValue(ev)
			if err != nil {
				return nil, err
			}

			out[i] = rv
		}

		return out, nil

	default:
		return v, nil
	}
}

// resolveInline reconstructs a sub-object that was serialized by value
// (§4.7 step 3) rather than as its own UUID-addressed record. It never
// enters the identity map - it isn't addressable by UUID.
func (r *rehydrator) resolveInline(vv map[string]any) (any, error) {
	className, _ := vv["class"].(string)
	fieldsRaw, _ := vv["fields"].(map[string]any)

	inst, _, known := r.registry.Instantiate(className, r.classMap)

	for name, fv := range fieldsRaw {
		resolved, err := r.resolveValue(fv)
		if err != nil {
			return nil, err
		}

		if !known {
			placeholder, _ := inst.(*Placeholder)
			placeholder.Set(name, resolved)

			continue
		}

		if err := r.refl.Set(inst, name, resolved); err != nil {
			return nil, err
		}
	}

	return inst, nil
}
