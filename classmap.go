package objectstore

// ClassMap is a mapping oldClass -> newClass, consulted during rehydration
// before instantiation so stored data survives class renames without
// migration scripts (§4.10).
type ClassMap map[string]string

// Resolve returns the live class name for a stored class name, following a
// rename if one is registered, and the class name unchanged otherwise.
func (m ClassMap) Resolve(storedClass string) string {
	if m == nil {
		return storedClass
	}

	if renamed, ok := m[storedClass]; ok {
		return renamed
	}

	return storedClass
}
