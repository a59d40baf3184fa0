package objectstore

// Placeholder is the fallback type used during rehydration when a stored
// class name cannot be resolved through the [TypeRegistry] or [ClassMap]
// (§4.8 "Unknown class", §9 "ClassResolution = Known | Renamed | Unknown").
//
// Its fields are preserved as dynamic attributes so the original data
// survives for later class resurrection - a caller can re-register the
// class and re-store a Placeholder's Attrs under the same UUID.
type Placeholder struct {
	uuid  string
	Class string
	Attrs map[string]any
}

// GetUUID satisfies [UUIDAware].
func (p *Placeholder) GetUUID() (string, bool) {
	if p.uuid == "" {
		return "", false
	}

	return p.uuid, true
}

// SetUUID satisfies [UUIDAware].
func (p *Placeholder) SetUUID(u string) { p.uuid = u }

// Get returns a dynamic attribute by name.
func (p *Placeholder) Get(name string) (any, bool) {
	v, ok := p.Attrs[name]
	return v, ok
}

// Set assigns a dynamic attribute by name.
func (p *Placeholder) Set(name string, value any) {
	if p.Attrs == nil {
		p.Attrs = make(map[string]any)
	}

	p.Attrs[name] = value
}
