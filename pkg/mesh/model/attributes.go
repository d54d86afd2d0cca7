package model

// Attributes is an ordered mapping of normalized field path → typed value.
// Insertion order is preserved so repeated runs over identical input walk
// attributes identically; overwriting an existing path keeps its original
// position.
type Attributes struct {
	paths  []string
	values map[string]Value
}

// NewAttributes returns an empty attribute map.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]Value)}
}

// Set inserts or overwrites the value at path.
func (a *Attributes) Set(path string, v Value) {
	if _, ok := a.values[path]; !ok {
		a.paths = append(a.paths, path)
	}
	a.values[path] = v
}

// Get returns the value at path.
func (a *Attributes) Get(path string) (Value, bool) {
	v, ok := a.values[path]
	return v, ok
}

// Has reports whether path is present.
func (a *Attributes) Has(path string) bool {
	_, ok := a.values[path]
	return ok
}

// Paths returns the field paths in insertion order. Callers must not
// mutate the returned slice.
func (a *Attributes) Paths() []string {
	return a.paths
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	return len(a.paths)
}

// Clone returns a deep copy.
func (a *Attributes) Clone() *Attributes {
	c := &Attributes{
		paths:  make([]string, len(a.paths)),
		values: make(map[string]Value, len(a.values)),
	}
	copy(c.paths, a.paths)
	for k, v := range a.values {
		c.values[k] = v
	}
	return c
}

// Merge applies every attribute of other onto a, last writer wins. It
// returns the paths whose values were overwritten (present in both with a
// different incoming value), in other's insertion order. Version-scoped
// paths carry their scope prefix and therefore never collide with the
// service-wide path they refine.
func (a *Attributes) Merge(other *Attributes) []string {
	var overwritten []string
	for _, path := range other.paths {
		incoming := other.values[path]
		if prev, ok := a.values[path]; ok && prev != incoming {
			overwritten = append(overwritten, path)
		}
		a.Set(path, incoming)
	}
	return overwritten
}

// Serializable returns the attributes as a plain map for export.
func (a *Attributes) Serializable() map[string]any {
	out := make(map[string]any, len(a.paths))
	for _, path := range a.paths {
		out[path] = a.values[path].Interface()
	}
	return out
}
