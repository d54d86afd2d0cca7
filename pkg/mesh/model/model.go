package model

import "sort"

// FunctionModel is the canonical representation of one governance
// capability for one service on one plane. Models are immutable once the
// parse run that created them completes.
type FunctionModel struct {
	// Type is the governance capability this model describes.
	Type FunctionType

	// Service is the owning service name.
	Service string

	// Namespace is the owning namespace.
	Namespace string

	// Plane records which side of the mesh the model was derived from.
	Plane Plane

	// Attrs holds the normalized field path → typed value mapping.
	Attrs *Attributes

	// Ref is a traceability identifier into the source document
	// (kind/namespace/name). The model does not own the document.
	Ref string
}

// NewFunctionModel returns a model with an empty attribute set.
func NewFunctionModel(t FunctionType, namespace, service string, plane Plane, ref string) *FunctionModel {
	return &FunctionModel{
		Type:      t,
		Service:   service,
		Namespace: namespace,
		Plane:     plane,
		Attrs:     NewAttributes(),
		Ref:       ref,
	}
}

// Key returns the cross-plane identity of this model.
func (m *FunctionModel) Key() Key {
	return Key{Namespace: m.Namespace, Service: m.Service, Type: m.Type}
}

// Identity is the per-run uniqueness key for a model: one model may exist
// per (namespace, service, function type, plane).
type Identity struct {
	Key
	Plane Plane
}

// MergeRecord notes that a later submission merged into an existing model
// under the identity rule. Merges surface as informational issues in the
// consistency tree, never as failures.
type MergeRecord struct {
	Identity Identity

	// IntoRef and FromRef trace the surviving and merged-in documents.
	IntoRef string
	FromRef string

	// Overwritten lists field paths whose service-wide value was replaced
	// by the later submission. Version-scoped fields nest under their
	// scope prefix instead of appearing here.
	Overwritten []string
}

// ModelSet enforces the identity rule over a parse run's output. Adding a
// model whose identity is already present merges its attributes
// field-by-field, last writer wins, and records the merge.
type ModelSet struct {
	order  []Identity
	models map[Identity]*FunctionModel
	merges []MergeRecord
}

// NewModelSet returns an empty set.
func NewModelSet() *ModelSet {
	return &ModelSet{models: make(map[Identity]*FunctionModel)}
}

// Add inserts m, merging into an existing model with the same identity.
// The submitted model is cloned on first insert so later mutation of the
// set never aliases parser-owned data.
func (s *ModelSet) Add(m *FunctionModel) {
	id := Identity{Key: m.Key(), Plane: m.Plane}
	existing, ok := s.models[id]
	if !ok {
		clone := *m
		clone.Attrs = m.Attrs.Clone()
		s.models[id] = &clone
		s.order = append(s.order, id)
		return
	}
	overwritten := existing.Attrs.Merge(m.Attrs)
	s.merges = append(s.merges, MergeRecord{
		Identity:    id,
		IntoRef:     existing.Ref,
		FromRef:     m.Ref,
		Overwritten: overwritten,
	})
}

// AddAll inserts every model in ms.
func (s *ModelSet) AddAll(ms []*FunctionModel) {
	for _, m := range ms {
		s.Add(m)
	}
}

// Len returns the number of distinct identities in the set.
func (s *ModelSet) Len() int {
	return len(s.order)
}

// Get returns the model for id.
func (s *ModelSet) Get(id Identity) (*FunctionModel, bool) {
	m, ok := s.models[id]
	return m, ok
}

// Models returns all models sorted by identity key then plane, never by
// map iteration order.
func (s *ModelSet) Models() []*FunctionModel {
	ids := make([]Identity, len(s.order))
	copy(ids, s.order)
	sort.Slice(ids, func(i, j int) bool {
		ki, kj := ids[i].Key.String(), ids[j].Key.String()
		if ki != kj {
			return ki < kj
		}
		return ids[i].Plane < ids[j].Plane
	})
	out := make([]*FunctionModel, len(ids))
	for i, id := range ids {
		out[i] = s.models[id]
	}
	return out
}

// Merges returns the merge records accumulated so far, in occurrence order.
func (s *ModelSet) Merges() []MergeRecord {
	return s.merges
}
