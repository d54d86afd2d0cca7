package align

import (
	"sort"

	"tessera-hq/meshlens/pkg/mesh/model"
)

// Status classifies one aligned pair.
type Status string

const (
	// StatusMatched means both planes are present and their attribute
	// sets fully overlap.
	StatusMatched Status = "matched"

	// StatusPartial means both planes are present but only part of the
	// attribute paths appear on both sides. Expected under asymmetric
	// schemas, not itself an error.
	StatusPartial Status = "partial"

	// StatusControlOnly means the function is declared but no data-plane
	// model was observed.
	StatusControlOnly Status = "control_only"

	// StatusDataOnly means the data plane enforces a behavior no
	// control-plane declaration claims.
	StatusDataOnly Status = "data_only"
)

// Pair joins the two plane models for one (namespace, service, function
// type) key. Exactly one side may be nil, reflected in Status.
type Pair struct {
	Key     model.Key
	Control *model.FunctionModel
	Data    *model.FunctionModel
	Status  Status

	// Merges records duplicate control-plane submissions that were folded
	// into Control under last-writer-wins. Surfaced as INFO issues.
	Merges []model.MergeRecord
}

// Complete reports whether both planes are present.
func (p *Pair) Complete() bool {
	return p.Control != nil && p.Data != nil
}

// Align pairs control-plane models with data-plane models. Every key
// present in either input appears in exactly one returned pair, and pairs
// are emitted in lexicographic key order.
func Align(control, data []*model.FunctionModel) []Pair {
	controlSet := model.NewModelSet()
	controlSet.AddAll(control)
	dataSet := model.NewModelSet()
	dataSet.AddAll(data)
	return AlignSets(controlSet, dataSet)
}

// AlignSets pairs two already-deduplicated model sets. Align is the
// convenience form; parse pipelines that maintain their own sets call
// this directly.
func AlignSets(controlSet, dataSet *model.ModelSet) []Pair {
	mergesByKey := make(map[model.Key][]model.MergeRecord)
	for _, rec := range controlSet.Merges() {
		mergesByKey[rec.Identity.Key] = append(mergesByKey[rec.Identity.Key], rec)
	}

	keys := make(map[model.Key]struct{})
	controlByKey := make(map[model.Key]*model.FunctionModel)
	for _, m := range controlSet.Models() {
		controlByKey[m.Key()] = m
		keys[m.Key()] = struct{}{}
	}
	dataByKey := make(map[model.Key]*model.FunctionModel)
	for _, m := range dataSet.Models() {
		dataByKey[m.Key()] = m
		keys[m.Key()] = struct{}{}
	}

	ordered := make([]model.Key, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	pairs := make([]Pair, 0, len(ordered))
	for _, key := range ordered {
		p := Pair{
			Key:     key,
			Control: controlByKey[key],
			Data:    dataByKey[key],
			Merges:  mergesByKey[key],
		}
		p.Status = classify(&p)
		pairs = append(pairs, p)
	}
	return pairs
}

// classify determines the pair status from presence and attribute-set
// coverage.
func classify(p *Pair) Status {
	switch {
	case p.Control != nil && p.Data == nil:
		return StatusControlOnly
	case p.Control == nil && p.Data != nil:
		return StatusDataOnly
	}
	if coverageComplete(p.Control.Attrs, p.Data.Attrs) {
		return StatusMatched
	}
	return StatusPartial
}

// coverageComplete reports whether every attribute path present on either
// side is present on both.
func coverageComplete(a, b *model.Attributes) bool {
	for _, path := range a.Paths() {
		if !b.Has(path) {
			return false
		}
	}
	for _, path := range b.Paths() {
		if !a.Has(path) {
			return false
		}
	}
	return true
}
