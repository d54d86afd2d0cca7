package model

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Kind is the declared type of an attribute value. The statistical
// comparator selects its strategy from the Kind alone.
type Kind string

const (
	KindString       Kind = "string"
	KindInt          Kind = "int"
	KindFloat        Kind = "float"
	KindBool         Kind = "bool"
	KindDuration     Kind = "duration"
	KindDistribution Kind = "distribution"
)

// Value is a typed attribute value. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Value struct {
	Kind     Kind
	Str      string
	Int      int64
	Float    float64
	Bool     bool
	Duration time.Duration
	Dist     *Distribution
}

// StringValue returns a string-kinded value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IntValue returns an int-kinded value.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// FloatValue returns a float-kinded value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// BoolValue returns a bool-kinded value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// DurationValue returns a duration-kinded value.
func DurationValue(d time.Duration) Value { return Value{Kind: KindDuration, Duration: d} }

// DistValue returns a distribution-kinded value.
func DistValue(d *Distribution) Value { return Value{Kind: KindDistribution, Dist: d} }

// Interface returns the payload as a plain Go value suitable for
// serialization. Durations render as their canonical string form so the
// serialized tree is unit-stable.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	case KindDuration:
		return v.Duration.String()
	case KindDistribution:
		if v.Dist == nil {
			return nil
		}
		return v.Dist.Serializable()
	}
	return nil
}

// String renders the payload for issue descriptions.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindDuration:
		return v.Duration.String()
	case KindDistribution:
		return v.Dist.String()
	}
	return ""
}

// Bucket is one labelled slice of a traffic distribution. Control-plane
// models carry declared proportions; data-plane models carry observed
// request counts. A bucket never carries both.
type Bucket struct {
	Label      string
	Proportion float64
	Count      int64
}

// Distribution is an ordered set of buckets keyed by version label.
// Buckets are kept sorted by label so two distributions built from
// differently ordered sources compare and serialize identically.
type Distribution struct {
	buckets []Bucket
}

// NewProportions builds a declared-proportion distribution from
// label → share. Shares are expected to sum to 1.
func NewProportions(shares map[string]float64) *Distribution {
	d := &Distribution{}
	for label, p := range shares {
		d.buckets = append(d.buckets, Bucket{Label: label, Proportion: p})
	}
	d.sort()
	return d
}

// NewCounts builds an observed-count distribution from label → count.
func NewCounts(counts map[string]int64) *Distribution {
	d := &Distribution{}
	for label, c := range counts {
		d.buckets = append(d.buckets, Bucket{Label: label, Count: c})
	}
	d.sort()
	return d
}

func (d *Distribution) sort() {
	sort.Slice(d.buckets, func(i, j int) bool {
		return d.buckets[i].Label < d.buckets[j].Label
	})
}

// Buckets returns the buckets in label order. Callers must not mutate
// the returned slice.
func (d *Distribution) Buckets() []Bucket {
	return d.buckets
}

// Labels returns the bucket labels in order.
func (d *Distribution) Labels() []string {
	labels := make([]string, len(d.buckets))
	for i, b := range d.buckets {
		labels[i] = b.Label
	}
	return labels
}

// Total returns the sum of observed counts across buckets.
func (d *Distribution) Total() int64 {
	var n int64
	for _, b := range d.buckets {
		n += b.Count
	}
	return n
}

// Proportion returns the declared share for label.
func (d *Distribution) Proportion(label string) (float64, bool) {
	for _, b := range d.buckets {
		if b.Label == label {
			return b.Proportion, true
		}
	}
	return 0, false
}

// Count returns the observed count for label.
func (d *Distribution) Count(label string) (int64, bool) {
	for _, b := range d.buckets {
		if b.Label == label {
			return b.Count, true
		}
	}
	return 0, false
}

// Serializable returns the distribution as a nested map for export.
func (d *Distribution) Serializable() map[string]any {
	out := make(map[string]any, len(d.buckets))
	for _, b := range d.buckets {
		if b.Count > 0 {
			out[b.Label] = b.Count
		} else {
			out[b.Label] = b.Proportion
		}
	}
	return out
}

// String renders the distribution for issue descriptions.
func (d *Distribution) String() string {
	if d == nil {
		return "<nil>"
	}
	s := "{"
	for i, b := range d.buckets {
		if i > 0 {
			s += ", "
		}
		if b.Count > 0 {
			s += fmt.Sprintf("%s:%d", b.Label, b.Count)
		} else {
			s += fmt.Sprintf("%s:%g", b.Label, b.Proportion)
		}
	}
	return s + "}"
}
