package quality

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Predicate decides from a quality indicator value whether a sample is kept.
// A no-data indicator is never kept.
type Predicate interface {
	Keep(indicator float64) bool
	String() string
}

// Bitmask keeps samples where indicator & Mask == Equals, for packed QA
// bitfields such as MOD09GA state_1km.
type Bitmask struct {
	Mask   uint64
	Equals uint64
}

func (b Bitmask) Keep(indicator float64) bool {
	if math.IsNaN(indicator) || indicator < 0 {
		return false
	}
	return uint64(indicator)&b.Mask == b.Equals
}

func (b Bitmask) String() string {
	return fmt.Sprintf("indicator & %d == %d", b.Mask, b.Equals)
}

// Ordinal keeps samples whose indicator is at most Max, for small ordinal
// reliability scales such as MOD13A1 SummaryQA.
type Ordinal struct {
	Max float64
}

func (o Ordinal) Keep(indicator float64) bool {
	return !math.IsNaN(indicator) && indicator <= o.Max
}

func (o Ordinal) String() string {
	return fmt.Sprintf("indicator <= %g", o.Max)
}

// Exclude drops samples whose indicator is one of Values, for class maps
// such as the Sentinel-2 scene classification.
type Exclude struct {
	Values []float64
}

func (e Exclude) Keep(indicator float64) bool {
	return !math.IsNaN(indicator) && !slices.Contains(e.Values, indicator)
}

func (e Exclude) String() string {
	parts := make([]string, len(e.Values))
	for i, v := range e.Values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "indicator not in [" + strings.Join(parts, ", ") + "]"
}

// PredicateSpec is the configuration form of a Predicate.
type PredicateSpec struct {
	Kind   string    `yaml:"kind"`
	Mask   uint64    `yaml:"mask,omitempty"`
	Equals uint64    `yaml:"equals,omitempty"`
	Max    float64   `yaml:"max,omitempty"`
	Values []float64 `yaml:"values,omitempty"`
}

func (s PredicateSpec) Build() (Predicate, error) {
	switch strings.ToLower(s.Kind) {
	case "bitmask":
		if s.Mask == 0 {
			return nil, fmt.Errorf("%w: bitmask predicate needs a non-zero mask", ErrBadPredicate)
		}
		if s.Equals&^s.Mask != 0 {
			return nil, fmt.Errorf("%w: equals %d has bits outside mask %d", ErrBadPredicate, s.Equals, s.Mask)
		}
		return Bitmask{Mask: s.Mask, Equals: s.Equals}, nil
	case "ordinal":
		return Ordinal{Max: s.Max}, nil
	case "exclude":
		if len(s.Values) == 0 {
			return nil, fmt.Errorf("%w: exclude predicate needs values", ErrBadPredicate)
		}
		return Exclude{Values: slices.Clone(s.Values)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrBadPredicate, s.Kind)
	}
}
