package etl

import "strings"

// DefaultNoiseTargets are placeholder targets left behind by the gender
// shorthand ("-а", "а") that never name a real translation.
var DefaultNoiseTargets = []string{"-а", "а"}

// PostFilter removes pairs whose target is a known placeholder, and pairs
// with an empty side.
type PostFilter struct {
	noise map[string]struct{}
}

// NewPostFilter creates a filter for DefaultNoiseTargets plus any extra
// targets given.
func NewPostFilter(extra ...string) *PostFilter {
	f := &PostFilter{noise: make(map[string]struct{}, len(DefaultNoiseTargets)+len(extra))}
	for _, t := range DefaultNoiseTargets {
		f.noise[t] = struct{}{}
	}
	for _, t := range extra {
		f.noise[t] = struct{}{}
	}
	return f
}

// Keep reports whether p survives the filter.
func (f *PostFilter) Keep(p Pair) bool {
	if strings.TrimSpace(p.Source) == "" || strings.TrimSpace(p.Target) == "" {
		return false
	}
	_, noisy := f.noise[p.Target]
	return !noisy
}

// Apply returns the pairs that survive the filter, in order.
func (f *PostFilter) Apply(pairs []Pair) []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if f.Keep(p) {
			out = append(out, p)
		}
	}
	return out
}
