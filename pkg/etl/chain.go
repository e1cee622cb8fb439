package etl

import (
	"fmt"
	"strings"
)

// Mode controls what happens to pairs a rule does not match while the rule
// matched other pairs of the same row.
type Mode int

const (
	// DropUnmatched replaces the whole working set with the rule's output
	// whenever the rule matched at least one pair.
	DropUnmatched Mode = iota
	// KeepUnmatched carries pairs the rule did not match forward unchanged.
	KeepUnmatched
)

func (m Mode) String() string {
	switch m {
	case DropUnmatched:
		return "drop"
	case KeepUnmatched:
		return "keep"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps the configuration values "drop" and "keep" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return DropUnmatched, nil
	case "keep":
		return KeepUnmatched, nil
	default:
		return DropUnmatched, fmt.Errorf("unknown chain mode %q (want drop or keep)", s)
	}
}

// Normalizer applies an ordered rule chain to raw rows and filters the result.
type Normalizer struct {
	rules  []Rule
	mode   Mode
	filter *PostFilter
}

// NewNormalizer creates a normalizer with the default rules, DropUnmatched
// mode and the default post filter.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		rules:  DefaultRules(),
		mode:   DropUnmatched,
		filter: NewPostFilter(),
	}
}

// NewNormalizerWithRules creates a normalizer with a custom chain.
func NewNormalizerWithRules(mode Mode, filter *PostFilter, rules ...Rule) *Normalizer {
	if filter == nil {
		filter = NewPostFilter()
	}
	return &Normalizer{rules: rules, mode: mode, filter: filter}
}

// Mode reports how unmatched pairs are treated.
func (n *Normalizer) Mode() Mode { return n.mode }

// Apply runs the rule chain over one raw row without post filtering.
func (n *Normalizer) Apply(raw Pair) []Pair {
	current := []Pair{raw}
	for _, rule := range n.rules {
		var next []Pair
		matched := false
		for _, p := range current {
			out := rule(p)
			if out == nil {
				if n.mode == KeepUnmatched {
					next = append(next, p)
				}
				continue
			}
			matched = true
			next = append(next, out...)
		}
		if matched {
			current = next
		}
	}
	return current
}

// Normalize runs the chain over one raw row and drops noise pairs.
// The returned slice may be empty.
func (n *Normalizer) Normalize(raw Pair) []Pair {
	return n.filter.Apply(n.Apply(raw))
}
