package quiz

import (
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/japaniel/aprendo/pkg/translations"
)

// ExclusionSet holds link ids that should not be sampled again, typically the
// ones already shown in a session. The zero value is an empty, read-only set.
type ExclusionSet map[int64]struct{}

// NewExclusionSet returns a set containing ids.
func NewExclusionSet(ids ...int64) ExclusionSet {
	s := make(ExclusionSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s ExclusionSet) Add(id int64) { s[id] = struct{}{} }

func (s ExclusionSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Pick is one sampled link with its word on the presented side.
type Pick struct {
	LinkID int64
	Word   string
	// Fallback is set when no eligible id was left and the pick was drawn
	// from the whole store instead.
	Fallback bool
}

// Sampler draws random links from a store. A Sampler is not safe for
// concurrent use because its random source is not.
type Sampler struct {
	store  *translations.Store
	rng    *rand.Rand
	Logger *log.Logger
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithRand makes the sampler draw from r.
func WithRand(r *rand.Rand) SamplerOption {
	return func(s *Sampler) { s.rng = r }
}

// WithSeed makes the sampler deterministic.
func WithSeed(seed uint64) SamplerOption {
	return WithRand(rand.New(rand.NewPCG(seed, seed)))
}

// NewSampler returns a sampler over store, randomly seeded unless an option
// says otherwise.
func NewSampler(store *translations.Store, opts ...SamplerOption) *Sampler {
	s := &Sampler{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Store returns the store the sampler draws from.
func (s *Sampler) Store() *translations.Store { return s.store }

// Next picks a link uniformly among the ids that fall in ranges (all ids when
// ranges is empty) and are not excluded. When nothing is eligible it falls
// back to a uniform pick over every link, ignoring both restrictions. The
// only error is an empty store or a direction the store does not hold.
func (s *Sampler) Next(dir Direction, ranges []IDRange, excluded ExclusionSet) (Pick, error) {
	all := s.store.LinkIDs()
	if len(all) == 0 {
		return Pick{}, translations.ErrEmptyStore
	}

	eligible := make([]int64, 0, len(all))
	for _, id := range all {
		if inRanges(id, ranges) && !excluded.Has(id) {
			eligible = append(eligible, id)
		}
	}

	pick := Pick{}
	if len(eligible) > 0 {
		pick.LinkID = eligible[s.rng.IntN(len(eligible))]
	} else {
		pick.LinkID = all[s.rng.IntN(len(all))]
		pick.Fallback = true
		if s.Logger != nil {
			s.Logger.Debug("no eligible links, sampling from all",
				"ranges", FormatIDRanges(ranges), "excluded", len(excluded))
		}
	}

	word, err := s.store.Word(pick.LinkID, dir.From)
	if err != nil {
		return Pick{}, fmt.Errorf("sample %s: %w", dir.Code(), err)
	}
	pick.Word = word
	return pick, nil
}

func inRanges(id int64, ranges []IDRange) bool {
	if len(ranges) == 0 {
		return true
	}
	for _, r := range ranges {
		if r.Contains(id) {
			return true
		}
	}
	return false
}
