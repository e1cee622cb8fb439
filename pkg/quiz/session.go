package quiz

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrNothingPresented is returned when an answer is checked before a word
// has been presented, or after it has already been checked.
var ErrNothingPresented = errors.New("no word is waiting for an answer")

// SkippedAnswer is recorded in place of an empty answer.
const SkippedAnswer = "(skipped)"

// State is the position of a session within one quiz round.
type State int

const (
	Unset State = iota
	Presented
	Checked
)

func (s State) String() string {
	switch s {
	case Unset:
		return "unset"
	case Presented:
		return "presented"
	case Checked:
		return "checked"
	default:
		return "unknown"
	}
}

// Attempt is one checked answer.
type Attempt struct {
	LinkID   int64
	Word     string
	Answer   string
	Expected []string
	Correct  bool
}

// Session drives quiz rounds for one user: it presents words through a
// Sampler, never repeating a link while unseen eligible ones remain, and
// records checked answers newest first.
type Session struct {
	ID uuid.UUID

	sampler   *Sampler
	direction Direction
	ranges    []IDRange
	seen      ExclusionSet

	state    State
	current  Pick
	attempts []Attempt
}

// NewSession starts a session in the Unset state.
func NewSession(sampler *Sampler, dir Direction) *Session {
	return &Session{
		ID:        uuid.New(),
		sampler:   sampler,
		direction: dir,
		seen:      NewExclusionSet(),
	}
}

func (s *Session) State() State { return s.state }
func (s *Session) Current() Pick { return s.current }
func (s *Session) Direction() Direction { return s.direction }
func (s *Session) Ranges() []IDRange { return s.ranges }
func (s *Session) RangesText() string { return FormatIDRanges(s.ranges) }
func (s *Session) Attempts() []Attempt { return append([]Attempt(nil), s.attempts...) }
func (s *Session) SeenCount() int { return len(s.seen) }

// Next presents a new word.
func (s *Session) Next() (Pick, error) {
	pick, err := s.sampler.Next(s.direction, s.ranges, s.seen)
	if err != nil {
		return Pick{}, err
	}
	s.seen.Add(pick.LinkID)
	s.current = pick
	s.state = Presented
	return pick, nil
}

// Check grades answer against every translation of the presented word.
// Matching ignores surrounding space, case and Unicode composition. An empty
// answer is recorded as skipped and counts as wrong.
func (s *Session) Check(answer string) (Attempt, error) {
	if s.state != Presented {
		return Attempt{}, ErrNothingPresented
	}

	expected := s.sampler.Store().Lookup(s.current.Word, s.direction.From)
	a := Attempt{
		LinkID:   s.current.LinkID,
		Word:     s.current.Word,
		Answer:   answer,
		Expected: expected,
	}
	if strings.TrimSpace(answer) == "" {
		a.Answer = SkippedAnswer
	} else {
		want := foldAnswer(answer)
		for _, e := range expected {
			if foldAnswer(e) == want {
				a.Correct = true
				break
			}
		}
	}

	s.attempts = append([]Attempt{a}, s.attempts...)
	s.state = Checked
	return a, nil
}

// Submit checks answer when a word is waiting for one and otherwise moves on
// to the next word. The returned attempt is nil when it moved on.
func (s *Session) Submit(answer string) (*Attempt, error) {
	if s.state != Presented {
		_, err := s.Next()
		return nil, err
	}
	a, err := s.Check(answer)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SetDirection switches the quiz direction and presents a new word in it.
func (s *Session) SetDirection(dir Direction) (Pick, error) {
	s.direction = dir
	return s.Next()
}

// SetRanges restricts sampling to the id ranges in text. Blank text removes
// the restriction. On error the previous ranges stay in effect.
func (s *Session) SetRanges(text string) error {
	ranges, err := ParseIDRanges(text)
	if err != nil {
		return err
	}
	s.ranges = ranges
	return nil
}

func foldAnswer(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}
