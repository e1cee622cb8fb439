package translations

import (
	"fmt"
	"sort"
	"strings"
)

// words is a per-language dictionary. Word ids are 1-based positions in list.
type words struct {
	ids  map[string]int64
	list []string
}

func newWords() *words {
	return &words{ids: make(map[string]int64)}
}

func (w *words) getOrCreate(word string) int64 {
	if id, ok := w.ids[word]; ok {
		return id
	}
	w.list = append(w.list, word)
	id := int64(len(w.list))
	w.ids[word] = id
	return id
}

func (w *words) word(id int64) string {
	return w.list[id-1]
}

type linkKey struct {
	source, target int64
}

// Store holds the word dictionaries of two languages and the unique links
// between them.
//
// A Store is populated once through Insert (usually via Load or Build) and
// is read-only afterwards. Insert is not safe for concurrent use; the read
// methods are safe for concurrent use once no more inserts happen.
type Store struct {
	source, target Language
	sourceWords    *words
	targetWords    *words

	links   []Link
	linkIDs map[linkKey]int64
	// Word id to ids of the links it takes part in, in link id order.
	bySource map[int64][]int64
	byTarget map[int64][]int64
}

// New creates an empty store translating from source to target.
func New(source, target Language) *Store {
	return &Store{
		source:      source,
		target:      target,
		sourceWords: newWords(),
		targetWords: newWords(),
		linkIDs:     make(map[linkKey]int64),
		bySource:    make(map[int64][]int64),
		byTarget:    make(map[int64][]int64),
	}
}

// Languages returns the source and target language of the store.
func (s *Store) Languages() (Language, Language) {
	return s.source, s.target
}

// Insert returns the id of the link between source and target, creating the
// words and the link if needed. Inserting an existing pair returns its id.
func (s *Store) Insert(source, target string) (int64, error) {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" || target == "" {
		return 0, ErrEmptyWord
	}

	key := linkKey{
		source: s.sourceWords.getOrCreate(source),
		target: s.targetWords.getOrCreate(target),
	}
	if id, ok := s.linkIDs[key]; ok {
		return id, nil
	}

	id := int64(len(s.links) + 1)
	s.links = append(s.links, Link{ID: id, SourceWordID: key.source, TargetWordID: key.target})
	s.linkIDs[key] = id
	s.bySource[key.source] = append(s.bySource[key.source], id)
	s.byTarget[key.target] = append(s.byTarget[key.target], id)
	return id, nil
}

// Len returns the number of links.
func (s *Store) Len() int { return len(s.links) }

// Stats returns word and link counts.
func (s *Store) Stats() Stats {
	return Stats{
		SourceWords: len(s.sourceWords.list),
		TargetWords: len(s.targetWords.list),
		Links:       len(s.links),
	}
}

// Link returns the link with the given id.
func (s *Store) Link(id int64) (Link, bool) {
	if id < 1 || id > int64(len(s.links)) {
		return Link{}, false
	}
	return s.links[id-1], true
}

// LinkIDs returns all link ids in ascending order.
func (s *Store) LinkIDs() []int64 {
	ids := make([]int64, len(s.links))
	for i, l := range s.links {
		ids[i] = l.ID
	}
	return ids
}

// Word resolves the word on the lang side of link id.
func (s *Store) Word(id int64, lang Language) (string, error) {
	l, ok := s.Link(id)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownLink, id)
	}
	switch lang {
	case s.source:
		return s.sourceWords.word(l.SourceWordID), nil
	case s.target:
		return s.targetWords.word(l.TargetWordID), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
}

// ListLinks returns every link as (id, from word, to word), ordered by
// ascending word id on the from side and then by link id.
func (s *Store) ListLinks(from, to Language) ([]Row, error) {
	var reversed bool
	switch {
	case from == s.source && to == s.target:
	case from == s.target && to == s.source:
		reversed = true
	default:
		return nil, fmt.Errorf("%w: %s→%s", ErrUnknownLanguage, from, to)
	}

	links := make([]Link, len(s.links))
	copy(links, s.links)
	sideID := func(l Link) int64 {
		if reversed {
			return l.TargetWordID
		}
		return l.SourceWordID
	}
	sort.SliceStable(links, func(i, j int) bool {
		return sideID(links[i]) < sideID(links[j])
	})

	rows := make([]Row, len(links))
	for i, l := range links {
		src, tgt := s.sourceWords.word(l.SourceWordID), s.targetWords.word(l.TargetWordID)
		if reversed {
			src, tgt = tgt, src
		}
		rows[i] = Row{ID: l.ID, Source: src, Target: tgt}
	}
	return rows, nil
}

// Lookup returns every word of the other language linked to word, in link
// order. Unknown words and languages yield an empty result.
func (s *Store) Lookup(word string, from Language) []string {
	word = strings.TrimSpace(word)

	var (
		wordID int64
		ok     bool
		index  map[int64][]int64
		other  *words
		pick   func(Link) int64
	)
	switch from {
	case s.source:
		wordID, ok = s.sourceWords.ids[word]
		index, other = s.bySource, s.targetWords
		pick = func(l Link) int64 { return l.TargetWordID }
	case s.target:
		wordID, ok = s.targetWords.ids[word]
		index, other = s.byTarget, s.sourceWords
		pick = func(l Link) int64 { return l.SourceWordID }
	}
	if !ok {
		return nil
	}

	ids := index[wordID]
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = other.word(pick(s.links[id-1]))
	}
	return out
}
