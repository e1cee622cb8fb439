package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/japaniel/aprendo/pkg/db"
	"github.com/japaniel/aprendo/pkg/translations"
)

// snapshotLink captures link id with its words and returns the write that
// persists them. The values are read now because the store keeps changing
// while the batch waits.
func snapshotLink(store *translations.Store, id int64) (WriteFunc, error) {
	l, ok := store.Link(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", translations.ErrUnknownLink, id)
	}
	source, target := store.Languages()
	sourceWord, err := store.Word(id, source)
	if err != nil {
		return nil, err
	}
	targetWord, err := store.Word(id, target)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, tx *sql.Tx) error {
		if err := db.InsertWord(tx, string(source), l.SourceWordID, sourceWord); err != nil {
			return fmt.Errorf("persist word %q: %w", sourceWord, err)
		}
		if err := db.InsertWord(tx, string(target), l.TargetWordID, targetWord); err != nil {
			return fmt.Errorf("persist word %q: %w", targetWord, err)
		}
		t := db.Translation{ID: l.ID, SourceWordID: l.SourceWordID, TargetWordID: l.TargetWordID}
		if err := db.InsertTranslation(tx, t); err != nil {
			return fmt.Errorf("persist link %d: %w", l.ID, err)
		}
		return nil
	}, nil
}

// Restore rebuilds a store from a snapshot. A snapshot left by an unfinished
// build is refused with db.ErrIncompleteSnapshot. Links are replayed in id
// order, which reproduces the word and link ids of the build; any difference
// is reported as db.ErrSnapshotMismatch. On error no store is returned.
func Restore(conn db.DBExecutor) (*translations.Store, error) {
	src, tgt, err := db.GetLanguages(conn)
	if err != nil {
		return nil, fmt.Errorf("restore languages: %w", err)
	}
	if err := db.CheckComplete(conn); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	sourceWords, err := wordsByID(conn, src)
	if err != nil {
		return nil, err
	}
	targetWords, err := wordsByID(conn, tgt)
	if err != nil {
		return nil, err
	}
	links, err := db.ListTranslations(conn)
	if err != nil {
		return nil, fmt.Errorf("restore links: %w", err)
	}

	store := translations.New(translations.Language(src), translations.Language(tgt))
	for _, t := range links {
		sw, ok := sourceWords[t.SourceWordID]
		if !ok {
			return nil, fmt.Errorf("%w: link %d references missing %s word %d", db.ErrSnapshotMismatch, t.ID, src, t.SourceWordID)
		}
		tw, ok := targetWords[t.TargetWordID]
		if !ok {
			return nil, fmt.Errorf("%w: link %d references missing %s word %d", db.ErrSnapshotMismatch, t.ID, tgt, t.TargetWordID)
		}
		id, err := store.Insert(sw, tw)
		if err != nil {
			return nil, fmt.Errorf("restore link %d: %w", t.ID, err)
		}
		got, _ := store.Link(id)
		want := translations.Link{ID: t.ID, SourceWordID: t.SourceWordID, TargetWordID: t.TargetWordID}
		if got != want {
			return nil, fmt.Errorf("%w: link %+v restored as %+v", db.ErrSnapshotMismatch, want, got)
		}
	}
	return store, nil
}

func wordsByID(conn db.DBExecutor, language string) (map[int64]string, error) {
	words, err := db.ListWords(conn, language)
	if err != nil {
		return nil, fmt.Errorf("restore %s words: %w", language, err)
	}
	out := make(map[int64]string, len(words))
	for _, w := range words {
		out[w.ID] = w.Word
	}
	return out, nil
}
