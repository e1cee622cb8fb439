package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrIncompleteSnapshot is returned when the snapshot holds rows of a build
// that never finished.
var ErrIncompleteSnapshot = errors.New("snapshot is incomplete")

// MarkComplete records that a build finished with links links stored.
func MarkComplete(db DBExecutor, links int) error {
	_, err := db.Exec(`INSERT INTO snapshot_state (id, links) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET links = excluded.links`, links)
	if err != nil {
		return fmt.Errorf("mark snapshot complete: %w", err)
	}
	return nil
}

// CompleteLinks returns the link count recorded by the last finished build.
// ok is false when no build has finished yet.
func CompleteLinks(db DBExecutor) (links int, ok bool, err error) {
	err = db.QueryRow(`SELECT links FROM snapshot_state WHERE id = 1`).Scan(&links)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return links, true, nil
}

// CheckComplete returns ErrIncompleteSnapshot unless the stored links are
// exactly those of the last finished build.
func CheckComplete(db DBExecutor) error {
	want, ok, err := CompleteLinks(db)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no build has finished", ErrIncompleteSnapshot)
	}
	got, err := CountTranslations(db)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %d links stored, last finished build had %d", ErrIncompleteSnapshot, got, want)
	}
	return nil
}

// DiscardIncomplete rolls the snapshot back to the last finished build by
// deleting links past its count and the words only they referenced. With no
// finished build everything is removed. It returns the number of deleted links.
func DiscardIncomplete(conn *sql.DB) (int, error) {
	tx, err := conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	links, ok, err := CompleteLinks(tx)
	if err != nil {
		return 0, err
	}
	res, err := tx.Exec(`DELETE FROM translations WHERE id > ?`, links)
	if err != nil {
		return 0, fmt.Errorf("discard links: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if ok {
		source, target, err := GetLanguages(tx)
		if err != nil && !errors.Is(err, ErrNoSnapshot) {
			return 0, err
		}
		if err == nil {
			if _, err := tx.Exec(`DELETE FROM words
				WHERE (language = ? AND id NOT IN (SELECT source_word_id FROM translations))
				   OR (language = ? AND id NOT IN (SELECT target_word_id FROM translations))`, source, target); err != nil {
				return 0, fmt.Errorf("discard words: %w", err)
			}
		}
	} else {
		for _, table := range []string{"words", "languages"} {
			if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
				return 0, fmt.Errorf("discard %s: %w", table, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(removed), nil
}
