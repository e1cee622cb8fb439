package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrSnapshotMismatch is returned when a row being written disagrees with
// what the snapshot already holds for the same id.
var ErrSnapshotMismatch = errors.New("snapshot mismatch")

// ErrNoSnapshot is returned by GetLanguages when nothing was saved yet.
var ErrNoSnapshot = errors.New("snapshot is empty")

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// SaveLanguages records the source and target language codes. Saving the
// same pair again is a no-op; a different pair is a mismatch.
func SaveLanguages(db DBExecutor, source, target string) error {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(target) == "" {
		return fmt.Errorf("language codes must be non-empty")
	}

	for _, l := range []struct{ side, code string }{{"source", source}, {"target", target}} {
		var stored string
		err := db.QueryRow(`INSERT INTO languages (side, code) VALUES (?, ?)
			ON CONFLICT(side) DO UPDATE SET code = languages.code
			RETURNING code`, l.side, l.code).Scan(&stored)
		if err != nil {
			return fmt.Errorf("save %s language: %w", l.side, err)
		}
		if stored != l.code {
			return fmt.Errorf("%w: %s language is %q, not %q", ErrSnapshotMismatch, l.side, stored, l.code)
		}
	}
	return nil
}

// GetLanguages returns the saved source and target language codes.
func GetLanguages(db DBExecutor) (source, target string, err error) {
	rows, err := db.Query(`SELECT side, code FROM languages`)
	if err != nil {
		return "", "", err
	}
	defer rows.Close()
	for rows.Next() {
		var side, code string
		if err := rows.Scan(&side, &code); err != nil {
			return "", "", err
		}
		switch side {
		case "source":
			source = code
		case "target":
			target = code
		}
	}
	if err := rows.Err(); err != nil {
		return "", "", err
	}
	if source == "" || target == "" {
		return "", "", ErrNoSnapshot
	}
	return source, target, nil
}

// InsertWord stores word under (language, id). Re-inserting the same row is
// a no-op. A different word for the id, or the word under another id, is a
// mismatch.
func InsertWord(db DBExecutor, language string, id int64, word string) error {
	if id <= 0 {
		return fmt.Errorf("word id must be positive, got %d", id)
	}
	trimmed := strings.TrimSpace(word)
	if trimmed == "" {
		return fmt.Errorf("word must be non-empty")
	}

	var stored string
	err := db.QueryRow(`INSERT INTO words (language, id, word) VALUES (?, ?, ?)
		ON CONFLICT(language, id) DO UPDATE SET word = words.word
		RETURNING word`, language, id, trimmed).Scan(&stored)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: %s word %q already has another id", ErrSnapshotMismatch, language, trimmed)
		}
		return fmt.Errorf("upsert word: %w", err)
	}
	if stored != trimmed {
		return fmt.Errorf("%w: %s word %d is %q, not %q", ErrSnapshotMismatch, language, id, stored, trimmed)
	}
	return nil
}

// InsertTranslation stores link t. Re-inserting the same link is a no-op.
func InsertTranslation(db DBExecutor, t Translation) error {
	if t.ID <= 0 || t.SourceWordID <= 0 || t.TargetWordID <= 0 {
		return fmt.Errorf("translation ids must be positive: %+v", t)
	}

	var src, tgt int64
	err := db.QueryRow(`INSERT INTO translations (id, source_word_id, target_word_id) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET id = translations.id
		RETURNING source_word_id, target_word_id`, t.ID, t.SourceWordID, t.TargetWordID).Scan(&src, &tgt)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: words %d/%d already linked under another id", ErrSnapshotMismatch, t.SourceWordID, t.TargetWordID)
		}
		return fmt.Errorf("upsert translation: %w", err)
	}
	if src != t.SourceWordID || tgt != t.TargetWordID {
		return fmt.Errorf("%w: translation %d links %d/%d, not %d/%d",
			ErrSnapshotMismatch, t.ID, src, tgt, t.SourceWordID, t.TargetWordID)
	}
	return nil
}

// ListWords returns the words of one language in id order.
func ListWords(db DBExecutor, language string) ([]Word, error) {
	rows, err := db.Query(`SELECT language, id, word FROM words WHERE language = ? ORDER BY id`, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Word
	for rows.Next() {
		var w Word
		if err := rows.Scan(&w.Language, &w.ID, &w.Word); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTranslations returns every link in id order.
func ListTranslations(db DBExecutor) ([]Translation, error) {
	rows, err := db.Query(`SELECT id, source_word_id, target_word_id FROM translations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Translation
	for rows.Next() {
		var t Translation
		if err := rows.Scan(&t.ID, &t.SourceWordID, &t.TargetWordID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountTranslations returns the number of stored links.
func CountTranslations(db DBExecutor) (int, error) {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM translations`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
