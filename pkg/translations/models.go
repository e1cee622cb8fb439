package translations

import "errors"

// Language identifies one side of the store by its ISO 639-1 code.
type Language string

const (
	Spanish   Language = "es"
	Bulgarian Language = "bg"
)

// Link associates one source-language word with one target-language word.
// IDs are assigned sequentially from 1 in insertion order.
type Link struct {
	ID           int64
	SourceWordID int64
	TargetWordID int64
}

// Row is a link resolved to its words, oriented by the requested languages.
type Row struct {
	ID     int64
	Source string
	Target string
}

// Stats summarizes a built store.
type Stats struct {
	SourceWords int
	TargetWords int
	Links       int
}

var (
	ErrEmptyWord       = errors.New("word must be non-empty")
	ErrUnknownLanguage = errors.New("unknown language")
	ErrUnknownLink     = errors.New("unknown link id")
	ErrEmptyStore      = errors.New("store has no links")
)
