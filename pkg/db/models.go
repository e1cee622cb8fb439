package db

// Word is one row of the per-language word dictionary.
type Word struct {
	Language string
	ID       int64
	Word     string
}

// Translation links a source word to a target word. IDs match the
// in-memory store's link ids.
type Translation struct {
	ID           int64
	SourceWordID int64
	TargetWordID int64
}
