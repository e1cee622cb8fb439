package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/japaniel/aprendo/pkg/db"
	"github.com/japaniel/aprendo/pkg/etl"
	"github.com/japaniel/aprendo/pkg/translations"
)

func setupDB(t *testing.T) *sql.DB {
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	return conn
}

func rawRows() []etl.Pair {
	return []etl.Pair{
		{Source: "variado/a", Target: "разнообразен"},
		{Source: "cansado, -a", Target: "уморен"},
		{Source: "perro, gato", Target: "куче, котка"},
		{Source: "yo tengo", Target: "аз имам, притежавам"},
		{Source: "hablar", Target: "говоря/глагол"},
		{Source: "casa/hogar", Target: "къща/дом"},
		{Source: "perro", Target: "куче"},
		{Source: "bonita", Target: "-а"},
		{Source: "  ", Target: "празно"},
		{Source: "libro", Target: "книга"},
	}
}

func sequentialBuild(n *etl.Normalizer, rows []etl.Pair) *translations.Store {
	var pairs []etl.Pair
	for _, r := range rows {
		pairs = append(pairs, n.Normalize(r)...)
	}
	return translations.Build(pairs)
}

func listLinks(t *testing.T, s *translations.Store) []translations.Row {
	t.Helper()
	rows, err := s.ListLinks(translations.Spanish, translations.Bulgarian)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	return rows
}

func TestIngestMatchesSequentialBuild(t *testing.T) {
	n := etl.NewNormalizer()
	want := sequentialBuild(n, rawRows())

	for _, workers := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			store := translations.New(translations.Spanish, translations.Bulgarian)
			ig := NewIngester(n, nil)
			ig.Workers = workers

			stats, err := ig.Ingest(context.Background(), store, rawRows())
			if err != nil {
				t.Fatalf("Ingest failed: %v", err)
			}
			if stats.Rows != len(rawRows()) {
				t.Errorf("expected %d rows, got %d", len(rawRows()), stats.Rows)
			}
			if stats.Links != want.Len() {
				t.Errorf("expected %d new links, got %d", want.Len(), stats.Links)
			}
			if !reflect.DeepEqual(listLinks(t, want), listLinks(t, store)) {
				t.Fatalf("parallel build differs from sequential build:\nwant %v\ngot  %v", listLinks(t, want), listLinks(t, store))
			}
		})
	}
}

func TestIngestWritesRestorableSnapshot(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	store := translations.New(translations.Spanish, translations.Bulgarian)
	ig := NewIngester(etl.NewNormalizer(), conn)
	ig.BatchSize = 2

	stats, err := ig.Ingest(context.Background(), store, rawRows())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	n, err := db.CountTranslations(conn)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != stats.Links || n != store.Len() {
		t.Fatalf("expected %d persisted links, got %d", store.Len(), n)
	}

	restored, err := Restore(conn)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if !reflect.DeepEqual(listLinks(t, store), listLinks(t, restored)) {
		t.Fatalf("restored store differs:\nwant %v\ngot  %v", listLinks(t, store), listLinks(t, restored))
	}
	if restored.Stats() != store.Stats() {
		t.Fatalf("expected stats %+v, got %+v", store.Stats(), restored.Stats())
	}
}

func TestIngestIsIdempotentAcrossRuns(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	store := translations.New(translations.Spanish, translations.Bulgarian)
	ig := NewIngester(etl.NewNormalizer(), conn)
	if _, err := ig.Ingest(context.Background(), store, rawRows()); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	before := store.Len()

	stats, err := ig.Ingest(context.Background(), store, rawRows())
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if stats.Links != 0 || store.Len() != before {
		t.Fatalf("expected no new links, got %d (store %d -> %d)", stats.Links, before, store.Len())
	}
}

func TestIngestWithoutNormalizer(t *testing.T) {
	store := translations.New(translations.Spanish, translations.Bulgarian)
	ig := NewIngester(nil, nil)
	rows := []etl.Pair{
		{Source: "perro", Target: "куче"},
		{Source: "", Target: "котка"},
		{Source: "gato", Target: "котка"},
		{Source: "perro", Target: "куче"},
	}

	stats, err := ig.Ingest(context.Background(), store, rows)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if stats != (Stats{Rows: 4, Pairs: 4, Links: 2}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestIngestReportsProgress(t *testing.T) {
	var calls [][2]int
	ig := NewIngester(nil, nil)
	ig.BatchSize = 2
	ig.OnProgress = func(current, total int) {
		calls = append(calls, [2]int{current, total})
	}
	rows := make([]etl.Pair, 5)
	for i := range rows {
		rows[i] = etl.Pair{Source: fmt.Sprintf("palabra%d", i), Target: fmt.Sprintf("дума%d", i)}
	}

	store := translations.New(translations.Spanish, translations.Bulgarian)
	if _, err := ig.Ingest(context.Background(), store, rows); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	want := [][2]int{{2, 5}, {4, 5}, {5, 5}}
	if !reflect.DeepEqual(want, calls) {
		t.Fatalf("expected progress %v, got %v", want, calls)
	}
}

func TestIngestContextCancel(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	rows := make([]etl.Pair, 100)
	for i := range rows {
		rows[i] = etl.Pair{Source: fmt.Sprintf("palabra%d", i), Target: fmt.Sprintf("дума%d", i)}
	}

	ig := NewIngester(etl.NewNormalizer(), conn)
	ig.BatchSize = 10

	// Create a context that is ALREADY canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := translations.New(translations.Spanish, translations.Bulgarian)
	stats, err := ig.Ingest(ctx, store, rows)
	if stats.Links != 0 || store.Len() != 0 {
		t.Errorf("Expected no links with cancelled context, got %d", stats.Links)
	}
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled error, got %v", err)
	}
}

func numberedRows(n int) []etl.Pair {
	rows := make([]etl.Pair, n)
	for i := range rows {
		rows[i] = etl.Pair{Source: fmt.Sprintf("w%d", i), Target: fmt.Sprintf("д%d", i)}
	}
	return rows
}

// cancelOn returns a normalizer whose only rule cancels the run when it sees source.
func cancelOn(source string, cancel context.CancelFunc) *etl.Normalizer {
	rule := func(p etl.Pair) []etl.Pair {
		if p.Source == source {
			cancel()
		}
		return nil
	}
	return etl.NewNormalizerWithRules(etl.KeepUnmatched, nil, rule)
}

func TestIngestCancelledDuringRunReportsError(t *testing.T) {
	rows := numberedRows(200)
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		ig := NewIngester(cancelOn("w0", cancel), nil)
		store := translations.New(translations.Spanish, translations.Bulgarian)

		stats, err := ig.Ingest(ctx, store, rows)
		cancel()
		if err == nil {
			if stats.Rows != len(rows) || store.Len() != len(rows) {
				t.Fatalf("run %d: no error but only %d/%d rows, %d links", i, stats.Rows, len(rows), store.Len())
			}
			continue
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run %d: expected context.Canceled, got %v", i, err)
		}
	}
}

func TestInterruptedBuildIsNotRestored(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ig := NewIngester(cancelOn("w150", cancel), conn)
	ig.BatchSize = 2
	store := translations.New(translations.Spanish, translations.Bulgarian)
	if _, err := ig.Ingest(ctx, store, numberedRows(300)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if _, err := Restore(conn); !errors.Is(err, db.ErrIncompleteSnapshot) {
		t.Fatalf("expected ErrIncompleteSnapshot, got %v", err)
	}
}

func TestInterruptedBuildRollsBackToLastFinishedBuild(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	first := translations.New(translations.Spanish, translations.Bulgarian)
	if _, err := NewIngester(etl.NewNormalizer(), conn).Ingest(context.Background(), first, rawRows()); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	want := listLinks(t, first)

	restored, err := Restore(conn)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ig := NewIngester(cancelOn("w150", cancel), conn)
	ig.BatchSize = 2
	if _, err := ig.Ingest(ctx, restored, numberedRows(300)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	n, err := db.CountTranslations(conn)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n > first.Len() {
		if _, err := Restore(conn); !errors.Is(err, db.ErrIncompleteSnapshot) {
			t.Fatalf("expected ErrIncompleteSnapshot with %d stored links, got %v", n, err)
		}
	}

	if _, err := db.DiscardIncomplete(conn); err != nil {
		t.Fatalf("DiscardIncomplete: %v", err)
	}
	again, err := Restore(conn)
	if err != nil {
		t.Fatalf("Restore after discard failed: %v", err)
	}
	if got := listLinks(t, again); !reflect.DeepEqual(want, got) {
		t.Fatalf("expected the finished build back:\nwant %v\ngot  %v", want, got)
	}
}

func TestIngestStopsWritingAfterFailedBatch(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()
	if err := db.SaveLanguages(conn, "es", "bg"); err != nil {
		t.Fatal(err)
	}
	// The fifth source word gets id 5, which the snapshot binds to another word.
	if err := db.InsertWord(conn, "es", 5, "otro"); err != nil {
		t.Fatal(err)
	}

	ig := NewIngester(nil, conn)
	ig.BatchSize = 2
	ig.FlushInterval = 0
	store := translations.New(translations.Spanish, translations.Bulgarian)
	_, err := ig.Ingest(context.Background(), store, numberedRows(20))
	if !errors.Is(err, db.ErrSnapshotMismatch) {
		t.Fatalf("expected ErrSnapshotMismatch, got %v", err)
	}

	links, err := db.ListTranslations(conn)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, l := range links {
		if l.ID > 4 {
			t.Fatalf("link %d committed after the failed batch", l.ID)
		}
	}
	if _, err := Restore(conn); !errors.Is(err, db.ErrIncompleteSnapshot) {
		t.Fatalf("expected ErrIncompleteSnapshot, got %v", err)
	}
}

// failingPool always returns an error on Submit to simulate producer error.
type failingPool struct{}

func (f *failingPool) Start(ctx context.Context) {}
func (f *failingPool) Submit(job Job) error      { return errors.New("submit failed") }
func (f *failingPool) SubmitCtx(ctx context.Context, job Job) error {
	return errors.New("submit failed")
}
func (f *failingPool) Close() {}

func TestIngestHandlesSubmitError(t *testing.T) {
	ig := NewIngester(etl.NewNormalizer(), nil)
	ig.PoolFactory = func(workers, queue int) WorkerPoolInterface { return &failingPool{} }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	store := translations.New(translations.Spanish, translations.Bulgarian)
	_, err := ig.Ingest(ctx, store, rawRows())
	if err == nil {
		t.Fatalf("expected submit error, got nil")
	}
}

func TestIngestRejectsSnapshotOfOtherLanguages(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()
	if err := db.SaveLanguages(conn, "bg", "es"); err != nil {
		t.Fatal(err)
	}

	store := translations.New(translations.Spanish, translations.Bulgarian)
	_, err := NewIngester(nil, conn).Ingest(context.Background(), store, []etl.Pair{{Source: "perro", Target: "куче"}})
	if !errors.Is(err, db.ErrSnapshotMismatch) {
		t.Fatalf("expected ErrSnapshotMismatch, got %v", err)
	}
}

func TestRestoreDetectsGaps(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()

	store := translations.New(translations.Spanish, translations.Bulgarian)
	if _, err := NewIngester(nil, conn).Ingest(context.Background(), store, []etl.Pair{
		{Source: "perro", Target: "куче"},
		{Source: "gato", Target: "котка"},
	}); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if _, err := conn.Exec(`UPDATE translations SET id = 7 WHERE id = 2`); err != nil {
		t.Fatal(err)
	}

	restored, err := Restore(conn)
	if !errors.Is(err, db.ErrSnapshotMismatch) {
		t.Fatalf("expected ErrSnapshotMismatch, got %v", err)
	}
	if restored != nil {
		t.Fatalf("expected no store on failure")
	}
}

func TestRestoreEmptySnapshot(t *testing.T) {
	conn := setupDB(t)
	defer conn.Close()
	if _, err := Restore(conn); !errors.Is(err, db.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}
