package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/japaniel/aprendo/pkg/db"
	"github.com/japaniel/aprendo/pkg/etl"
	"github.com/japaniel/aprendo/pkg/translations"
)

func setupBenchmarkDB(b *testing.B) *sql.DB {
	conn, err := db.Open(":memory:")
	if err != nil {
		b.Fatalf("failed to open db: %v", err)
	}
	// Keep the focus on ingest throughput rather than fsync.
	_, _ = conn.Exec("PRAGMA synchronous = OFF")
	_, _ = conn.Exec("PRAGMA journal_mode = MEMORY")
	return conn
}

func generateBenchmarkRows(n int) []etl.Pair {
	rows := make([]etl.Pair, 0, n)
	for i := 0; i < n; i++ {
		switch i % 4 {
		case 0:
			rows = append(rows, etl.Pair{Source: fmt.Sprintf("rápido%d/a", i), Target: fmt.Sprintf("бърз%d", i)})
		case 1:
			rows = append(rows, etl.Pair{Source: fmt.Sprintf("perro%d, gato%d", i, i), Target: fmt.Sprintf("куче%d, котка%d", i, i)})
		case 2:
			rows = append(rows, etl.Pair{Source: fmt.Sprintf("yo tengo%d", i), Target: fmt.Sprintf("аз имам%d, притежавам%d", i, i)})
		default:
			rows = append(rows, etl.Pair{Source: fmt.Sprintf("hablar%d", i), Target: fmt.Sprintf("говоря%d/глагол", i)})
		}
	}
	return rows
}

func BenchmarkIngest(b *testing.B) {
	rows := generateBenchmarkRows(1000)
	n := etl.NewNormalizer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		conn := setupBenchmarkDB(b)
		ig := NewIngester(n, conn)
		ig.BatchSize = 100
		store := translations.New(translations.Spanish, translations.Bulgarian)
		b.StartTimer()

		_, err := ig.Ingest(context.Background(), store, rows)
		b.StopTimer()
		conn.Close()
		if err != nil {
			b.Fatalf("Ingest failed: %v", err)
		}
	}
}

func BenchmarkIngestConcurrencyScaling(b *testing.B) {
	rows := generateBenchmarkRows(1000)
	n := etl.NewNormalizer()

	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("Workers_%d", workers), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				ig := NewIngester(n, nil)
				ig.Workers = workers
				store := translations.New(translations.Spanish, translations.Bulgarian)
				if _, err := ig.Ingest(context.Background(), store, rows); err != nil {
					b.Fatalf("Ingest failed: %v", err)
				}
			}
		})
	}
}
