package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/japaniel/aprendo/pkg/db"
	"github.com/japaniel/aprendo/pkg/etl"
	"github.com/japaniel/aprendo/pkg/translations"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Stats summarizes one Ingest run.
type Stats struct {
	Rows  int // raw rows inserted, in input order
	Pairs int // normalized pairs produced for those rows
	Links int // links that were new to the store
}

// Ingester builds a translation store from raw rows. Rows are normalized in
// parallel, then inserted in input order by a single goroutine so link ids
// come out the same as a sequential build. When DB is set every new link is
// also written to the SQLite snapshot in batched transactions, and the
// snapshot is marked complete only when the whole run succeeded.
type Ingester struct {
	// Normalizer is applied to every row. nil inserts rows as they are.
	Normalizer *etl.Normalizer
	// DB receives the snapshot. nil keeps the build in memory only.
	DB            *sql.DB
	BatchSize     int
	FlushInterval time.Duration
	// Logger is used for the run summary and skipped pairs. nil means no logging.
	Logger *log.Logger
	// OnProgress is called every BatchSize rows with the number of inserted rows and total rows.
	OnProgress func(current, total int)

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates a new Ingester.
func NewIngester(n *etl.Normalizer, conn *sql.DB) *Ingester {
	return &Ingester{
		Normalizer:    n,
		DB:            conn,
		BatchSize:     50,
		FlushInterval: 100 * time.Millisecond,
		Workers:       4,
	}
}

// normalizedRow is the output of one worker job.
type normalizedRow struct {
	Index int
	Pairs []etl.Pair
}

func (ig *Ingester) normalize(row etl.Pair) []etl.Pair {
	if ig.Normalizer == nil {
		return []etl.Pair{row}
	}
	return ig.Normalizer.Normalize(row)
}

// Ingest normalizes rows and inserts the resulting pairs into store. The
// store must not be used by anything else until Ingest returns.
func (ig *Ingester) Ingest(ctx context.Context, store *translations.Store, rows []etl.Pair) (Stats, error) {
	if len(rows) == 0 {
		return Stats{}, nil
	}

	if ig.DB != nil {
		source, target := store.Languages()
		if err := db.SaveLanguages(ig.DB, string(source), string(target)); err != nil {
			return Stats{}, fmt.Errorf("save languages: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(ig.Workers, ig.Workers*2)
	} else {
		wp = NewWorkerPool(ig.Workers, ig.Workers*2)
	}
	resultCh := make(chan normalizedRow, ig.Workers*2)
	doneCh := make(chan error, 1)

	var bw *BatchWriter
	if ig.DB != nil {
		bw = NewBatchWriter(ig.DB, ig.BatchSize, ig.FlushInterval)
		bw.Logger = ig.Logger
		// A failed batch stops the run; Close reports the error.
		bw.OnError = func(error) { cancel() }
	}

	wp.Start(ctx)

	var stats Stats
	go func() {
		buffer := make(map[int]normalizedRow)
		next := 0

		// apply inserts every buffered row that continues the input order.
		apply := func() error {
			for {
				item, ok := buffer[next]
				if !ok {
					return nil
				}
				delete(buffer, next)
				if err := ig.insert(store, item.Pairs, bw, &stats); err != nil {
					return err
				}
				stats.Rows++
				next++
				if ig.OnProgress != nil && ig.BatchSize > 0 && next%ig.BatchSize == 0 {
					ig.OnProgress(next, len(rows))
				}
			}
		}

		for {
			select {
			case <-ctx.Done():
				doneCh <- ctx.Err()
				return
			default:
			}

			res, ok := <-resultCh
			if !ok {
				err := apply()
				if err == nil && next < len(rows) {
					// Workers drop their results once ctx is done.
					err = ctx.Err()
					if err == nil {
						err = fmt.Errorf("ingest stopped after %d of %d rows", next, len(rows))
					}
				}
				if err == nil && ig.OnProgress != nil {
					ig.OnProgress(next, len(rows))
				}
				doneCh <- err
				return
			}
			buffer[res.Index] = res
			if err := apply(); err != nil {
				// Stop the producers so they don't block on resultCh.
				cancel()
				doneCh <- err
				return
			}
		}
	}()

	var submitErr error
Loop:
	for i, row := range rows {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx, row := i, row
		job := func(ctx context.Context) error {
			res := normalizedRow{Index: idx, Pairs: ig.normalize(row)}
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrPoolClosed) {
				break Loop
			}
			submitErr = fmt.Errorf("submit row %d: %w", idx, err)
			cancel()
			break Loop
		}
	}

	// All workers have returned once Close does, so nothing sends on resultCh after this.
	wp.Close()
	close(resultCh)
	err := <-doneCh

	if bw != nil {
		if cerr := bw.Close(); cerr != nil {
			err = fmt.Errorf("write snapshot: %w", cerr)
		}
	}
	if submitErr != nil {
		err = submitErr
	}
	if err != nil {
		return stats, err
	}
	if ig.DB != nil {
		if err := db.MarkComplete(ig.DB, store.Len()); err != nil {
			return stats, err
		}
	}

	if ig.Logger != nil {
		ig.Logger.Info("ingest finished", "rows", stats.Rows, "pairs", stats.Pairs, "new_links", stats.Links)
	}
	return stats, nil
}

// insert adds pairs to store and queues a snapshot write for every new link.
func (ig *Ingester) insert(store *translations.Store, pairs []etl.Pair, bw *BatchWriter, stats *Stats) error {
	stats.Pairs += len(pairs)
	for _, p := range pairs {
		before := store.Len()
		id, err := store.Insert(p.Source, p.Target)
		if err != nil {
			if ig.Logger != nil {
				ig.Logger.Debug("skipping pair", "source", p.Source, "target", p.Target, "err", err)
			}
			continue
		}
		if store.Len() == before {
			continue
		}
		stats.Links++

		if bw == nil {
			continue
		}
		w, err := snapshotLink(store, id)
		if err != nil {
			return err
		}
		if err := bw.Submit(w); err != nil {
			return fmt.Errorf("queue link %d: %w", id, err)
		}
	}
	return nil
}
