package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/text/unicode/norm"
)

// Labels name the two columns of the ETL output header.
type Labels struct {
	Source string
	Target string
}

// DefaultLabels match the Spanish/Bulgarian export.
var DefaultLabels = Labels{Source: "Spanish", Target: "Bulgarian"}

// Stats summarizes one ETL run.
type Stats struct {
	Rows     int // two-column rows read after the header
	Skipped  int // rows with a column count other than two
	Emitted  int // pairs written
	Filtered int // pairs removed by the post filter
}

// RowReader reads two-column rows from comma separated, quote escaped text.
// The first row is a header and is discarded. Cells are NFC normalized.
type RowReader struct {
	r       *csv.Reader
	started bool
	skipped int
	// Logger receives a debug line per skipped row. nil means no logging.
	Logger *log.Logger
}

// NewRowReader wraps r.
func NewRowReader(r io.Reader) *RowReader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &RowReader{r: cr}
}

// Next returns the next two-column row. Rows of any other width are skipped.
// It returns io.EOF when the input is exhausted.
func (rr *RowReader) Next() (Pair, error) {
	if !rr.started {
		rr.started = true
		if _, err := rr.r.Read(); err != nil {
			return Pair{}, err
		}
	}
	for {
		rec, err := rr.r.Read()
		if err != nil {
			return Pair{}, err
		}
		if len(rec) != 2 {
			rr.skipped++
			if rr.Logger != nil {
				line, _ := rr.r.FieldPos(0)
				rr.Logger.Debug("skipping row", "line", line, "fields", len(rec))
			}
			continue
		}
		return Pair{Source: norm.NFC.String(rec[0]), Target: norm.NFC.String(rec[1])}, nil
	}
}

// Skipped returns the number of rows dropped for having the wrong width.
func (rr *RowReader) Skipped() int { return rr.skipped }

// ReadRows reads every two-column row of r.
func ReadRows(r io.Reader, logger *log.Logger) ([]Pair, int, error) {
	rr := NewRowReader(r)
	rr.Logger = logger
	var rows []Pair
	for {
		p, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return rows, rr.Skipped(), nil
		}
		if err != nil {
			return nil, rr.Skipped(), fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, p)
	}
}

// Transformer turns a raw export into normalized pairs written as CSV.
type Transformer struct {
	Normalizer *Normalizer
	Labels     Labels
	// Logger is used for the run summary and skipped rows. nil means no logging.
	Logger *log.Logger
}

// NewTransformer creates a Transformer using n and DefaultLabels.
func NewTransformer(n *Normalizer) *Transformer {
	if n == nil {
		n = NewNormalizer()
	}
	return &Transformer{Normalizer: n, Labels: DefaultLabels}
}

// Transform reads raw rows from r and writes the header plus one row per
// normalized, filtered pair to w.
func (t *Transformer) Transform(r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats

	rr := NewRowReader(r)
	rr.Logger = t.Logger

	var results []Pair
	for {
		raw, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row: %w", err)
		}
		stats.Rows++
		results = append(results, t.Normalizer.Apply(raw)...)
	}
	stats.Skipped = rr.Skipped()

	kept := t.Normalizer.filter.Apply(results)
	stats.Filtered = len(results) - len(kept)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{t.Labels.Source, t.Labels.Target}); err != nil {
		return stats, fmt.Errorf("write header: %w", err)
	}
	for _, p := range kept {
		if err := cw.Write([]string{p.Source, p.Target}); err != nil {
			return stats, fmt.Errorf("write row: %w", err)
		}
		stats.Emitted++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, fmt.Errorf("flush output: %w", err)
	}

	if t.Logger != nil {
		t.Logger.Info("etl complete",
			"rows", stats.Rows,
			"skipped", stats.Skipped,
			"emitted", stats.Emitted,
			"filtered", stats.Filtered,
		)
	}
	return stats, nil
}

// TransformFile opens the raw export at path and transforms it into w.
// A missing or unreadable file fails before anything is written.
func (t *Transformer) TransformFile(path string, w io.Writer) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return t.Transform(f, w)
}
