package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/japaniel/aprendo/pkg/config"
	"github.com/japaniel/aprendo/pkg/db"
	"github.com/japaniel/aprendo/pkg/etl"
	"github.com/japaniel/aprendo/pkg/ingest"
	"github.com/japaniel/aprendo/pkg/quiz"
	"github.com/japaniel/aprendo/pkg/translations"
)

type app struct {
	cfg    *config.Config
	log    *log.Logger
	stdin  io.Reader
	stdout io.Writer
}

func (a *app) languages() (translations.Language, translations.Language) {
	return translations.Language(a.cfg.ETL.SourceLang), translations.Language(a.cfg.ETL.TargetLang)
}

func (a *app) normalizer() (*etl.Normalizer, error) {
	mode, err := etl.ParseMode(a.cfg.ETL.Unmatched)
	if err != nil {
		return nil, err
	}
	return etl.NewNormalizerWithRules(mode, nil, etl.DefaultRules()...), nil
}

// loadStore restores the snapshot at dbPath, or loads the configured CSV
// when dbPath is empty.
func (a *app) loadStore(dbPath string) (*translations.Store, error) {
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("open snapshot: %w", err)
		}
		conn, err := db.Open(dbPath)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return ingest.Restore(conn)
	}

	source, target := a.languages()
	p := translations.NewProvider(a.cfg.Data.CSVPath(),
		translations.WithLanguages(source, target),
		translations.WithLogger(a.log),
	)
	return p.Get()
}

func (a *app) etl(args []string) error {
	fs := flag.NewFlagSet("etl", flag.ExitOnError)
	in := fs.String("in", "", "Raw export CSV")
	out := fs.String("out", "", "Output CSV (default stdout)")
	fs.Parse(args)

	if *in == "" {
		return errors.New("please provide -in")
	}
	n, err := a.normalizer()
	if err != nil {
		return err
	}
	t := etl.NewTransformer(n)
	t.Labels = etl.Labels{Source: a.cfg.ETL.SourceLabel, Target: a.cfg.ETL.TargetLabel}
	t.Logger = a.log

	// Open the input first so a missing file never truncates -out.
	f, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	w := a.stdout
	if *out != "" {
		of, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer of.Close()
		w = of
	}
	_, err = t.Transform(f, w)
	return err
}

func (a *app) build(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	in := fs.String("in", "", "Normalized translations CSV (default from config)")
	raw := fs.String("raw", "", "Raw export CSV, normalized while building")
	dbPath := fs.String("db", a.cfg.Data.DBPath, "Path to SQLite snapshot")
	fs.Parse(args)

	if *in != "" && *raw != "" {
		return errors.New("use either -in or -raw, not both")
	}

	path := *in
	var n *etl.Normalizer
	if *raw != "" {
		path = *raw
		var err error
		if n, err = a.normalizer(); err != nil {
			return err
		}
	} else if path == "" {
		path = a.cfg.Data.CSVPath()
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	rows, skipped, err := etl.ReadRows(f, a.log)
	f.Close()
	if err != nil {
		return err
	}

	conn, err := db.Open(*dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Rows of an interrupted build would clash with the ids handed out now.
	discarded, err := db.DiscardIncomplete(conn)
	if err != nil {
		return fmt.Errorf("discard unfinished build: %w", err)
	}
	if discarded > 0 {
		a.log.Warn("discarded links of an unfinished build", "links", discarded, "db", *dbPath)
	}

	// Continue from an existing snapshot so link ids stay stable.
	store, err := ingest.Restore(conn)
	if errors.Is(err, db.ErrNoSnapshot) {
		source, target := a.languages()
		store, err = translations.New(source, target), nil
	}
	if err != nil {
		return err
	}

	ig := ingest.NewIngester(n, conn)
	ig.Workers = a.cfg.ETL.Workers
	ig.BatchSize = a.cfg.ETL.BatchSize
	ig.Logger = a.log
	stats, err := ig.Ingest(ctx, store, rows)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Read %d rows (%d skipped), %d new links, %d links in %s\n",
		stats.Rows, skipped, stats.Links, store.Len(), *dbPath)
	return nil
}

func (a *app) list(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dbPath := fs.String("db", "", "Path to SQLite snapshot (default: load the CSV)")
	direction := fs.String("direction", "es-bg", "es-bg or bg-es")
	fs.Parse(args)

	dir, err := quiz.ParseDirection(*direction)
	if err != nil {
		return err
	}
	store, err := a.loadStore(*dbPath)
	if err != nil {
		return err
	}
	rows, err := store.ListLinks(dir.From, dir.To)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(a.stdout)
	for _, r := range rows {
		if err := cw.Write([]string{strconv.FormatInt(r.ID, 10), r.Source, r.Target}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (a *app) lookup(args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	word := fs.String("word", "", "Word to translate")
	from := fs.String("from", a.cfg.ETL.SourceLang, "Language of -word")
	dbPath := fs.String("db", "", "Path to SQLite snapshot (default: load the CSV)")
	fs.Parse(args)

	if strings.TrimSpace(*word) == "" {
		return errors.New("please provide -word")
	}
	store, err := a.loadStore(*dbPath)
	if err != nil {
		return err
	}
	for _, t := range store.Lookup(*word, translations.Language(*from)) {
		fmt.Fprintln(a.stdout, t)
	}
	return nil
}

func (a *app) stats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := fs.String("db", "", "Path to SQLite snapshot (default: load the CSV)")
	fs.Parse(args)

	store, err := a.loadStore(*dbPath)
	if err != nil {
		return err
	}
	source, target := store.Languages()
	st := store.Stats()
	fmt.Fprintf(a.stdout, "%s words: %d\n%s words: %d\nlinks: %d\n", source, st.SourceWords, target, st.TargetWords, st.Links)
	return nil
}

func (a *app) quiz(args []string) error {
	fs := flag.NewFlagSet("quiz", flag.ExitOnError)
	direction := fs.String("direction", a.cfg.Quiz.Direction, "es-bg or bg-es")
	ranges := fs.String("ranges", a.cfg.Quiz.Ranges, "Restrict to link ids, e.g. 1-10,20-30")
	seed := fs.Uint64("seed", a.cfg.Quiz.Seed, "Random seed (0 for a random one)")
	dbPath := fs.String("db", "", "Path to SQLite snapshot (default: load the CSV)")
	fs.Parse(args)

	dir, err := quiz.ParseDirection(*direction)
	if err != nil {
		return err
	}
	store, err := a.loadStore(*dbPath)
	if err != nil {
		return err
	}

	var opts []quiz.SamplerOption
	if *seed != 0 {
		opts = append(opts, quiz.WithSeed(*seed))
	}
	sampler := quiz.NewSampler(store, opts...)
	sampler.Logger = a.log
	sess := quiz.NewSession(sampler, dir)
	if err := sess.SetRanges(*ranges); err != nil {
		return err
	}
	a.log.Debug("quiz started", "session", sess.ID, "direction", dir, "ranges", sess.RangesText())

	return runQuiz(sess, a.stdin, a.stdout)
}

// runQuiz reads one answer per line. ":q" quits, ":dir es-bg" switches the
// direction and ":ranges 1-10" changes the id ranges.
func runQuiz(sess *quiz.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s (ranges: %s)\n", sess.Direction(), rangesLabel(sess))

	pick, err := sess.Next()
	if err != nil {
		return err
	}
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "[%d] %s\n> ", pick.LinkID, pick.Word)
		if !sc.Scan() {
			break
		}
		line := sc.Text()

		switch {
		case strings.TrimSpace(line) == ":q":
			return summary(sess, out)
		case strings.HasPrefix(line, ":dir"):
			dir, err := quiz.ParseDirection(strings.TrimPrefix(line, ":dir"))
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if pick, err = sess.SetDirection(dir); err != nil {
				return err
			}
			fmt.Fprintln(out, dir)
			continue
		case strings.HasPrefix(line, ":ranges"):
			if err := sess.SetRanges(strings.TrimPrefix(line, ":ranges")); err != nil {
				fmt.Fprintln(out, err)
			} else {
				fmt.Fprintf(out, "ranges: %s\n", rangesLabel(sess))
			}
			continue
		}

		att, err := sess.Check(line)
		if err != nil {
			return err
		}
		switch {
		case att.Correct:
			fmt.Fprintf(out, "correct (%s)\n", strings.Join(att.Expected, ", "))
		case att.Answer == quiz.SkippedAnswer:
			fmt.Fprintf(out, "skipped, expected: %s\n", strings.Join(att.Expected, ", "))
		default:
			fmt.Fprintf(out, "wrong, expected: %s\n", strings.Join(att.Expected, ", "))
		}

		if pick, err = sess.Next(); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return summary(sess, out)
}

func rangesLabel(sess *quiz.Session) string {
	if len(sess.Ranges()) == 0 {
		return "all"
	}
	return sess.RangesText()
}

func summary(sess *quiz.Session, out io.Writer) error {
	attempts := sess.Attempts()
	correct := 0
	for _, a := range attempts {
		if a.Correct {
			correct++
		}
	}
	_, err := fmt.Fprintf(out, "score: %d/%d\n", correct, len(attempts))
	return err
}
