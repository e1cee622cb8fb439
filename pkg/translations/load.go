package translations

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/japaniel/aprendo/pkg/etl"
)

type options struct {
	source, target Language
	logger         *log.Logger
}

// Option configures Load, Read and Build.
type Option func(*options)

// WithLanguages sets the languages of the built store. The default is
// Spanish to Bulgarian.
func WithLanguages(source, target Language) Option {
	return func(o *options) {
		o.source, o.target = source, target
	}
}

// WithLogger logs skipped rows and the build summary to l.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{source: Spanish, target: Bulgarian}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Build creates a store from normalized pairs. Pairs with an empty side
// are skipped; duplicates collapse onto one link.
func Build(pairs []etl.Pair, opts ...Option) *Store {
	o := buildOptions(opts)
	s := New(o.source, o.target)
	for _, p := range pairs {
		if _, err := s.Insert(p.Source, p.Target); err != nil && o.logger != nil {
			o.logger.Debug("skipping pair", "source", p.Source, "target", p.Target, "err", err)
		}
	}
	logBuilt(o.logger, s)
	return s
}

// Read builds a store from normalized CSV (header row, then two columns).
// On error no store is returned.
func Read(r io.Reader, opts ...Option) (*Store, error) {
	o := buildOptions(opts)
	s := New(o.source, o.target)

	rr := etl.NewRowReader(r)
	rr.Logger = o.logger
	for {
		p, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read translations: %w", err)
		}
		if _, err := s.Insert(p.Source, p.Target); err != nil && o.logger != nil {
			o.logger.Debug("skipping pair", "source", p.Source, "target", p.Target, "err", err)
		}
	}
	logBuilt(o.logger, s)
	return s, nil
}

// Load builds a store from the normalized CSV file at path.
func Load(path string, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open translations: %w", err)
	}
	defer f.Close()
	return Read(f, opts...)
}

func logBuilt(l *log.Logger, s *Store) {
	if l == nil {
		return
	}
	st := s.Stats()
	l.Info("translations loaded",
		string(s.source)+"_words", st.SourceWords,
		string(s.target)+"_words", st.TargetWords,
		"links", st.Links,
	)
}

// Provider hands out one store per serving context, built on first use.
// A failed build is not remembered; the next Get tries again.
type Provider struct {
	load  func() (*Store, error)
	mu    sync.Mutex
	store *Store
}

// NewProvider returns a Provider that loads the CSV at path.
func NewProvider(path string, opts ...Option) *Provider {
	return NewProviderFunc(func() (*Store, error) {
		return Load(path, opts...)
	})
}

// NewProviderFunc returns a Provider backed by an arbitrary loader.
func NewProviderFunc(load func() (*Store, error)) *Provider {
	return &Provider{load: load}
}

// Get returns the store, building it if this is the first successful call.
func (p *Provider) Get() (*Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store != nil {
		return p.store, nil
	}
	s, err := p.load()
	if err != nil {
		return nil, err
	}
	p.store = s
	return s, nil
}
