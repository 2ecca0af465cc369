// Package service coordinates source loading for the CLI and the API
// server: it owns the configured sources, serializes loads per source, and
// keeps persisted status and metrics up to date.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sdkforge/repo-resolver/internal/packages"
	"github.com/sdkforge/repo-resolver/internal/source"
	"github.com/sdkforge/repo-resolver/internal/status"
	"github.com/sdkforge/repo-resolver/internal/telemetry"
)

var (
	// ErrSourceNotFound is returned when no configured source matches the
	// requested name or URL
	ErrSourceNotFound = errors.New("source not found")

	// ErrLoadInProgress is returned when a load is requested for a source
	// that is already being loaded
	ErrLoadInProgress = errors.New("load already in progress for this source")
)

// Definition describes one configured source.
type Definition struct {
	URL   string
	Name  string
	Trust packages.Trust
}

// SourceInfo is a read-only snapshot of one source's state.
type SourceInfo struct {
	Name         string               `json:"name"`
	URL          string               `json:"url"`
	Trusted      bool                 `json:"trusted"`
	Description  string               `json:"description"`
	FetchError   string               `json:"fetchError,omitempty"`
	PackageCount int                  `json:"packageCount"`
	Status       *status.SourceStatus `json:"status,omitempty"`
}

// managedSource pairs a source with the mutex serializing its loads.
type managedSource struct {
	def Definition
	src *source.Source
	mu  sync.Mutex
}

// Resolver is the source resolution service.
type Resolver struct {
	loader      *source.Loader
	persistence status.Persistence
	metrics     *telemetry.LoadMetrics
	log         *zap.SugaredLogger
	forceHTTP   bool

	sources map[string]*managedSource
	order   []string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStatusPersistence enables persisted per-source status.
func WithStatusPersistence(p status.Persistence) Option {
	return func(r *Resolver) { r.persistence = p }
}

// WithMetrics enables load metrics.
func WithMetrics(m *telemetry.LoadMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithForceHTTP rewrites https source URLs to plain http on every load.
func WithForceHTTP(force bool) Option {
	return func(r *Resolver) { r.forceHTTP = force }
}

// New creates a Resolver managing the given sources. Each definition's name
// defaults to its URL; names must be unique.
func New(loader *source.Loader, defs []Definition, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		loader:  loader,
		log:     zap.NewNop().Sugar(),
		sources: make(map[string]*managedSource, len(defs)),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, def := range defs {
		name := def.Name
		if name == "" {
			name = def.URL
		}
		if _, exists := r.sources[name]; exists {
			return nil, fmt.Errorf("duplicate source name %q", name)
		}
		r.sources[name] = &managedSource{
			def: def,
			src: source.New(def.URL, def.Name, def.Trust),
		}
		r.order = append(r.order, name)
	}

	return r, nil
}

// ListSources returns a snapshot of every configured source, in
// configuration order.
func (r *Resolver) ListSources(ctx context.Context) []SourceInfo {
	infos := make([]SourceInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.snapshot(ctx, name, r.sources[name]))
	}
	return infos
}

// GetSource returns a snapshot of one source by name.
func (r *Resolver) GetSource(ctx context.Context, name string) (*SourceInfo, error) {
	ms, ok := r.sources[name]
	if !ok {
		return nil, ErrSourceNotFound
	}
	info := r.snapshot(ctx, name, ms)
	return &info, nil
}

// GetPackages returns the packages last loaded for the named source. The
// slice is nil when the source has never loaded successfully.
func (r *Resolver) GetPackages(_ context.Context, name string) ([]*packages.Package, error) {
	ms, ok := r.sources[name]
	if !ok {
		return nil, ErrSourceNotFound
	}
	return ms.src.Packages(), nil
}

// LoadSource loads one source by name. Concurrent loads of the same source
// are rejected with ErrLoadInProgress rather than queued.
func (r *Resolver) LoadSource(ctx context.Context, name string, mon source.Monitor) (*source.Outcome, error) {
	ms, ok := r.sources[name]
	if !ok {
		return nil, ErrSourceNotFound
	}

	if !ms.mu.TryLock() {
		return nil, ErrLoadInProgress
	}
	defer ms.mu.Unlock()

	start := time.Now()
	out := r.loader.Load(ctx, ms.src, mon, r.forceHTTP)
	r.metrics.RecordLoad(ctx, ms.def.URL, len(out.Packages), time.Since(start), out.Packages != nil)

	r.persistOutcome(ctx, ms, out)
	return out, nil
}

// LoadAll loads every configured source concurrently and returns the
// outcome per source name. Individual failures are data on the outcome,
// not errors; the returned error covers infrastructure only.
func (r *Resolver) LoadAll(ctx context.Context) (map[string]*source.Outcome, error) {
	var mu sync.Mutex
	outcomes := make(map[string]*source.Outcome, len(r.order))

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range r.order {
		g.Go(func() error {
			out, err := r.LoadSource(ctx, name, nil)
			if err != nil {
				// Only ErrLoadInProgress can happen here; skip that source.
				r.log.Warnf("Skipping source %q: %v", name, err)
				return nil
			}
			mu.Lock()
			outcomes[name] = out
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

// CheckReadiness reports whether the service can serve requests.
func (r *Resolver) CheckReadiness(_ context.Context) error {
	if len(r.sources) == 0 {
		return fmt.Errorf("no sources configured")
	}
	return nil
}

func (r *Resolver) snapshot(ctx context.Context, name string, ms *managedSource) SourceInfo {
	info := SourceInfo{
		Name:         name,
		URL:          ms.src.URL(),
		Trusted:      ms.def.Trust == packages.TrustInternal,
		Description:  ms.src.Description(),
		FetchError:   ms.src.FetchError(),
		PackageCount: len(ms.src.Packages()),
	}

	if r.persistence != nil {
		st, err := r.persistence.LoadStatus(ctx, status.SourceKey(ms.def.URL))
		if err != nil {
			r.log.Warnf("Failed to load status for source %q: %v", name, err)
		} else if st.Phase != "" {
			info.Status = st
		}
	}

	return info
}

func (r *Resolver) persistOutcome(ctx context.Context, ms *managedSource, out *source.Outcome) {
	if r.persistence == nil {
		return
	}

	key := status.SourceKey(ms.def.URL)
	st, err := r.persistence.LoadStatus(ctx, key)
	if err != nil {
		r.log.Warnf("Failed to load status for source %q: %v", ms.def.URL, err)
		st = &status.SourceStatus{}
	}

	st.RecordOutcome(out, time.Now().UTC())
	if err := r.persistence.SaveStatus(ctx, key, st); err != nil {
		r.log.Warnf("Failed to save status for source %q: %v", ms.def.URL, err)
	}
}
