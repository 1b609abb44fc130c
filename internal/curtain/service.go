package curtain

import (
	"context"
	"encoding/binary"
	"math"
	"sync"

	"geocurtain/internal/elevation"
	"geocurtain/internal/geom"
	"geocurtain/internal/logging"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dgryski/go-farm"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned by a build whose boundary was rebuilt while it
// was in flight. Its result is never applied.
var ErrSuperseded = errors.New("curtain build superseded")

// Key fingerprints everything that changes the safe base of a path: the
// vertices, the sampling, the margin and the oracle credentials.
func Key(path geom.BoundaryPath, opts Options, credentials string) uint64 {
	buf := make([]byte, 0, 16*len(path)+40+len(credentials))
	for _, p := range path {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Lng))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(p.Lat))
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(opts.Samples))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(opts.Sampling))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(opts.SafetyMargin))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(opts.DeepFallback))
	buf = append(buf, credentials...)
	return farm.Fingerprint64(buf)
}

type scopeKey struct{}

// WithScope isolates builds made with ctx from builds in other scopes: a
// build only supersedes an in-flight build of the same boundary ID in the
// same scope. Scoped results are not retained for Latest.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

func scopeOf(ctx context.Context) string {
	scope, _ := ctx.Value(scopeKey{}).(string)
	return scope
}

// Metrics receives service outcomes; *observability.Collector satisfies it.
type Metrics interface {
	ObserveBuild(outcome string)
	ObserveCache(hit bool)
}

type ServiceConfig struct {
	Oracle  elevation.Oracle
	Options Options
	// CredentialsVersion identifies the oracle credentials; changing it
	// invalidates cached bases.
	CredentialsVersion string
	CacheSize          int64
	Parallelism        int
	Log                logging.Logger
	Metrics            Metrics
}

type resolved struct {
	base    SafeBase
	samples []elevation.Sample
}

type token struct {
	cancel context.CancelFunc
}

// Service builds curtains with a cache of resolved bases. Only the most
// recent build per boundary ID and scope is applied; older in-flight builds
// are cancelled and report ErrSuperseded.
type Service struct {
	opts        Options
	parallelism int
	log         logging.Logger
	metrics     Metrics
	cache       *ristretto.Cache[uint64, resolved]

	mu          sync.Mutex
	oracle      elevation.Oracle
	credentials string
	inflight    map[string]*token
	latest      map[string]Curtain
}

func NewService(cfg ServiceConfig) (*Service, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 1024
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint64, resolved]{
		NumCounters:        size * 10,
		MaxCost:            size,
		BufferItems:        64,
		IgnoreInternalCost: true, // every entry costs 1, MaxCost counts entries
	})
	if err != nil {
		return nil, errors.Wrap(err, "create base cache")
	}
	log := cfg.Log
	if log == nil {
		log = logging.Noop()
	}
	par := cfg.Parallelism
	if par <= 0 {
		par = 4
	}
	return &Service{
		opts:        cfg.Options,
		parallelism: par,
		log:         log,
		metrics:     cfg.Metrics,
		cache:       cache,
		oracle:      cfg.Oracle,
		credentials: cfg.CredentialsVersion,
		inflight:    make(map[string]*token),
		latest:      make(map[string]Curtain),
	}, nil
}

func (s *Service) Options() Options { return s.opts }

// SetOracle swaps the oracle and its credentials version. Cached bases
// computed under other credentials are no longer reachable.
func (s *Service) SetOracle(o elevation.Oracle, credentials string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oracle = o
	s.credentials = credentials
}

// Invalidate drops every cached base.
func (s *Service) Invalidate() { s.cache.Clear() }

// Latest returns the last applied curtain for id among unscoped builds.
func (s *Service) Latest(id string) (Curtain, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.latest[id]
	return c, ok
}

// Build computes the curtain for b and applies it, unless a newer build for
// the same boundary started meanwhile.
func (s *Service) Build(ctx context.Context, b geom.Boundary) (Curtain, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scope := scopeOf(ctx)
	slot := scope + "\x00" + b.ID
	s.mu.Lock()
	if prev, ok := s.inflight[slot]; ok {
		prev.cancel()
	}
	tok := &token{cancel: cancel}
	s.inflight[slot] = tok
	oracle, creds := s.oracle, s.credentials
	s.mu.Unlock()

	key := Key(b.Path, s.opts, creds)
	r, hit := s.cache.Get(key)
	s.observeCache(hit)
	if !hit {
		r.base, r.samples = ResolveBase(ctx, oracle, b.Path, s.opts)
		if !r.base.Fallback {
			s.cache.Set(key, r, 1)
		}
	}

	c, err := Assemble(b, r.base, r.samples, s.opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[slot] != tok {
		s.observeBuild("superseded")
		return Curtain{}, errors.Wrapf(ErrSuperseded, "boundary %s", b.ID)
	}
	delete(s.inflight, slot)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Curtain{}, errors.Wrapf(ctxErr, "boundary %s", b.ID)
	}

	if r.base.Fallback {
		s.log.Warn(ctx, "elevation unavailable, using deep fallback",
			logging.String("boundary", b.ID),
			logging.Float("safe_base", r.base.Elevation),
			logging.String("reason", r.base.Reason),
		)
	}
	switch {
	case err != nil:
		s.observeBuild("degenerate")
	case r.base.Fallback:
		s.observeBuild("fallback")
	default:
		s.observeBuild("ok")
	}
	if scope == "" {
		s.latest[b.ID] = c
	}
	return c, err
}

// Result is the outcome of one boundary in a batch.
type Result struct {
	ID      string
	Curtain Curtain
	Err     error
}

// BuildAll builds every boundary with bounded parallelism. Per-boundary
// failures are reported in the results and never stop the batch.
func (s *Service) BuildAll(ctx context.Context, bs []geom.Boundary) []Result {
	out := make([]Result, len(bs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, b := range bs {
		g.Go(func() error {
			c, err := s.Build(ctx, b)
			out[i] = Result{ID: b.ID, Curtain: c, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Close releases the cache.
func (s *Service) Close() { s.cache.Close() }

func (s *Service) observeBuild(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveBuild(outcome)
	}
}

func (s *Service) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveCache(hit)
	}
}

func isSuperseded(err error) bool { return errors.Is(err, ErrSuperseded) }
