package curtain

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"geocurtain/internal/elevation"
	"geocurtain/internal/geom"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func squareBoundary(id string) geom.Boundary {
	return geom.Boundary{
		ID:     id,
		Kind:   "polygon",
		Closed: true,
		Path:   geom.BoundaryPath{geom.Pt(0, 0), geom.Pt(0.01, 0), geom.Pt(0.01, 0.01), geom.Pt(0, 0.01)},
	}
}

type countingOracle struct {
	calls atomic.Int32
	elev  float64
}

func (o *countingOracle) Elevations(_ context.Context, pts []geom.GeoPoint) ([]float64, error) {
	o.calls.Add(1)
	return elevation.Constant(o.elev).Elevations(context.Background(), pts)
}

type fakeMetrics struct {
	mu     sync.Mutex
	builds map[string]int
	hits   int
	misses int
}

func (f *fakeMetrics) ObserveBuild(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.builds == nil {
		f.builds = map[string]int{}
	}
	f.builds[outcome]++
}

func (f *fakeMetrics) ObserveCache(hit bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func newTestService(t *testing.T, o elevation.Oracle, m Metrics) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		Oracle:             o,
		Options:            DefaultOptions(),
		CredentialsVersion: "v1",
		CacheSize:          64,
		Parallelism:        2,
		Metrics:            m,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func TestPipelineBuild(t *testing.T) {
	p := Pipeline{Oracle: elevation.Constant(100), Opts: DefaultOptions()}
	c, err := p.Build(context.Background(), squareBoundary("sq"))
	require.NoError(t, err)
	require.False(t, c.Base.Fallback)
	require.Equal(t, -200.0, c.BottomZ)
	require.Equal(t, 600.0, c.TopZ)
	require.Len(t, c.Mesh.Vertices, 8)
	require.Len(t, c.Samples, 10)
	require.Equal(t, geom.Pt(0.005, 0.005), c.Frame.Anchor)
	require.Equal(t, c.Frame.Anchor, c.Placement.Anchor)

	opts := DefaultOptions()
	opts.TopMode = TopAbsolute
	opts.Anchor = AnchorFirstVertex
	c, err = Pipeline{Oracle: elevation.Constant(100), Opts: opts}.Build(context.Background(), squareBoundary("sq"))
	require.NoError(t, err)
	require.Equal(t, 800.0, c.TopZ)
	require.Equal(t, geom.Pt(0, 0), c.Frame.Anchor)
	require.Equal(t, [3]float64{0, 0, 800}, c.Mesh.Vertices[0])
}

func TestPipelineFallsBackOnOracleFailure(t *testing.T) {
	failing := elevation.Func(func(context.Context, []geom.GeoPoint) ([]float64, error) {
		return nil, errors.New("quota exceeded")
	})
	c, err := Pipeline{Oracle: failing, Opts: DefaultOptions()}.Build(context.Background(), squareBoundary("sq"))
	require.NoError(t, err)
	require.True(t, c.Base.Fallback)
	require.Equal(t, DefaultDeepFallback, c.BottomZ)
	require.Contains(t, c.Base.Reason, "quota exceeded")
	require.False(t, c.Mesh.Empty())
}

func TestPipelineDegenerate(t *testing.T) {
	b := geom.Boundary{ID: "dot", Path: geom.BoundaryPath{geom.Pt(1, 1)}}
	c, err := Pipeline{Oracle: elevation.Constant(0), Opts: DefaultOptions()}.Build(context.Background(), b)
	require.True(t, errors.Is(err, ErrDegenerateInput))
	require.True(t, c.Mesh.Empty())
	require.True(t, c.Base.Fallback)
}

func TestServiceCachesBase(t *testing.T) {
	o := &countingOracle{elev: 10}
	m := &fakeMetrics{}
	svc := newTestService(t, o, m)
	ctx := context.Background()

	first, err := svc.Build(ctx, squareBoundary("a"))
	require.NoError(t, err)
	svc.cache.Wait()
	second, err := svc.Build(ctx, squareBoundary("a"))
	require.NoError(t, err)
	require.Equal(t, int32(1), o.calls.Load())
	require.Equal(t, first.Mesh, second.Mesh)
	require.Equal(t, 1, m.hits)
	require.Equal(t, 2, m.builds["ok"])

	// new credentials change the key
	svc.SetOracle(o, "v2")
	_, err = svc.Build(ctx, squareBoundary("a"))
	require.NoError(t, err)
	require.Equal(t, int32(2), o.calls.Load())

	svc.cache.Wait()
	svc.Invalidate()
	_, err = svc.Build(ctx, squareBoundary("a"))
	require.NoError(t, err)
	require.Equal(t, int32(3), o.calls.Load())
}

func TestServiceDoesNotCacheFallback(t *testing.T) {
	var calls atomic.Int32
	failing := elevation.Func(func(context.Context, []geom.GeoPoint) ([]float64, error) {
		calls.Add(1)
		return nil, errors.New("down")
	})
	m := &fakeMetrics{}
	svc := newTestService(t, failing, m)

	for i := 0; i < 2; i++ {
		c, err := svc.Build(context.Background(), squareBoundary("a"))
		require.NoError(t, err)
		require.True(t, c.Base.Fallback)
		svc.cache.Wait()
	}
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, 2, m.builds["fallback"])
}

func TestServiceSupersedesOlderBuild(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	oracle := elevation.Func(func(ctx context.Context, pts []geom.GeoPoint) ([]float64, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return elevation.Constant(50).Elevations(ctx, pts)
	})
	m := &fakeMetrics{}
	svc := newTestService(t, oracle, m)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Build(context.Background(), squareBoundary("a"))
		errCh <- err
	}()
	<-entered

	latest, err := svc.Build(context.Background(), squareBoundary("a"))
	require.NoError(t, err)
	require.False(t, latest.Base.Fallback)

	require.True(t, errors.Is(<-errCh, ErrSuperseded))
	applied, ok := svc.Latest("a")
	require.True(t, ok)
	require.Equal(t, latest.Base, applied.Base)
	require.Equal(t, 1, m.builds["superseded"])

	_, ok = svc.Latest("b")
	require.False(t, ok)
}

func TestServiceScopesDoNotSupersedeEachOther(t *testing.T) {
	var calls atomic.Int32
	entered, release := make(chan struct{}), make(chan struct{})
	oracle := elevation.Func(func(ctx context.Context, pts []geom.GeoPoint) ([]float64, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return elevation.Constant(50).Elevations(ctx, pts)
	})
	m := &fakeMetrics{}
	svc := newTestService(t, oracle, m)

	type outcome struct {
		c   Curtain
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		c, err := svc.Build(WithScope(context.Background(), "x"), squareBoundary("feature-0"))
		done <- outcome{c, err}
	}()
	<-entered

	line := geom.Boundary{ID: "feature-0", Path: geom.BoundaryPath{geom.Pt(1, 1), geom.Pt(1.01, 1)}}
	other, err := svc.Build(WithScope(context.Background(), "y"), line)
	require.NoError(t, err)
	require.False(t, other.Closed)
	close(release)

	first := <-done
	require.NoError(t, first.err)
	require.True(t, first.c.Closed)
	require.False(t, first.c.Base.Fallback)
	require.Zero(t, m.builds["superseded"])

	// scoped results are not retained
	_, ok := svc.Latest("feature-0")
	require.False(t, ok)
}

func TestServiceBuildAll(t *testing.T) {
	svc := newTestService(t, elevation.Constant(0), nil)
	bs := []geom.Boundary{
		squareBoundary("a"),
		{ID: "short", Path: geom.BoundaryPath{geom.Pt(0, 0)}},
		{ID: "line", Path: geom.BoundaryPath{geom.Pt(0, 0), geom.Pt(0.01, 0.01)}},
	}
	results := svc.BuildAll(context.Background(), bs)
	require.Len(t, results, 3)
	require.Equal(t, "a", results[0].ID)
	require.NoError(t, results[0].Err)
	require.True(t, errors.Is(results[1].Err, ErrDegenerateInput))
	require.NoError(t, results[2].Err)
	require.Len(t, results[2].Curtain.Mesh.Indices, 2)

	doc := NewDocument(results, []string{"feature 3: unsupported geometry"})
	require.Len(t, doc.Curtains, 3)
	require.NotEmpty(t, doc.Curtains[1].Error)
	require.Len(t, doc.Curtains[0].Vertices, 24)
	require.Len(t, doc.Curtains[0].Indices, 24)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded["curtains"], 3)
	require.Len(t, decoded["diagnostics"], 1)
}

func TestWriteOBJ(t *testing.T) {
	line := Curtain{ID: "fence 1", Mesh: Build([][2]float64{{0, 0}, {10, 0}}, 5, -5, false)}
	second := Curtain{ID: "b", Mesh: Build([][2]float64{{0, 0}, {0, 1}}, 1, 0, false)}
	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, []Curtain{line, {ID: "empty"}, second}))
	out := buf.String()

	require.Contains(t, out, "o fence_1\n")
	require.Contains(t, out, "v 10 0 -5\n")
	require.Contains(t, out, "f 1 3 2\nf 3 4 2\n")
	// second object continues the global vertex numbering
	require.Contains(t, out, "o b\n")
	require.Contains(t, out, "f 5 7 6\n")
	require.False(t, strings.Contains(out, "o empty"))
}
