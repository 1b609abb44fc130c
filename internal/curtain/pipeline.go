package curtain

import (
	"context"
	"strings"

	"geocurtain/internal/elevation"
	"geocurtain/internal/geom"
	"geocurtain/internal/logging"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// TopMode decides how the top of a wall is derived.
type TopMode int

const (
	// TopRelative puts the top WallTop meters above the safe base.
	TopRelative TopMode = iota
	// TopAbsolute puts the top at WallTop meters above sea level.
	TopAbsolute
)

func (m TopMode) String() string {
	if m == TopAbsolute {
		return "absolute"
	}
	return "relative"
}

func ParseTopMode(s string) (TopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relative":
		return TopRelative, nil
	case "absolute":
		return TopAbsolute, nil
	}
	return TopRelative, errors.Errorf("unknown top mode %q", s)
}

// SamplingMode picks the path sampler.
type SamplingMode int

const (
	SampleByParameter SamplingMode = iota
	SampleByArcLength
)

func (m SamplingMode) String() string {
	if m == SampleByArcLength {
		return "arclength"
	}
	return "parameter"
}

func ParseSamplingMode(s string) (SamplingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "parameter":
		return SampleByParameter, nil
	case "arclength", "arc_length":
		return SampleByArcLength, nil
	}
	return SampleByParameter, errors.Errorf("unknown sampling mode %q", s)
}

// Options controls a curtain build.
type Options struct {
	Samples       int
	SafetyMargin  float64
	DeepFallback  float64
	WallTop       float64
	TopMode       TopMode
	Anchor        AnchorPolicy
	Sampling      SamplingMode
	DedupeEpsilon float64
}

func DefaultOptions() Options {
	return Options{
		Samples:      10,
		SafetyMargin: DefaultSafetyMargin,
		DeepFallback: DefaultDeepFallback,
		WallTop:      800,
	}
}

// SamplePath applies the configured sampler.
func (o Options) SamplePath(path geom.BoundaryPath) []geom.GeoPoint {
	if o.Sampling == SampleByArcLength {
		return SampleArcLength(path, o.Samples)
	}
	return Sample(path, o.Samples)
}

// Curtain is the wall built for one boundary. Mesh coordinates are meters
// in Frame, with z as height above sea level.
type Curtain struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind,omitempty"`
	Closed    bool               `json:"closed"`
	Frame     LocalFrame         `json:"frame"`
	Placement Placement          `json:"placement"`
	Base      SafeBase           `json:"safe_base"`
	TopZ      float64            `json:"top_z"`
	BottomZ   float64            `json:"bottom_z"`
	Samples   []elevation.Sample `json:"samples,omitempty"`
	Mesh      Mesh               `json:"-"`
}

// ResolveBase samples path, queries the oracle and aggregates the answer.
// It never fails: problems show up as a fallback base.
func ResolveBase(ctx context.Context, oracle elevation.Oracle, path geom.BoundaryPath, opts Options) (SafeBase, []elevation.Sample) {
	if len(path) < 2 {
		base := Aggregate(nil, errors.Errorf("path has %d points", len(path)), opts.SafetyMargin, opts.DeepFallback)
		return base, nil
	}
	pts := opts.SamplePath(path)
	samples, err := elevation.Query(ctx, oracle, pts)
	return Aggregate(samples, err, opts.SafetyMargin, opts.DeepFallback), samples
}

// Assemble builds the wall for b standing on base. It is pure. When the
// input is degenerate the returned curtain has an empty mesh and the error
// wraps ErrDegenerateInput.
func Assemble(b geom.Boundary, base SafeBase, samples []elevation.Sample, opts Options) (Curtain, error) {
	frame := NewLocalFrame(b.Path, opts.Anchor)
	pts := frame.ProjectPath(b.Path)
	if opts.DedupeEpsilon > 0 {
		pts = DropDuplicates(pts, opts.DedupeEpsilon, b.Closed)
	}

	top := opts.WallTop
	if opts.TopMode == TopRelative {
		top = base.Elevation + opts.WallTop
	}
	c := Curtain{
		ID:        b.ID,
		Kind:      b.Kind,
		Closed:    b.Closed,
		Frame:     frame,
		Placement: Place(frame.Anchor, 0),
		Base:      base,
		TopZ:      top,
		BottomZ:   base.Elevation,
		Samples:   samples,
	}
	if err := CheckInput(len(pts), c.TopZ, c.BottomZ, b.Closed); err != nil {
		return c, errors.Wrapf(err, "boundary %s", b.ID)
	}
	c.Mesh = Build(pts, c.TopZ, c.BottomZ, b.Closed)
	return c, nil
}

// Pipeline runs one boundary from path to mesh against an oracle.
type Pipeline struct {
	Oracle elevation.Oracle
	Opts   Options
	Log    logging.Logger
}

// Build resolves the base and assembles the wall for b. Oracle failures are
// logged and absorbed into a fallback base; only degenerate input is
// returned as an error.
func (p Pipeline) Build(ctx context.Context, b geom.Boundary) (Curtain, error) {
	ctx, span := otel.Tracer("geocurtain/curtain").Start(ctx, "curtain.build")
	defer span.End()
	span.SetAttributes(
		attribute.String("boundary.id", b.ID),
		attribute.Int("boundary.points", len(b.Path)),
	)

	base, samples := ResolveBase(ctx, p.Oracle, b.Path, p.Opts)
	p.warnFallback(ctx, b.ID, base)
	span.SetAttributes(attribute.Float64("curtain.safe_base", base.Elevation), attribute.Bool("curtain.fallback", base.Fallback))
	return Assemble(b, base, samples, p.Opts)
}

func (p Pipeline) warnFallback(ctx context.Context, id string, base SafeBase) {
	if !base.Fallback {
		return
	}
	log := p.Log
	if log == nil {
		log = logging.FromContext(ctx)
	}
	log.Warn(ctx, "elevation unavailable, using deep fallback",
		logging.String("boundary", id),
		logging.Float("safe_base", base.Elevation),
		logging.String("reason", base.Reason),
	)
}
