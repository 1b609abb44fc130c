package elevation

import (
	"context"

	"geocurtain/internal/geom"

	"github.com/pkg/errors"
)

// ErrOracleFailure marks any failure to obtain elevations. Callers degrade
// to a deep fallback base instead of aborting.
var ErrOracleFailure = errors.New("elevation oracle failure")

// Oracle answers ground elevation in meters for geographic points. Results
// are in input order.
type Oracle interface {
	Elevations(ctx context.Context, pts []geom.GeoPoint) ([]float64, error)
}

// Func adapts a function to Oracle.
type Func func(ctx context.Context, pts []geom.GeoPoint) ([]float64, error)

func (f Func) Elevations(ctx context.Context, pts []geom.GeoPoint) ([]float64, error) {
	return f(ctx, pts)
}

// Sample is a point with its ground elevation.
type Sample struct {
	Point     geom.GeoPoint `json:"point"`
	Elevation float64       `json:"elevation"`
}

// Zip pairs oracle results with the points they were requested for.
func Zip(pts []geom.GeoPoint, elevs []float64) ([]Sample, error) {
	if len(pts) != len(elevs) {
		return nil, Failuref("got %d elevations for %d points", len(elevs), len(pts))
	}
	out := make([]Sample, len(pts))
	for i := range pts {
		out[i] = Sample{Point: pts[i], Elevation: elevs[i]}
	}
	return out, nil
}

// Query asks o for elevations of pts and zips the answer. Any error is
// reported as an oracle failure.
func Query(ctx context.Context, o Oracle, pts []geom.GeoPoint) ([]Sample, error) {
	if o == nil {
		return nil, Failuref("no elevation oracle configured")
	}
	elevs, err := o.Elevations(ctx, pts)
	if err != nil {
		if errors.Is(err, ErrOracleFailure) {
			return nil, err
		}
		return nil, Fail(err, "elevation query")
	}
	return Zip(pts, elevs)
}

// Failuref builds an error wrapping ErrOracleFailure.
func Failuref(format string, args ...any) error {
	return errors.Wrapf(ErrOracleFailure, format, args...)
}

// Fail marks cause as an oracle failure. Both ErrOracleFailure and cause
// stay visible to errors.Is and errors.As.
func Fail(cause error, msg string) error {
	return &failure{msg: msg, cause: cause}
}

type failure struct {
	msg   string
	cause error
}

func (f *failure) Error() string   { return f.msg + ": " + f.cause.Error() }
func (f *failure) Unwrap() []error { return []error{ErrOracleFailure, f.cause} }

// Constant answers the same elevation everywhere. It is the offline oracle
// and a convenient test double.
type Constant float64

func (c Constant) Elevations(_ context.Context, pts []geom.GeoPoint) ([]float64, error) {
	out := make([]float64, len(pts))
	for i := range out {
		out[i] = float64(c)
	}
	return out, nil
}
