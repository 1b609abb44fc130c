package elevation

import (
	"context"
	"time"

	"geocurtain/internal/geom"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Recorder receives one observation per oracle query.
type Recorder interface {
	ObserveOracle(provider, outcome string, d time.Duration)
}

// Instrumented wraps an oracle with a span and a metrics observation per
// query.
type Instrumented struct {
	Oracle   Oracle
	Provider string
	Recorder Recorder
}

func (o Instrumented) Elevations(ctx context.Context, pts []geom.GeoPoint) ([]float64, error) {
	ctx, span := otel.Tracer("geocurtain/elevation").Start(ctx, "elevation.query")
	defer span.End()
	span.SetAttributes(
		attribute.String("elevation.provider", o.Provider),
		attribute.Int("elevation.points", len(pts)),
	)

	start := time.Now()
	elevs, err := o.Oracle.Elevations(ctx, pts)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if o.Recorder != nil {
		o.Recorder.ObserveOracle(o.Provider, outcome, time.Since(start))
	}
	return elevs, err
}
