package curtain

import (
	"math"

	"geocurtain/internal/elevation"
)

const (
	DefaultSafetyMargin = 300.0
	DefaultDeepFallback = -500.0
)

// SafeBase is the elevation a curtain bottom sits at.
type SafeBase struct {
	Elevation float64 `json:"elevation"`
	// Fallback is set when no usable elevation was obtained and Elevation
	// is the deep fallback constant.
	Fallback bool   `json:"fallback"`
	Reason   string `json:"reason,omitempty"`
}

// Aggregate reduces oracle samples to the lowest sampled ground minus
// |margin|. A failed query, no samples or no finite elevation yields the
// fallback base with Fallback set.
func Aggregate(samples []elevation.Sample, queryErr error, margin, fallback float64) SafeBase {
	if queryErr != nil {
		return SafeBase{Elevation: fallback, Fallback: true, Reason: queryErr.Error()}
	}
	lowest := math.Inf(1)
	for _, s := range samples {
		if math.IsNaN(s.Elevation) || math.IsInf(s.Elevation, 0) {
			continue
		}
		lowest = math.Min(lowest, s.Elevation)
	}
	if math.IsInf(lowest, 1) {
		reason := "no elevation samples"
		if len(samples) > 0 {
			reason = "no finite elevation samples"
		}
		return SafeBase{Elevation: fallback, Fallback: true, Reason: reason}
	}
	return SafeBase{Elevation: lowest - math.Abs(margin)}
}
