package tui

import (
	"math"

	"github.com/dustin/go-humanize"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// meters formats a height or distance for narrow table cells.
func meters(v float64) string {
	if math.Abs(v) >= 10000 {
		return humanize.SIWithDigits(v, 1, "m")
	}
	return humanize.FtoaWithDigits(v, 1) + " m"
}
