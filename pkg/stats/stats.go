// Package stats summarizes per-trial samples.
package stats

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Summarize computes empirical quantiles, so P50 and P95 are always observed
// samples. An empty input yields the zero Summary.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	x := slices.Clone(samples)
	slices.Sort(x)
	return Summary{
		N:    len(x),
		Mean: stat.Mean(x, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, x, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, x, nil),
		Min:  floats.Min(x),
		Max:  floats.Max(x),
	}
}
