// Package trend implements the TrendLens trend analysis engine: safe
// lookups over sparse monthly volume histories, per-keyword percent-change
// forecasting with a seasonal volatility score, peer-weighted blending,
// and bottom-up aggregation over the category → ad-group → keyword tree.
//
// The engine is pure computation over in-memory structures. It performs
// no I/O, never mutates its inputs, and degrades to zero/neutral metrics
// on missing or sparse data instead of returning errors.
package trend

import (
	"math"
	"time"

	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/pkg/utils"
)

// ReferenceMonthIndex returns the analysis anchor for the given time:
// the zero-based calendar index of the most recently completed month.
// January wraps to 11 (December of the previous calendar year).
func ReferenceMonthIndex(t time.Time) int {
	return int(utils.CompletedMonth(t).Month()) - 1
}

// SafeMonth returns the volume at the given month index, or 0 when the
// series is too short. It never panics on sparse data.
func SafeMonth(months models.MonthSeries, idx int) int {
	if idx < 0 || idx >= len(months) {
		return 0
	}
	return months[idx]
}

// SafeAverage returns the arithmetic mean of the values at the given
// indices, excluding indices whose value is not positive. Zero volumes
// are indistinguishable from missing data upstream, so including them
// would bias ratios toward implausible collapses. Returns 0 when no
// index yields a positive value.
func SafeAverage(months models.MonthSeries, idxs []int) float64 {
	sum, count := 0, 0
	for _, i := range idxs {
		if v := SafeMonth(months, i); v > 0 {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// MonthlyMeans computes, for each calendar month, the mean of that
// month's positive volumes across all years strictly before the
// history's latest (in-progress) year. Months never observed positive
// stay 0. The result feeds the volatility score and trend charts.
func MonthlyMeans(h models.VolumeHistory) [12]float64 {
	var sums [12]float64
	var counts [12]int

	latest := h.LatestYear()
	for year, months := range h {
		if year >= latest {
			continue
		}
		for i := 0; i < 12 && i < len(months); i++ {
			if months[i] > 0 {
				sums[i] += float64(months[i])
				counts[i]++
			}
		}
	}

	var means [12]float64
	for i := range means {
		if counts[i] > 0 {
			means[i] = sums[i] / float64(counts[i])
		}
	}
	return means
}

// historicalAverage returns the mean of the anchor month's volume
// across all years strictly before the latest year. Zeros count: this
// figure backs the minimum-volume alert floor, where a month of genuine
// silence is meaningful.
func historicalAverage(h models.VolumeHistory, monthIdx int) float64 {
	latest := h.LatestYear()
	sum, count := 0, 0
	for year, months := range h {
		if year >= latest || monthIdx >= len(months) {
			continue
		}
		sum += months[monthIdx]
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
