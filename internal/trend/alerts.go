package trend

import "github.com/trendlens/trendlens/pkg/models"

// Thresholds controls which forecasts become alerts. Values come from
// the settings store, not from code.
type Thresholds struct {
	// MinIncreasePct fires an alert when the weighted monthly change
	// rises at least this much (percent).
	MinIncreasePct float64

	// MaxDecreasePct fires an alert when the weighted monthly change
	// falls to this value or below. Expressed negative, e.g. -10.
	MaxDecreasePct float64

	// MinHits is the historical-average monthly volume floor. Keywords
	// below it stay silent no matter how sharp the swing: a spike on a
	// near-zero base is noise, not a trend.
	MinHits int
}

// DefaultThresholds mirror the settings store's first-run defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{MinIncreasePct: 10, MaxDecreasePct: -10, MinHits: 100}
}

// ExtractAlerts filters analyzed keywords down to those whose weighted
// monthly change crossed a threshold while clearing the minimum-volume
// floor. Order follows the input.
func ExtractAlerts(results []models.KeywordForecast, th Thresholds) []models.Alert {
	var alerts []models.Alert

	for _, r := range results {
		pct := r.Weighted.PctChangeMonth
		crossed := pct >= th.MinIncreasePct || pct <= th.MaxDecreasePct
		if !crossed || r.HistoricalAverage < float64(th.MinHits) {
			continue
		}
		alerts = append(alerts, models.Alert{
			Keyword:           r.Keyword,
			PctChangeMonth:    round1(pct),
			PctChange3Mo:      round1(r.Weighted.PctChange3Mo),
			HistoricalAverage: int(r.HistoricalAverage),
		})
	}

	return alerts
}
