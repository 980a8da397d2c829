package models

// ForecastMetrics bundles the four trend metrics the forecaster derives
// from one volume history. Values are immutable once computed; every
// analysis run recomputes them from freshly fetched data.
type ForecastMetrics struct {
	// PctChangeNextMonth is the average percent change from the anchor
	// month to the following month across all complete historical years.
	PctChangeNextMonth float64 `json:"pct_change_next_month"`

	// PctChangeNext3Mo is the average percent change from the anchor
	// month to the mean of the next three months.
	PctChangeNext3Mo float64 `json:"pct_change_next_3mo"`

	// AvgMonthlySearches is the mean of all positive monthly volumes
	// observed up to (not including) the anchor month.
	AvgMonthlySearches int `json:"avg_monthly_searches"`

	// SeasonalVolatility is the coefficient of variation of the twelve
	// per-calendar-month historical means.
	SeasonalVolatility float64 `json:"seasonal_volatility_score"`
}

// WeightedForecast blends a keyword's own percent-change forecast with
// the mean forecast of its similar keywords (50/50). With no similar
// keywords it equals the keyword's own forecast.
type WeightedForecast struct {
	PctChangeMonth float64 `json:"pct_change_month"`
	PctChange3Mo   float64 `json:"pct_change_3mo"`
}

// SimilarForecast carries the metrics computed for one similar keyword.
type SimilarForecast struct {
	Keyword string `json:"keyword"`
	ForecastMetrics
	Current            int     `json:"current"`
	ExpectedNextMonth  float64 `json:"expected_next_month"`
	ExpectedNext3MoAvg float64 `json:"expected_next_3mo_avg"`
}

// KeywordForecast is the fully annotated result for one tracked keyword:
// its own metrics, absolute projections anchored at the latest observed
// month, per-similar-keyword metrics, the peer-weighted blend, and the
// historical average used by the alert floor.
type KeywordForecast struct {
	Keyword string `json:"keyword"`
	ForecastMetrics
	Current            int               `json:"current"`
	ExpectedNextMonth  float64           `json:"expected_next_month"`
	ExpectedNext3MoAvg float64           `json:"expected_next_3mo_avg"`
	Similar            []SimilarForecast `json:"similar_keywords,omitempty"`
	Weighted           WeightedForecast  `json:"total_weighted"`
	HistoricalAverage  float64           `json:"historical_average_monthly_volume"`
	History            VolumeHistory     `json:"trend_history,omitempty"`
}

// AnalyzedAdGroup is an ad group annotated with per-keyword forecasts
// and the arithmetic mean of its keywords' metrics. Aggregate is nil
// for an ad group with no keywords.
type AnalyzedAdGroup struct {
	ID        uint              `json:"ad_group_id,omitempty"`
	Name      string            `json:"ad_group"`
	Keywords  []KeywordForecast `json:"keywords"`
	Aggregate *ForecastMetrics  `json:"aggregate,omitempty"`
}

// AnalyzedCategory is a category annotated with analyzed ad groups and
// the mean of its ad groups' aggregates (a mean of means — ad groups
// are weighted equally regardless of keyword count).
type AnalyzedCategory struct {
	ID        uint              `json:"category_id,omitempty"`
	Name      string            `json:"category"`
	AdGroups  []AnalyzedAdGroup `json:"ad_groups"`
	Aggregate *ForecastMetrics  `json:"aggregate,omitempty"`
}

// Alert is emitted for a keyword whose weighted monthly change crossed
// a configured threshold while clearing the minimum-volume floor.
type Alert struct {
	Keyword           string  `json:"keyword"`
	PctChangeMonth    float64 `json:"pct_change_month"`
	PctChange3Mo      float64 `json:"pct_change_3mo"`
	HistoricalAverage int     `json:"historical_average"`
}
