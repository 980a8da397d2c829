package trend

import (
	"math"

	"github.com/trendlens/trendlens/pkg/models"
)

// AnalyzeTree walks the category → ad-group → keyword hierarchy and
// returns a freshly constructed annotated tree. The input tree and the
// records map are never mutated.
//
// Keywords are forecast individually; an ad group then carries the
// arithmetic mean of its keywords' metrics, and a category the mean of
// its ad groups' aggregates. The category roll-up is a mean of means:
// an ad group with one keyword weighs the same as one with a hundred.
// That mirrors the dashboard's historical behaviour and is intentional.
//
// A keyword missing from records (or holding an empty history) degrades
// to all-zero metrics. Ad groups and categories without children pass
// through without an aggregate.
func (f *Forecaster) AnalyzeTree(tree []models.Category, records map[string]models.KeywordRecord) []models.AnalyzedCategory {
	out := make([]models.AnalyzedCategory, 0, len(tree))

	for _, cat := range tree {
		ac := models.AnalyzedCategory{
			ID:       cat.ID,
			Name:     cat.Name,
			AdGroups: make([]models.AnalyzedAdGroup, 0, len(cat.AdGroups)),
		}

		var groupAggs []models.ForecastMetrics
		for _, ag := range cat.AdGroups {
			aag := models.AnalyzedAdGroup{
				ID:       ag.ID,
				Name:     ag.Name,
				Keywords: make([]models.KeywordForecast, 0, len(ag.Keywords)),
			}

			var kwMetrics []models.ForecastMetrics
			for _, kw := range ag.Keywords {
				rec, ok := records[kw.Text]
				if !ok {
					rec = models.KeywordRecord{Keyword: kw.Text}
				}
				forecast := f.AnalyzeRecord(rec)
				aag.Keywords = append(aag.Keywords, forecast)
				kwMetrics = append(kwMetrics, forecast.ForecastMetrics)
			}

			if agg := meanMetrics(kwMetrics); agg != nil {
				aag.Aggregate = agg
				groupAggs = append(groupAggs, *agg)
			}
			ac.AdGroups = append(ac.AdGroups, aag)
		}

		ac.Aggregate = meanMetrics(groupAggs)
		out = append(out, ac)
	}

	return out
}

// meanMetrics returns the arithmetic mean of each metric field across
// the given set, or nil for an empty set.
func meanMetrics(set []models.ForecastMetrics) *models.ForecastMetrics {
	if len(set) == 0 {
		return nil
	}

	var pctMonth, pct3Mo, avgSearches, volatility float64
	for _, m := range set {
		pctMonth += m.PctChangeNextMonth
		pct3Mo += m.PctChangeNext3Mo
		avgSearches += float64(m.AvgMonthlySearches)
		volatility += m.SeasonalVolatility
	}

	n := float64(len(set))
	return &models.ForecastMetrics{
		PctChangeNextMonth: round1(pctMonth / n),
		PctChangeNext3Mo:   round1(pct3Mo / n),
		AvgMonthlySearches: int(math.Round(avgSearches / n)),
		SeasonalVolatility: round2(volatility / n),
	}
}
