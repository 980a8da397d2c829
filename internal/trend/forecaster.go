package trend

import (
	"math"
	"sort"
	"time"

	"github.com/trendlens/trendlens/pkg/models"
)

// Forecaster converts volume histories into forecast metrics anchored
// at a fixed reference month. A Forecaster is immutable and safe for
// concurrent use; construct one per analysis run so every keyword in
// the run shares the same anchor.
type Forecaster struct {
	monthIndex int
	nextIndex  int
	next3      [3]int
}

// New returns a Forecaster anchored at the most recently completed
// calendar month.
func New() *Forecaster {
	return NewAt(ReferenceMonthIndex(time.Now()))
}

// NewAt returns a Forecaster anchored at an explicit month index in
// [0,11]. Out-of-range values wrap.
func NewAt(monthIndex int) *Forecaster {
	m := ((monthIndex % 12) + 12) % 12
	return &Forecaster{
		monthIndex: m,
		nextIndex:  (m + 1) % 12,
		next3:      [3]int{(m + 1) % 12, (m + 2) % 12, (m + 3) % 12},
	}
}

// MonthIndex returns the anchor month index.
func (f *Forecaster) MonthIndex() int { return f.monthIndex }

// averageChange computes the mean percent change from the anchor month
// to the next month (single) or to the next-3-month average, taken
// independently per complete historical year. The latest year in the
// history is treated as in progress and excluded; years with a zero
// anchor value cannot form a ratio and are skipped.
func (f *Forecaster) averageChange(h models.VolumeHistory, single bool) float64 {
	latest := h.LatestYear()
	var changes []float64

	for year, months := range h {
		if year >= latest {
			continue
		}
		base := SafeMonth(months, f.monthIndex)
		if base == 0 {
			continue
		}

		var future float64
		if single {
			future = float64(SafeMonth(months, f.nextIndex))
		} else {
			future = SafeAverage(months, f.next3[:])
		}
		changes = append(changes, (future-float64(base))/float64(base))
	}

	if len(changes) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range changes {
		sum += c
	}
	return round1(sum / float64(len(changes)) * 100)
}

// avgMonthlySearches computes the mean of all positive monthly volumes
// over complete past years plus the in-progress year's months before
// the anchor month.
func (f *Forecaster) avgMonthlySearches(h models.VolumeHistory) int {
	latest := h.LatestYear()
	sum, count := 0, 0

	for year, months := range h {
		limit := len(months)
		if year == latest && f.monthIndex < limit {
			limit = f.monthIndex
		}
		for i := 0; i < limit && i < 12; i++ {
			if months[i] > 0 {
				sum += months[i]
				count++
			}
		}
	}

	if count == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(count)))
}

// seasonalVolatility scores how unevenly search volume spreads over the
// calendar year: the coefficient of variation (population standard
// deviation over mean) of the twelve per-month historical means.
func (f *Forecaster) seasonalVolatility(h models.VolumeHistory) float64 {
	means := MonthlyMeans(h)

	mean := 0.0
	for _, m := range means {
		mean += m
	}
	mean /= 12

	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, m := range means {
		d := m - mean
		variance += d * d
	}
	variance /= 12

	return round2(math.Sqrt(variance) / mean)
}

// Metrics derives the four forecast metrics from one volume history.
// An empty or nil history yields all-zero metrics.
func (f *Forecaster) Metrics(h models.VolumeHistory) models.ForecastMetrics {
	return models.ForecastMetrics{
		PctChangeNextMonth: f.averageChange(h, true),
		PctChangeNext3Mo:   f.averageChange(h, false),
		AvgMonthlySearches: f.avgMonthlySearches(h),
		SeasonalVolatility: f.seasonalVolatility(h),
	}
}

// project derives absolute next-month / next-3-month projections from
// the latest observed anchor value and the percent forecasts.
func project(current int, pctMonth, pct3Mo float64) (nextMonth, next3Mo float64) {
	nextMonth = round1(float64(current) * (1 + pctMonth/100))
	next3Mo = round1(float64(current) * (1 + pct3Mo/100))
	return
}

// Blend combines a keyword's own percent-change forecast with the mean
// of its similar keywords' forecasts, 50/50. With no similar keywords
// the keyword's own forecast is returned unchanged.
func Blend(ownMonth, own3Mo float64, similar []models.SimilarForecast) models.WeightedForecast {
	n := len(similar)
	if n == 0 {
		return models.WeightedForecast{PctChangeMonth: ownMonth, PctChange3Mo: own3Mo}
	}

	var simMonth, sim3Mo float64
	for _, s := range similar {
		simMonth += s.PctChangeNextMonth
		sim3Mo += s.PctChangeNext3Mo
	}

	return models.WeightedForecast{
		PctChangeMonth: round1(0.5*ownMonth + 0.5*simMonth/float64(n)),
		PctChange3Mo:   round1(0.5*own3Mo + 0.5*sim3Mo/float64(n)),
	}
}

// AnalyzeRecord produces the full annotated forecast for one keyword
// record: own metrics, absolute projections, per-similar-keyword
// metrics, the weighted blend, and the historical average for the
// alert floor.
func (f *Forecaster) AnalyzeRecord(rec models.KeywordRecord) models.KeywordForecast {
	own := f.Metrics(rec.History)

	current := SafeMonth(rec.History[rec.History.LatestYear()], f.monthIndex)
	expNext, exp3Mo := project(current, own.PctChangeNextMonth, own.PctChangeNext3Mo)

	similar := make([]models.SimilarForecast, 0, len(rec.Similar))
	for _, name := range sortedKeys(rec.Similar) {
		hist := rec.Similar[name]
		m := f.Metrics(hist)
		simCurrent := SafeMonth(hist[hist.LatestYear()], f.monthIndex)
		simNext, sim3Mo := project(simCurrent, m.PctChangeNextMonth, m.PctChangeNext3Mo)
		similar = append(similar, models.SimilarForecast{
			Keyword:            name,
			ForecastMetrics:    m,
			Current:            simCurrent,
			ExpectedNextMonth:  simNext,
			ExpectedNext3MoAvg: sim3Mo,
		})
	}

	return models.KeywordForecast{
		Keyword:            rec.Keyword,
		ForecastMetrics:    own,
		Current:            current,
		ExpectedNextMonth:  expNext,
		ExpectedNext3MoAvg: exp3Mo,
		Similar:            similar,
		Weighted:           Blend(own.PctChangeNextMonth, own.PctChangeNext3Mo, similar),
		HistoricalAverage:  historicalAverage(rec.History, f.monthIndex),
		History:            rec.History.Clone(),
	}
}

// AnalyzeAll runs AnalyzeRecord over a flat keyword list, preserving
// input order. This is the monthly-notifier path; the dashboard's tree
// path is AnalyzeTree.
func (f *Forecaster) AnalyzeAll(recs []models.KeywordRecord) []models.KeywordForecast {
	results := make([]models.KeywordForecast, 0, len(recs))
	for _, rec := range recs {
		results = append(results, f.AnalyzeRecord(rec))
	}
	return results
}

// sortedKeys returns map keys in lexical order so similar-keyword
// output is deterministic across runs.
func sortedKeys(m map[string]models.VolumeHistory) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
