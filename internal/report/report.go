package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/pkg/utils"
)

// ReportFormat specifies the output format.
type ReportFormat string

const (
	FormatHTML ReportFormat = "html"
	FormatText ReportFormat = "text"
	FormatXLSX ReportFormat = "xlsx"
)

// ReportSection identifies a section to include/exclude.
type ReportSection string

const (
	SectionSummary    ReportSection = "summary"
	SectionAlerts     ReportSection = "alerts"
	SectionCharts     ReportSection = "charts"
	SectionCategories ReportSection = "categories"
)

// AllSections returns all report sections in display order.
func AllSections() []ReportSection {
	return []ReportSection{
		SectionSummary,
		SectionAlerts,
		SectionCharts,
		SectionCategories,
	}
}

// ReportConfig controls report generation behaviour.
type ReportConfig struct {
	Format   ReportFormat    // output format (default: HTML)
	Sections []ReportSection // sections to include (default: all)
	Title    string          // custom report title (optional)
	Author   string          // author line (default: "TrendLens")
	ChartCfg ChartConfig     // chart rendering config
}

// DefaultReportConfig returns sensible defaults.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Format:   FormatHTML,
		Sections: AllSections(),
		Author:   "TrendLens",
		ChartCfg: DefaultChartConfig(),
	}
}

func (rc ReportConfig) hasSection(s ReportSection) bool {
	for _, sec := range rc.Sections {
		if sec == s {
			return true
		}
	}
	return false
}

// ReportData is the template model passed to the HTML template.
type ReportData struct {
	Title       string
	Author      string
	GeneratedAt string

	// Totals
	CategoryCount int
	AdGroupCount  int
	KeywordCount  int
	AlertCount    int

	// Alerts
	Alerts []AlertRow

	// Per-category tables
	Categories []CategoryTable

	// Charts (embedded SVG strings)
	TrendChart      template.HTML
	MoversChart     template.HTML
	VolatilityGauge template.HTML

	// Section visibility flags
	ShowSummary    bool
	ShowAlerts     bool
	ShowCharts     bool
	ShowCategories bool
}

// AlertRow is a flattened alert for template rendering.
type AlertRow struct {
	Keyword    string
	PctMonth   string
	Pct3Mo     string
	HistAvg    string
	TrendClass string // CSS class: rising, falling
}

// CategoryTable is one category's keyword table.
type CategoryTable struct {
	Name      string
	Aggregate *MetricsRow
	Keywords  []KeywordRow
}

// MetricsRow carries formatted aggregate metrics.
type MetricsRow struct {
	PctMonth   string
	Pct3Mo     string
	AvgVolume  string
	Volatility string
}

// KeywordRow is a flattened keyword forecast for template rendering.
type KeywordRow struct {
	Keyword    string
	AdGroup    string
	Current    string
	AvgVolume  string
	PctMonth   string
	Pct3Mo     string
	Volatility string
	TrendClass string
}

// GenerateHTML renders the analyzed tree and its alerts as an HTML
// report.
func GenerateHTML(categories []models.AnalyzedCategory, alerts []models.Alert, cfg ReportConfig) (string, error) {
	data := buildReportData(categories, alerts, cfg)

	tmpl, err := template.New("report").Parse(ReportTemplate)
	if err != nil {
		return "", fmt.Errorf("report: parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("report: execute template: %w", err)
	}
	return buf.String(), nil
}

// GenerateText renders a plain-text report (terminal / CLI friendly).
func GenerateText(categories []models.AnalyzedCategory, alerts []models.Alert, cfg ReportConfig) string {
	return renderTextReport(buildReportData(categories, alerts, cfg))
}

// WrapKeywords lifts flat keyword forecasts into a single-category
// tree so the flat analysis run can reuse the tree renderers.
func WrapKeywords(forecasts []models.KeywordForecast) []models.AnalyzedCategory {
	if len(forecasts) == 0 {
		return nil
	}
	return []models.AnalyzedCategory{{
		Name: "Keywords",
		AdGroups: []models.AnalyzedAdGroup{{
			Name:     "Tracked",
			Keywords: forecasts,
		}},
	}}
}

func buildReportData(categories []models.AnalyzedCategory, alerts []models.Alert, cfg ReportConfig) ReportData {
	data := ReportData{
		Title:       cfg.Title,
		Author:      cfg.Author,
		GeneratedAt: time.Now().Format("02 Jan 2006, 15:04 MST"),

		ShowSummary:    cfg.hasSection(SectionSummary),
		ShowAlerts:     cfg.hasSection(SectionAlerts) && len(alerts) > 0,
		ShowCharts:     cfg.hasSection(SectionCharts),
		ShowCategories: cfg.hasSection(SectionCategories),
	}
	if data.Title == "" {
		data.Title = "Keyword Trend Report"
	}
	if data.Author == "" {
		data.Author = "TrendLens"
	}

	data.CategoryCount = len(categories)
	data.AlertCount = len(alerts)

	var allForecasts []models.KeywordForecast
	for _, cat := range categories {
		table := CategoryTable{Name: cat.Name}
		if agg := cat.Aggregate; agg != nil {
			table.Aggregate = &MetricsRow{
				PctMonth:   utils.FormatPct(agg.PctChangeNextMonth),
				Pct3Mo:     utils.FormatPct(agg.PctChangeNext3Mo),
				AvgVolume:  utils.FormatVolume(agg.AvgMonthlySearches),
				Volatility: fmt.Sprintf("%.2f", agg.SeasonalVolatility),
			}
		}
		for _, group := range cat.AdGroups {
			data.AdGroupCount++
			for _, fc := range group.Keywords {
				data.KeywordCount++
				allForecasts = append(allForecasts, fc)
				table.Keywords = append(table.Keywords, KeywordRow{
					Keyword:    fc.Keyword,
					AdGroup:    group.Name,
					Current:    utils.FormatVolume(fc.Current),
					AvgVolume:  utils.FormatVolume(fc.AvgMonthlySearches),
					PctMonth:   utils.FormatPct(fc.Weighted.PctChangeMonth),
					Pct3Mo:     utils.FormatPct(fc.Weighted.PctChange3Mo),
					Volatility: fmt.Sprintf("%.2f", fc.SeasonalVolatility),
					TrendClass: trendClass(fc.Weighted.PctChangeMonth),
				})
			}
		}
		data.Categories = append(data.Categories, table)
	}

	for _, alert := range alerts {
		data.Alerts = append(data.Alerts, AlertRow{
			Keyword:    alert.Keyword,
			PctMonth:   utils.FormatPct(alert.PctChangeMonth),
			Pct3Mo:     utils.FormatPct(alert.PctChange3Mo),
			HistAvg:    utils.FormatVolume(alert.HistoricalAverage),
			TrendClass: trendClass(alert.PctChangeMonth),
		})
	}

	if data.ShowCharts {
		data.TrendChart = template.HTML(trendChart(allForecasts, cfg.ChartCfg))
		data.MoversChart = template.HTML(moversChart(allForecasts, cfg.ChartCfg))
		data.VolatilityGauge = template.HTML(volatilityGauge(allForecasts))
	}

	return data
}

func trendClass(pct float64) string {
	if pct < 0 {
		return "falling"
	}
	return "rising"
}

func calendarMonths() []string {
	labels := make([]string, 12)
	for m := range labels {
		labels[m] = utils.MonthLabel(m)
	}
	return labels
}

// trendChart plots the busiest keyword's history, one line per year.
func trendChart(forecasts []models.KeywordForecast, cfg ChartConfig) string {
	top := topByVolume(forecasts, 1)
	if len(top) == 0 || len(top[0].History) == 0 {
		return emptySVG(cfg, "No history")
	}
	fc := top[0]

	var series []LineChartSeries
	for _, year := range fc.History.Years() {
		values := make([]float64, 12)
		for m := 0; m < 12; m++ {
			if m < len(fc.History[year]) {
				values[m] = float64(fc.History[year][m])
			}
		}
		series = append(series, LineChartSeries{
			Name:   fmt.Sprintf("%d", year),
			Values: values,
		})
	}

	cfg.Title = fmt.Sprintf("Monthly Search Volume — %s", fc.Keyword)
	cfg.CompactY = true
	return LineChart(series, calendarMonths(), cfg)
}

// moversChart ranks keywords by absolute monthly change.
func moversChart(forecasts []models.KeywordForecast, cfg ChartConfig) string {
	ranked := make([]models.KeywordForecast, len(forecasts))
	copy(ranked, forecasts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return abs(ranked[i].Weighted.PctChangeMonth) > abs(ranked[j].Weighted.PctChangeMonth)
	})
	if len(ranked) > 10 {
		ranked = ranked[:10]
	}

	items := make([]BarItem, 0, len(ranked))
	for _, fc := range ranked {
		items = append(items, BarItem{
			Label:   fc.Keyword,
			Value:   fc.Weighted.PctChangeMonth,
			Display: utils.FormatPct(fc.Weighted.PctChangeMonth),
		})
	}

	cfg.Title = "Top Movers — Next Month %"
	return HorizontalBarChart(items, cfg)
}

// volatilityGauge shows the mean seasonal volatility scaled to 0-100.
func volatilityGauge(forecasts []models.KeywordForecast) string {
	if len(forecasts) == 0 {
		return GaugeChart(0, "Seasonal Volatility", 180)
	}
	sum := 0.0
	for _, fc := range forecasts {
		sum += fc.SeasonalVolatility
	}
	// CV of 1.0 (std equal to mean) reads as 100 on the dial
	score := sum / float64(len(forecasts)) * 100
	if score > 100 {
		score = 100
	}
	return GaugeChart(score, "Seasonal Volatility", 180)
}

func topByVolume(forecasts []models.KeywordForecast, n int) []models.KeywordForecast {
	ranked := make([]models.KeywordForecast, len(forecasts))
	copy(ranked, forecasts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AvgMonthlySearches > ranked[j].AvgMonthlySearches
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func renderTextReport(d ReportData) string {
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", d.Title))
	sb.WriteString(fmt.Sprintf("  Generated: %s | %s\n", d.GeneratedAt, d.Author))
	sb.WriteString(line + "\n\n")

	if d.ShowSummary {
		sb.WriteString(fmt.Sprintf("  Categories: %d | Ad Groups: %d | Keywords: %d | Alerts: %d\n",
			d.CategoryCount, d.AdGroupCount, d.KeywordCount, d.AlertCount))
		sb.WriteString(thinLine + "\n")
	}

	if d.ShowAlerts {
		sb.WriteString("\n  ★ ALERTS\n")
		for _, a := range d.Alerts {
			sb.WriteString(fmt.Sprintf("    %-30s month %s | 3mo %s | avg %s\n",
				a.Keyword, a.PctMonth, a.Pct3Mo, a.HistAvg))
		}
		sb.WriteString(thinLine + "\n")
	}

	if d.ShowCategories {
		for _, cat := range d.Categories {
			sb.WriteString(fmt.Sprintf("\n  ■ %s\n", strings.ToUpper(cat.Name)))
			if cat.Aggregate != nil {
				sb.WriteString(fmt.Sprintf("    Aggregate: month %s | 3mo %s | avg %s | volatility %s\n",
					cat.Aggregate.PctMonth, cat.Aggregate.Pct3Mo,
					cat.Aggregate.AvgVolume, cat.Aggregate.Volatility))
			}
			for _, kw := range cat.Keywords {
				sb.WriteString(fmt.Sprintf("    %-30s [%s] cur %s | month %s | 3mo %s\n",
					kw.Keyword, kw.AdGroup, kw.Current, kw.PctMonth, kw.Pct3Mo))
			}
			sb.WriteString(thinLine + "\n")
		}
	}

	sb.WriteString("\n" + line + "\n")
	return sb.String()
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
