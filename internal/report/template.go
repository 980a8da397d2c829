package report

// ReportTemplate is the HTML template for the trend report.
// It is embedded as a Go constant — no external file dependencies.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1, h2, h3 { font-weight: 600; }
  h1 { font-size: 1.5rem; margin-bottom: 4px; }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  h3 { font-size: 1rem; margin: 16px 0 8px; }
  p { margin: 6px 0; }
  .muted { color: var(--muted); font-size: 0.85rem; }

  .header {
    display: flex;
    justify-content: space-between;
    align-items: flex-start;
    border-bottom: 3px solid var(--accent);
    padding-bottom: 12px;
    margin-bottom: 16px;
  }
  .header-left h1 { color: var(--accent); }
  .header-right { text-align: right; }

  .summary-bar {
    display: grid;
    grid-template-columns: repeat(auto-fill, minmax(140px, 1fr));
    gap: 8px;
    background: var(--section-bg);
    padding: 12px;
    border-radius: 8px;
    margin-bottom: 16px;
  }
  .summary-item { text-align: center; }
  .summary-item .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .summary-item .value { font-size: 1.2rem; font-weight: 600; }

  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.9rem; }
  th { background: var(--section-bg); text-align: left; padding: 8px; font-weight: 600; }
  td { padding: 8px; border-bottom: 1px solid var(--border); }
  .trend-badge {
    display: inline-block;
    padding: 1px 8px;
    border-radius: 3px;
    font-size: 0.8rem;
    font-weight: 600;
  }
  .trend-badge.rising { background: #dcfce7; color: var(--green); }
  .trend-badge.falling { background: #fef2f2; color: var(--red); }

  .chart-container {
    margin: 12px 0;
    overflow-x: auto;
  }
  .chart-container svg { max-width: 100%; height: auto; }
  .gauge-inline { display: flex; align-items: center; gap: 12px; }

  .section { margin: 20px 0; }
  .aggregate-line {
    background: var(--section-bg);
    padding: 10px 12px;
    border-radius: 6px;
    margin: 8px 0;
    font-size: 0.9rem;
  }

  .footer {
    margin-top: 30px;
    padding-top: 12px;
    border-top: 2px solid var(--border);
    font-size: 0.8rem;
    color: var(--muted);
    text-align: center;
  }

  @media print {
    body { max-width: 100%; padding: 10px; }
    .section { page-break-inside: avoid; }
  }
</style>
</head>
<body>

<div class="header">
  <div class="header-left">
    <h1>{{.Title}}</h1>
    <p class="muted">Keyword search-volume trends and forecasts</p>
  </div>
  <div class="header-right">
    <p class="muted">{{.GeneratedAt}}</p>
    <p class="muted">{{.Author}}</p>
  </div>
</div>

{{if .ShowSummary}}
<div class="summary-bar">
  <div class="summary-item">
    <div class="label">Categories</div>
    <div class="value">{{.CategoryCount}}</div>
  </div>
  <div class="summary-item">
    <div class="label">Ad Groups</div>
    <div class="value">{{.AdGroupCount}}</div>
  </div>
  <div class="summary-item">
    <div class="label">Keywords</div>
    <div class="value">{{.KeywordCount}}</div>
  </div>
  <div class="summary-item">
    <div class="label">Alerts</div>
    <div class="value">{{.AlertCount}}</div>
  </div>
</div>
{{end}}

{{if .ShowAlerts}}
<div class="section">
  <h2>Alerts</h2>
  <table>
    <thead><tr><th>Keyword</th><th>Next Month</th><th>Next 3 Months</th><th>Historical Avg</th></tr></thead>
    <tbody>
    {{range .Alerts}}
    <tr>
      <td>{{.Keyword}}</td>
      <td><span class="trend-badge {{.TrendClass}}">{{.PctMonth}}</span></td>
      <td>{{.Pct3Mo}}</td>
      <td>{{.HistAvg}}</td>
    </tr>
    {{end}}
    </tbody>
  </table>
</div>
{{end}}

{{if .ShowCharts}}
<div class="section">
  <h2>Charts</h2>
  {{if .TrendChart}}
  <div class="chart-container">{{.TrendChart}}</div>
  {{end}}
  {{if .MoversChart}}
  <div class="chart-container">{{.MoversChart}}</div>
  {{end}}
  {{if .VolatilityGauge}}
  <div class="gauge-inline">{{.VolatilityGauge}}</div>
  {{end}}
</div>
{{end}}

{{if .ShowCategories}}
{{range .Categories}}
<div class="section">
  <h2>{{.Name}}</h2>
  {{if .Aggregate}}
  <div class="aggregate-line">
    Aggregate — Next Month: <strong>{{.Aggregate.PctMonth}}</strong> ·
    Next 3 Months: <strong>{{.Aggregate.Pct3Mo}}</strong> ·
    Avg Volume: <strong>{{.Aggregate.AvgVolume}}</strong> ·
    Volatility: <strong>{{.Aggregate.Volatility}}</strong>
  </div>
  {{end}}

  {{if .Keywords}}
  <table>
    <thead><tr><th>Keyword</th><th>Ad Group</th><th>Current</th><th>Avg Volume</th><th>Next Month</th><th>Next 3 Months</th><th>Volatility</th></tr></thead>
    <tbody>
    {{range .Keywords}}
    <tr>
      <td>{{.Keyword}}</td>
      <td>{{.AdGroup}}</td>
      <td>{{.Current}}</td>
      <td>{{.AvgVolume}}</td>
      <td><span class="trend-badge {{.TrendClass}}">{{.PctMonth}}</span></td>
      <td>{{.Pct3Mo}}</td>
      <td>{{.Volatility}}</td>
    </tr>
    {{end}}
    </tbody>
  </table>
  {{end}}
</div>
{{end}}
{{end}}

<div class="footer">
  <p>Search volumes are ads-planner estimates; forecasts extrapolate historical seasonality and are not guarantees.</p>
  <p>Generated on {{.GeneratedAt}} by {{.Author}}</p>
</div>

</body>
</html>`
