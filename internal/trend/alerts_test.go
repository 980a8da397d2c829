package trend

import (
	"testing"

	"github.com/trendlens/trendlens/pkg/models"
)

func forecastWith(keyword string, weightedMonth float64, histAvg float64) models.KeywordForecast {
	return models.KeywordForecast{
		Keyword:           keyword,
		Weighted:          models.WeightedForecast{PctChangeMonth: weightedMonth, PctChange3Mo: weightedMonth / 2},
		HistoricalAverage: histAvg,
	}
}

func TestExtractAlerts(t *testing.T) {
	th := Thresholds{MinIncreasePct: 10, MaxDecreasePct: -10, MinHits: 100}

	tests := []struct {
		name     string
		forecast models.KeywordForecast
		want     bool
	}{
		{"rise above threshold with volume", forecastWith("up", 12.0, 150), true},
		{"rise above threshold, under hits floor", forecastWith("thin", 12.0, 50), false},
		{"rise below threshold", forecastWith("calm", 9.9, 500), false},
		{"fall past decrease threshold", forecastWith("down", -15.0, 200), true},
		{"fall within band", forecastWith("dip", -9.0, 200), false},
		{"exactly at increase threshold", forecastWith("edge", 10.0, 100), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := ExtractAlerts([]models.KeywordForecast{tt.forecast}, th)
			if got := len(alerts) == 1; got != tt.want {
				t.Errorf("alerted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractAlertsFields(t *testing.T) {
	fc := forecastWith("portable grills", 23.46, 180.9)
	alerts := ExtractAlerts([]models.KeywordForecast{fc}, DefaultThresholds())
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}

	a := alerts[0]
	if a.Keyword != "portable grills" {
		t.Errorf("Keyword = %q", a.Keyword)
	}
	if a.PctChangeMonth != 23.5 {
		t.Errorf("PctChangeMonth = %v, want 23.5 (rounded)", a.PctChangeMonth)
	}
	if a.HistoricalAverage != 180 {
		t.Errorf("HistoricalAverage = %d, want 180 (truncated)", a.HistoricalAverage)
	}
}

func TestExtractAlertsEmptyInput(t *testing.T) {
	if got := ExtractAlerts(nil, DefaultThresholds()); len(got) != 0 {
		t.Errorf("got %d alerts from empty input, want 0", len(got))
	}
}

func TestExtractAlertsPreservesOrder(t *testing.T) {
	in := []models.KeywordForecast{
		forecastWith("b", 20, 200),
		forecastWith("skip", 1, 200),
		forecastWith("a", 30, 200),
	}
	got := ExtractAlerts(in, DefaultThresholds())
	if len(got) != 2 || got[0].Keyword != "b" || got[1].Keyword != "a" {
		t.Errorf("alerts = %+v, want [b a]", got)
	}
}
