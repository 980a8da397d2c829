package trend

import (
	"testing"

	"github.com/trendlens/trendlens/pkg/models"
)

func TestMonthlyMeans(t *testing.T) {
	hist := models.VolumeHistory{
		2022: {100, 0, 300},       // short prior year: missing months stay 0
		2023: {200, 50, 0, 400},   // zero in March excluded from that month's mean
		2024: constantYear(999),   // latest year excluded entirely
	}

	means := MonthlyMeans(hist)

	if !almostEqual(means[0], 150) {
		t.Errorf("January mean = %v, want 150", means[0])
	}
	if !almostEqual(means[1], 50) {
		t.Errorf("February mean = %v, want 50 (zero excluded)", means[1])
	}
	if !almostEqual(means[2], 300) {
		t.Errorf("March mean = %v, want 300", means[2])
	}
	if !almostEqual(means[3], 400) {
		t.Errorf("April mean = %v, want 400", means[3])
	}
	for i := 4; i < 12; i++ {
		if means[i] != 0 {
			t.Errorf("month %d mean = %v, want 0 (never observed)", i, means[i])
		}
	}
}

func TestMonthlyMeansEmpty(t *testing.T) {
	for _, h := range []models.VolumeHistory{nil, {}, {2024: {1, 2, 3}}} {
		means := MonthlyMeans(h)
		for i, m := range means {
			if m != 0 {
				t.Errorf("month %d mean = %v for history %v, want 0", i, m, h)
			}
		}
	}
}

func TestVolumeHistoryYears(t *testing.T) {
	h := models.VolumeHistory{2024: {}, 2021: {}, 2023: {}}
	years := h.Years()
	want := []int{2021, 2023, 2024}
	if len(years) != len(want) {
		t.Fatalf("Years() = %v, want %v", years, want)
	}
	for i := range want {
		if years[i] != want[i] {
			t.Errorf("Years()[%d] = %d, want %d", i, years[i], want[i])
		}
	}
	if h.LatestYear() != 2024 {
		t.Errorf("LatestYear() = %d, want 2024", h.LatestYear())
	}
	if (models.VolumeHistory{}).LatestYear() != 0 {
		t.Error("LatestYear of empty history should be 0")
	}
}
