package volume

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/trendlens/trendlens/pkg/models"
)

// Boost forces a synthetic trend onto a fake keyword history so demos
// and tests can exercise the alerting paths. Values are fractional:
// 0.5 means the boosted months run 50% above the anchor month.
type Boost struct {
	OneMo   float64
	ThreeMo float64
}

// FakeProvider generates synthetic volume histories. Histories are
// deterministic per keyword and seed.
type FakeProvider struct {
	seed       int64
	monthIndex int // 0-based current month index
	boosts     map[string]Boost
	now        func() time.Time
}

// FakeOption configures the fake provider.
type FakeOption func(*FakeProvider)

// WithFakeSeed sets the base RNG seed.
func WithFakeSeed(seed int64) FakeOption {
	return func(f *FakeProvider) { f.seed = seed }
}

// WithFakeBoosts forces trends onto specific keywords.
func WithFakeBoosts(boosts map[string]Boost) FakeOption {
	return func(f *FakeProvider) { f.boosts = boosts }
}

// WithFakeMonthIndex overrides the current-month index used when
// applying boosts.
func WithFakeMonthIndex(idx int) FakeOption {
	return func(f *FakeProvider) { f.monthIndex = idx }
}

// WithFakeClock overrides the time source.
func WithFakeClock(now func() time.Time) FakeOption {
	return func(f *FakeProvider) { f.now = now }
}

// NewFakeProvider creates a fake provider.
func NewFakeProvider(opts ...FakeOption) *FakeProvider {
	f := &FakeProvider{
		seed:       1,
		monthIndex: -1,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.monthIndex < 0 {
		f.monthIndex = int(f.now().Month()) - 1
	}
	return f
}

// GetMonthlyVolumesByYear generates a history covering the current year
// and the three before it. Future months of the current year stay zero.
func (f *FakeProvider) GetMonthlyVolumesByYear(_ context.Context, keyword string) (models.VolumeHistory, error) {
	rng := rand.New(rand.NewSource(f.seed + int64(hashKeyword(keyword))))

	currentYear := f.now().Year()
	currentMonth := int(f.now().Month())

	history := models.VolumeHistory{}
	for year := currentYear - 3; year <= currentYear; year++ {
		months := make(models.MonthSeries, 12)
		limit := 12
		if year == currentYear {
			limit = currentMonth
		}
		for m := 0; m < limit; m++ {
			months[m] = rng.Intn(151)
		}
		history[year] = months
	}

	if boost, ok := f.boosts[keyword]; ok {
		switch {
		case boost.OneMo != 0:
			f.applyOneMonthBoost(history, boost.OneMo, rng)
		case boost.ThreeMo != 0:
			f.applyThreeMonthBoost(history, boost.ThreeMo, rng)
		}
	}

	return history, nil
}

// applyOneMonthBoost makes last year's next month run boost% above the
// same year's anchor month.
func (f *FakeProvider) applyOneMonthBoost(history models.VolumeHistory, boost float64, rng *rand.Rand) {
	years := history.Years()
	if len(years) < 2 {
		return
	}
	lastYear := years[len(years)-2] // current year is the final element
	i, j := f.monthIndex, f.monthIndex+1
	if j >= 12 {
		return // can't go beyond December
	}

	base := history[lastYear][i]
	if base == 0 {
		base = rng.Intn(91) + 10
		history[lastYear][i] = base
	}
	history[lastYear][j] = int(float64(base) * (1 + boost))
}

// applyThreeMonthBoost makes the next three months in each past year
// average boost% above that year's anchor month.
func (f *FakeProvider) applyThreeMonthBoost(history models.VolumeHistory, boost float64, rng *rand.Rand) {
	years := history.Years()
	if len(years) < 2 {
		return
	}
	i := f.monthIndex
	if i+3 >= 12 {
		return // would overflow past December
	}

	for _, year := range years[:len(years)-1] {
		base := history[year][i]
		if base == 0 {
			base = rng.Intn(91) + 10
			history[year][i] = base
		}
		target := float64(base) * (1 + boost)
		for j := i + 1; j <= i+3; j++ {
			fluctuation := rng.Float64()*0.2 - 0.1
			history[year][j] = int(target * (1 + fluctuation))
		}
	}
}

func hashKeyword(kw string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(kw))
	return h.Sum32()
}
