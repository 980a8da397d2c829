package volume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trendlens/trendlens/internal/config"
	"github.com/trendlens/trendlens/pkg/models"
)

func adsConfig() config.AdsConfig {
	return config.AdsConfig{
		Provider:        "google",
		DeveloperToken:  "dev-token",
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		RefreshToken:    "refresh-token",
		CustomerID:      "123-456-7890",
		LoginCustomerID: "111-222-3333",
	}
}

func tokenServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		if got := r.FormValue("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "at-123", "expires_in": 3600})
	}))
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

// ── GoogleAdsClient ──

func TestNewGoogleAdsClientValidatesConfig(t *testing.T) {
	cfg := adsConfig()
	cfg.RefreshToken = ""
	if _, err := NewGoogleAdsClient(cfg); !errors.Is(err, ErrBadConfig) {
		t.Errorf("err = %v, want ErrBadConfig", err)
	}
}

func TestGetMonthlyVolumesByYear(t *testing.T) {
	tok := tokenServer(t, nil)
	defer tok.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers/1234567890:generateKeywordHistoricalMetrics" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("developer-token"); got != "dev-token" {
			t.Errorf("developer-token = %q", got)
		}
		if got := r.Header.Get("login-customer-id"); got != "1112223333" {
			t.Errorf("login-customer-id = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer at-123" {
			t.Errorf("authorization = %q", got)
		}

		var req historicalMetricsRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !reflect.DeepEqual(req.Keywords, []string{"portable grills"}) {
			t.Errorf("keywords = %v", req.Keywords)
		}
		// window ends at the first of the fixed "current" month
		if req.HistoricalMetricsOptions.YearMonthRange.End != (yearMonth{2024, "JUNE"}) {
			t.Errorf("end = %+v", req.HistoricalMetricsOptions.YearMonthRange.End)
		}
		if req.HistoricalMetricsOptions.YearMonthRange.Start != (yearMonth{2020, "DECEMBER"}) {
			t.Errorf("start = %+v", req.HistoricalMetricsOptions.YearMonthRange.Start)
		}

		writeJSON(w, `{"results": [{"text": "portable grills", "keywordMetrics": {"monthlySearchVolumes": [
			{"year": 2023, "month": "JANUARY", "monthlySearches": "1000"},
			{"year": 2023, "month": "FEBRUARY", "monthlySearches": "1200"},
			{"year": 2024, "month": "MAY", "monthlySearches": "900"},
			{"year": 2024, "month": "UNSPECIFIED", "monthlySearches": "5"}
		]}}]}`)
	}))
	defer api.Close()

	c, err := NewGoogleAdsClient(adsConfig(),
		WithAdsBaseURL(api.URL),
		WithTokenURL(tok.URL),
		WithAdsRetries(1, time.Millisecond),
		WithAdsClock(func() time.Time { return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatal(err)
	}

	history, err := c.GetMonthlyVolumesByYear(context.Background(), "portable grills")
	if err != nil {
		t.Fatalf("GetMonthlyVolumesByYear: %v", err)
	}
	if history[2023][0] != 1000 || history[2023][1] != 1200 {
		t.Errorf("2023 = %v", history[2023])
	}
	if history[2024][4] != 900 {
		t.Errorf("2024 = %v", history[2024])
	}
	// unknown month enums are skipped, not misfiled
	sum := 0
	for _, v := range history[2024] {
		sum += v
	}
	if sum != 900 {
		t.Errorf("2024 total = %d, want 900 only", sum)
	}
}

func TestGetMonthlyVolumesByYearNoData(t *testing.T) {
	tok := tokenServer(t, nil)
	defer tok.Close()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"results": []}`)
	}))
	defer api.Close()

	c, _ := NewGoogleAdsClient(adsConfig(),
		WithAdsBaseURL(api.URL), WithTokenURL(tok.URL), WithAdsRetries(1, time.Millisecond))
	if _, err := c.GetMonthlyVolumesByYear(context.Background(), "nothing"); !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestGetMonthlyVolumesByYearRetriesRateLimit(t *testing.T) {
	tok := tokenServer(t, nil)
	defer tok.Close()

	var calls int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, `{"results": [{"keywordMetrics": {"monthlySearchVolumes": [
			{"year": 2023, "month": "MARCH", "monthlySearches": "42"}
		]}}]}`)
	}))
	defer api.Close()

	c, _ := NewGoogleAdsClient(adsConfig(),
		WithAdsBaseURL(api.URL), WithTokenURL(tok.URL), WithAdsRetries(3, time.Millisecond))
	history, err := c.GetMonthlyVolumesByYear(context.Background(), "x")
	if err != nil {
		t.Fatalf("GetMonthlyVolumesByYear: %v", err)
	}
	if history[2023][2] != 42 {
		t.Errorf("history = %v", history)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("api calls = %d, want 2", n)
	}
}

func TestTokenIsCached(t *testing.T) {
	var tokenCalls int32
	tok := tokenServer(t, &tokenCalls)
	defer tok.Close()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"results": [{"keywordMetrics": {"monthlySearchVolumes": [
			{"year": 2023, "month": "MARCH", "monthlySearches": "1"}
		]}}]}`)
	}))
	defer api.Close()

	c, _ := NewGoogleAdsClient(adsConfig(),
		WithAdsBaseURL(api.URL), WithTokenURL(tok.URL), WithAdsRetries(1, time.Millisecond))
	for i := 0; i < 3; i++ {
		if _, err := c.GetMonthlyVolumesByYear(context.Background(), "x"); err != nil {
			t.Fatal(err)
		}
	}
	if n := atomic.LoadInt32(&tokenCalls); n != 1 {
		t.Errorf("token refreshes = %d, want 1", n)
	}
}

func TestGetKeywordIdeas(t *testing.T) {
	tok := tokenServer(t, nil)
	defer tok.Close()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers/1234567890:generateKeywordIdeas" {
			t.Errorf("path = %q", r.URL.Path)
		}
		writeJSON(w, `{"results": [{"text": "bbq grill"}, {"text": "camping grill"}, {"text": "grill cover"}]}`)
	}))
	defer api.Close()

	c, _ := NewGoogleAdsClient(adsConfig(),
		WithAdsBaseURL(api.URL), WithTokenURL(tok.URL), WithAdsRetries(1, time.Millisecond))
	ideas, err := c.GetKeywordIdeas(context.Background(), []string{"grill"}, 2)
	if err != nil {
		t.Fatalf("GetKeywordIdeas: %v", err)
	}
	want := []string{"bbq grill", "camping grill"}
	if !reflect.DeepEqual(ideas, want) {
		t.Errorf("ideas = %v, want %v", ideas, want)
	}
}

// ── FakeProvider ──

func fixedJune() func() time.Time {
	return func() time.Time { return time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC) }
}

func TestFakeProviderShape(t *testing.T) {
	f := NewFakeProvider(WithFakeClock(fixedJune()))
	history, err := f.GetMonthlyVolumesByYear(context.Background(), "portable grills")
	if err != nil {
		t.Fatal(err)
	}

	years := history.Years()
	want := []int{2021, 2022, 2023, 2024}
	if !reflect.DeepEqual(years, want) {
		t.Fatalf("years = %v, want %v", years, want)
	}
	for _, y := range years {
		if len(history[y]) != 12 {
			t.Errorf("year %d has %d months", y, len(history[y]))
		}
	}
	// future months of the current year stay zero (June = month 6, so
	// July..December are indexes 6..11)
	for m := 6; m < 12; m++ {
		if history[2024][m] != 0 {
			t.Errorf("future month %d = %d, want 0", m, history[2024][m])
		}
	}
}

func TestFakeProviderDeterministic(t *testing.T) {
	a := NewFakeProvider(WithFakeSeed(7), WithFakeClock(fixedJune()))
	b := NewFakeProvider(WithFakeSeed(7), WithFakeClock(fixedJune()))

	h1, _ := a.GetMonthlyVolumesByYear(context.Background(), "grills")
	h2, _ := b.GetMonthlyVolumesByYear(context.Background(), "grills")
	if !reflect.DeepEqual(h1, h2) {
		t.Error("same seed should produce identical histories")
	}

	h3, _ := a.GetMonthlyVolumesByYear(context.Background(), "tents")
	if reflect.DeepEqual(h1, h3) {
		t.Error("different keywords should produce different histories")
	}
}

func TestFakeProviderOneMonthBoost(t *testing.T) {
	f := NewFakeProvider(
		WithFakeClock(fixedJune()),
		WithFakeMonthIndex(4), // May
		WithFakeBoosts(map[string]Boost{"hot": {OneMo: 0.5}}),
	)
	history, err := f.GetMonthlyVolumesByYear(context.Background(), "hot")
	if err != nil {
		t.Fatal(err)
	}

	base := history[2023][4]
	if base <= 0 {
		t.Fatalf("base month = %d, want positive", base)
	}
	if got, want := history[2023][5], int(float64(base)*1.5); got != want {
		t.Errorf("boosted month = %d, want %d", got, want)
	}
}

func TestFakeProviderThreeMonthBoost(t *testing.T) {
	f := NewFakeProvider(
		WithFakeClock(fixedJune()),
		WithFakeMonthIndex(4),
		WithFakeBoosts(map[string]Boost{"hot": {ThreeMo: 0.4}}),
	)
	history, err := f.GetMonthlyVolumesByYear(context.Background(), "hot")
	if err != nil {
		t.Fatal(err)
	}

	for _, year := range []int{2021, 2022, 2023} {
		base := float64(history[year][4])
		if base <= 0 {
			t.Fatalf("year %d base = %v, want positive", year, base)
		}
		avg := float64(history[year][5]+history[year][6]+history[year][7]) / 3
		// fluctuation is ±10% per month, and values truncate to ints
		if avg < base*1.26-1 || avg > base*1.54 {
			t.Errorf("year %d boosted avg = %v, want near %v", year, avg, base*1.4)
		}
	}
}

// ── Enricher ──

type stubProvider struct {
	histories map[string]models.VolumeHistory
	err       error
	noData    map[string]bool
}

func (s *stubProvider) GetMonthlyVolumesByYear(_ context.Context, kw string) (models.VolumeHistory, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.noData[kw] {
		return nil, fmt.Errorf("%w: %q", ErrNoData, kw)
	}
	return s.histories[kw], nil
}

func TestEnrich(t *testing.T) {
	p := &stubProvider{histories: map[string]models.VolumeHistory{
		"grills": {2023: {100}},
		"bbq":    {2023: {50}},
		"smoker": {2023: {25}},
	}}
	e := NewEnricher(p, 2)

	records, err := e.Enrich(context.Background(), []models.Keyword{
		{Text: "grills", SimilarKeywords: []string{"bbq", "smoker"}},
	})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Keyword != "grills" || rec.History[2023][0] != 100 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Similar["bbq"][2023][0] != 50 || rec.Similar["smoker"][2023][0] != 25 {
		t.Errorf("similar = %+v", rec.Similar)
	}
}

func TestEnrichNoDataDegradesToEmpty(t *testing.T) {
	p := &stubProvider{
		histories: map[string]models.VolumeHistory{"grills": {2023: {100}}},
		noData:    map[string]bool{"obscure": true},
	}
	e := NewEnricher(p, 0)

	records, err := e.Enrich(context.Background(), []models.Keyword{
		{Text: "grills", SimilarKeywords: []string{"obscure"}},
	})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if h, ok := records[0].Similar["obscure"]; !ok || len(h) != 0 {
		t.Errorf("obscure history = %v, want present and empty", h)
	}
}

func TestEnrichPropagatesErrors(t *testing.T) {
	p := &stubProvider{err: errors.New("provider down")}
	e := NewEnricher(p, 3)

	if _, err := e.Enrich(context.Background(), []models.Keyword{{Text: "x"}}); err == nil {
		t.Error("expected error from failing provider")
	}
}

func TestEnrichMap(t *testing.T) {
	p := &stubProvider{histories: map[string]models.VolumeHistory{
		"a": {2023: {1}},
		"b": {2023: {2}},
	}}
	e := NewEnricher(p, 2)

	m, err := e.EnrichMap(context.Background(), []models.Keyword{{Text: "a"}, {Text: "b"}})
	if err != nil {
		t.Fatalf("EnrichMap: %v", err)
	}
	if m["a"].History[2023][0] != 1 || m["b"].History[2023][0] != 2 {
		t.Errorf("map = %+v", m)
	}
}

type countingProvider struct {
	stubProvider
	calls int32
}

func (c *countingProvider) GetMonthlyVolumesByYear(ctx context.Context, kw string) (models.VolumeHistory, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.stubProvider.GetMonthlyVolumesByYear(ctx, kw)
}

func TestEnricherCachesFetches(t *testing.T) {
	p := &countingProvider{stubProvider: stubProvider{
		histories: map[string]models.VolumeHistory{"grills": {2023: {100, 110}}},
		noData:    map[string]bool{"ghost": true},
	}}
	e := NewEnricher(p, 2, WithCacheTTL(time.Minute))

	keywords := []models.Keyword{{Text: "grills"}, {Text: "ghost"}}
	first, err := e.Enrich(context.Background(), keywords)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got := atomic.LoadInt32(&p.calls); got != 2 {
		t.Fatalf("provider calls = %d, want 2", got)
	}

	second, err := e.Enrich(context.Background(), keywords)
	if err != nil {
		t.Fatalf("Enrich (cached): %v", err)
	}
	// Both the real history and the no-data empty history are served
	// from cache.
	if got := atomic.LoadInt32(&p.calls); got != 2 {
		t.Errorf("provider calls after cached run = %d, want 2", got)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached records differ: %+v vs %+v", first, second)
	}
}

func TestEnricherNoCacheByDefault(t *testing.T) {
	p := &countingProvider{stubProvider: stubProvider{
		histories: map[string]models.VolumeHistory{"grills": {2023: {100}}},
	}}
	e := NewEnricher(p, 1)

	for i := 0; i < 2; i++ {
		if _, err := e.Enrich(context.Background(), []models.Keyword{{Text: "grills"}}); err != nil {
			t.Fatal(err)
		}
	}
	if got := atomic.LoadInt32(&p.calls); got != 2 {
		t.Errorf("provider calls = %d, want 2 without a cache", got)
	}
}
