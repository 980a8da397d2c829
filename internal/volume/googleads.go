package volume

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/trendlens/trendlens/internal/config"
	"github.com/trendlens/trendlens/internal/infra"
	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/pkg/utils"
)

const (
	defaultAdsBaseURL = "https://googleads.googleapis.com/v17"
	defaultTokenURL   = "https://oauth2.googleapis.com/token"

	// US, English. Keyword metrics vary per market; these match the
	// planner defaults the dashboards were built around.
	languageConstant  = "languageConstants/1000"
	geoTargetConstant = "geoTargetConstants/2840"

	// The planner serves at most 4 years of history; a 42-month window
	// ending at the first of the current month keeps requests stable.
	historyMonths = 42
)

var monthIndex = map[string]int{
	"JANUARY": 0, "FEBRUARY": 1, "MARCH": 2, "APRIL": 3,
	"MAY": 4, "JUNE": 5, "JULY": 6, "AUGUST": 7,
	"SEPTEMBER": 8, "OCTOBER": 9, "NOVEMBER": 10, "DECEMBER": 11,
}

// GoogleAdsClient fetches keyword metrics from the Google Ads REST API.
type GoogleAdsClient struct {
	rest            *resty.Client
	baseURL         string
	tokenURL        string
	developerToken  string
	clientID        string
	clientSecret    string
	refreshToken    string
	customerID      string
	loginCustomerID string
	limiter         *infra.RateLimiter
	retries         int
	retryBase       time.Duration
	now             func() time.Time

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// GoogleAdsOption configures the client.
type GoogleAdsOption func(*GoogleAdsClient)

// WithAdsBaseURL overrides the API endpoint (used in tests).
func WithAdsBaseURL(url string) GoogleAdsOption {
	return func(c *GoogleAdsClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithTokenURL overrides the OAuth token endpoint (used in tests).
func WithTokenURL(url string) GoogleAdsOption {
	return func(c *GoogleAdsClient) { c.tokenURL = url }
}

// WithAdsRateLimiter throttles API calls.
func WithAdsRateLimiter(rl *infra.RateLimiter) GoogleAdsOption {
	return func(c *GoogleAdsClient) { c.limiter = rl }
}

// WithAdsRetries sets retry attempts and backoff base for rate limits.
func WithAdsRetries(n int, base time.Duration) GoogleAdsOption {
	return func(c *GoogleAdsClient) {
		c.retries = n
		c.retryBase = base
	}
}

// WithAdsClock overrides the time source (used in tests).
func WithAdsClock(now func() time.Time) GoogleAdsOption {
	return func(c *GoogleAdsClient) { c.now = now }
}

// NewGoogleAdsClient creates a client from the ads config section.
func NewGoogleAdsClient(cfg config.AdsConfig, opts ...GoogleAdsOption) (*GoogleAdsClient, error) {
	if cfg.DeveloperToken == "" || cfg.ClientID == "" || cfg.ClientSecret == "" ||
		cfg.RefreshToken == "" || cfg.CustomerID == "" {
		return nil, ErrBadConfig
	}

	rest := resty.New()
	rest.SetTimeout(30 * time.Second)

	c := &GoogleAdsClient{
		rest:            rest,
		baseURL:         defaultAdsBaseURL,
		tokenURL:        defaultTokenURL,
		developerToken:  cfg.DeveloperToken,
		clientID:        cfg.ClientID,
		clientSecret:    cfg.ClientSecret,
		refreshToken:    cfg.RefreshToken,
		customerID:      strings.ReplaceAll(cfg.CustomerID, "-", ""),
		loginCustomerID: strings.ReplaceAll(cfg.LoginCustomerID, "-", ""),
		retries:         5,
		retryBase:       4 * time.Second,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ── Wire types ──

type yearMonth struct {
	Year  int    `json:"year"`
	Month string `json:"month"`
}

type historicalMetricsRequest struct {
	Keywords                 []string `json:"keywords"`
	Language                 string   `json:"language"`
	GeoTargetConstants       []string `json:"geoTargetConstants"`
	HistoricalMetricsOptions struct {
		YearMonthRange struct {
			Start yearMonth `json:"start"`
			End   yearMonth `json:"end"`
		} `json:"yearMonthRange"`
	} `json:"historicalMetricsOptions"`
}

type monthlyVolume struct {
	Year            int    `json:"year"`
	Month           string `json:"month"`
	MonthlySearches int64  `json:"monthlySearches,string"`
}

type historicalMetricsResponse struct {
	Results []struct {
		Text           string `json:"text"`
		KeywordMetrics struct {
			MonthlySearchVolumes []monthlyVolume `json:"monthlySearchVolumes"`
		} `json:"keywordMetrics"`
	} `json:"results"`
}

type keywordIdeasResponse struct {
	Results []struct {
		Text string `json:"text"`
	} `json:"results"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// ── API calls ──

// GetMonthlyVolumesByYear fetches the keyword's historical monthly
// search volumes over the trailing 42 months.
func (c *GoogleAdsClient) GetMonthlyVolumesByYear(ctx context.Context, keyword string) (models.VolumeHistory, error) {
	req := historicalMetricsRequest{
		Keywords:           []string{keyword},
		Language:           languageConstant,
		GeoTargetConstants: []string{geoTargetConstant},
	}

	end := utils.MonthsBack(c.now(), 0)
	start := utils.MonthsBack(c.now(), historyMonths)
	req.HistoricalMetricsOptions.YearMonthRange.Start = toYearMonth(start)
	req.HistoricalMetricsOptions.YearMonthRange.End = toYearMonth(end)

	var out historicalMetricsResponse
	url := fmt.Sprintf("%s/customers/%s:generateKeywordHistoricalMetrics", c.baseURL, c.customerID)
	if err := c.post(ctx, url, req, &out); err != nil {
		return nil, err
	}

	if len(out.Results) == 0 || len(out.Results[0].KeywordMetrics.MonthlySearchVolumes) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoData, keyword)
	}

	history := models.VolumeHistory{}
	for _, mv := range out.Results[0].KeywordMetrics.MonthlySearchVolumes {
		idx, ok := monthIndex[mv.Month]
		if !ok {
			continue
		}
		if _, ok := history[mv.Year]; !ok {
			history[mv.Year] = make(models.MonthSeries, 12)
		}
		history[mv.Year][idx] = int(mv.MonthlySearches)
	}
	return history, nil
}

// GetKeywordIdeas asks the planner for related keyword ideas.
func (c *GoogleAdsClient) GetKeywordIdeas(ctx context.Context, seeds []string, max int) ([]string, error) {
	if len(seeds) == 0 {
		return nil, nil
	}

	req := map[string]any{
		"language":           languageConstant,
		"geoTargetConstants": []string{geoTargetConstant},
		"keywordSeed":        map[string]any{"keywords": seeds},
		"pageSize":           max,
	}

	var out keywordIdeasResponse
	url := fmt.Sprintf("%s/customers/%s:generateKeywordIdeas", c.baseURL, c.customerID)
	if err := c.post(ctx, url, req, &out); err != nil {
		return nil, err
	}

	ideas := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		if r.Text != "" {
			ideas = append(ideas, r.Text)
		}
		if max > 0 && len(ideas) >= max {
			break
		}
	}
	return ideas, nil
}

// post sends an authenticated request, retrying with backoff on rate
// limit responses.
func (c *GoogleAdsClient) post(ctx context.Context, url string, body, result any) error {
	return infra.Retry(ctx, c.retries, c.retryBase, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		token, err := c.token(ctx)
		if err != nil {
			return err
		}

		r := c.rest.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+token).
			SetHeader("developer-token", c.developerToken).
			SetBody(body).
			SetResult(result)
		if c.loginCustomerID != "" {
			r.SetHeader("login-customer-id", c.loginCustomerID)
		}

		resp, err := r.Post(url)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode() == http.StatusTooManyRequests:
			return fmt.Errorf("%w: HTTP 429", ErrRateLimited)
		case resp.StatusCode() != http.StatusOK:
			return fmt.Errorf("volume: google ads HTTP %d: %s", resp.StatusCode(), resp.String())
		}
		return nil
	})
}

// token returns a cached OAuth access token, refreshing it when it is
// within a minute of expiry.
func (c *GoogleAdsClient) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	var tok tokenResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
			"refresh_token": c.refreshToken,
		}).
		SetResult(&tok).
		Post(c.tokenURL)
	if err != nil {
		return "", fmt.Errorf("volume: refresh token: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || tok.AccessToken == "" {
		return "", fmt.Errorf("volume: refresh token: HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func toYearMonth(t time.Time) yearMonth {
	return yearMonth{Year: t.Year(), Month: strings.ToUpper(t.Month().String())}
}
