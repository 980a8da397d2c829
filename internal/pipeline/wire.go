package pipeline

import (
	"fmt"
	"time"

	"github.com/trendlens/trendlens/internal/config"
	"github.com/trendlens/trendlens/internal/expander"
	"github.com/trendlens/trendlens/internal/extractor"
	"github.com/trendlens/trendlens/internal/llm"
	"github.com/trendlens/trendlens/internal/scraper"
	"github.com/trendlens/trendlens/internal/volume"
	"github.com/trendlens/trendlens/pkg/logger"
)

// FromConfig builds a pipeline from configuration: the configured
// volume provider behind a bounded enricher, LLM-backed expansion and
// scan stages when a provider is reachable, plus any extra options.
func FromConfig(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	provider, err := NewVolumeProvider(cfg)
	if err != nil {
		return nil, err
	}
	enricher := volume.NewEnricher(provider, cfg.Pipeline.ConcurrentFetches,
		volume.WithCacheTTL(time.Duration(cfg.Pipeline.CacheTTL)*time.Second))

	var all []Option
	if ideas, ok := provider.(volume.IdeaProvider); ok && cfg.Pipeline.IdeasPerGroup > 0 {
		all = append(all, WithIdeaProvider(ideas, cfg.Pipeline.IdeasPerGroup))
	}
	router, err := llm.NewRouterFromConfig(cfg)
	if err != nil {
		// Volume-only analysis still works without an LLM.
		logger.WithError(err).Warn("no LLM provider configured; expansion and scanning disabled")
	} else {
		all = append(all,
			WithExpander(expander.New(router, expander.WithPerSeed(cfg.Pipeline.SimilarPerKeyword))),
			WithScanStages(
				scraper.New(
					scraper.WithLimits(cfg.Scraper.MaxPages, cfg.Scraper.MaxDepth),
					scraper.WithUserAgent(cfg.Scraper.UserAgent),
					scraper.WithTimeout(time.Duration(cfg.Scraper.TimeoutSec)*time.Second),
				),
				extractor.New(router),
			),
		)
	}
	all = append(all, opts...)

	return New(enricher, all...), nil
}

// NewVolumeProvider builds the search volume provider named in the
// config: "google" for the Ads API, "fake" for synthetic histories.
func NewVolumeProvider(cfg *config.Config) (volume.Provider, error) {
	switch cfg.Ads.Provider {
	case "google":
		client, err := volume.NewGoogleAdsClient(cfg.Ads,
			volume.WithAdsRetries(3, time.Second))
		if err != nil {
			return nil, fmt.Errorf("pipeline: ads provider: %w", err)
		}
		return client, nil
	case "fake", "":
		return volume.NewFakeProvider(), nil
	default:
		return nil, fmt.Errorf("pipeline: unknown volume provider %q", cfg.Ads.Provider)
	}
}
