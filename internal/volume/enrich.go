package volume

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trendlens/trendlens/internal/infra"
	"github.com/trendlens/trendlens/pkg/logger"
	"github.com/trendlens/trendlens/pkg/models"
)

// Enricher fetches volume histories for keywords and their similar
// keywords, with bounded concurrency and an optional fetch cache.
type Enricher struct {
	provider    Provider
	concurrency int
	cache       *infra.Cache[models.VolumeHistory]
}

// EnricherOption configures the enricher.
type EnricherOption func(*Enricher)

// WithCacheTTL caches per-keyword histories for the given duration, so
// a keyword shared between runs or appearing as several keywords'
// similar term hits the provider once. ttl <= 0 disables caching.
func WithCacheTTL(ttl time.Duration) EnricherOption {
	return func(e *Enricher) {
		if ttl > 0 {
			e.cache = infra.NewCache[models.VolumeHistory](ttl)
		}
	}
}

// NewEnricher creates an Enricher. concurrency <= 0 defaults to 5.
func NewEnricher(provider Provider, concurrency int, opts ...EnricherOption) *Enricher {
	if concurrency <= 0 {
		concurrency = 5
	}
	e := &Enricher{provider: provider, concurrency: concurrency}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich builds a KeywordRecord per input keyword: the keyword's own
// history plus one history per similar keyword. Keywords the provider
// has no data for get an empty history rather than failing the batch;
// other provider errors abort.
func (e *Enricher) Enrich(ctx context.Context, keywords []models.Keyword) ([]models.KeywordRecord, error) {
	records := make([]models.KeywordRecord, len(keywords))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, kw := range keywords {
		records[i] = models.KeywordRecord{
			Keyword: kw.Text,
			Similar: make(map[string]models.VolumeHistory, len(kw.SimilarKeywords)),
		}

		g.Go(func() error {
			history, err := e.fetch(ctx, kw.Text)
			if err != nil {
				return err
			}
			mu.Lock()
			records[i].History = history
			mu.Unlock()
			return nil
		})

		for _, similar := range kw.SimilarKeywords {
			g.Go(func() error {
				history, err := e.fetch(ctx, similar)
				if err != nil {
					return err
				}
				mu.Lock()
				records[i].Similar[similar] = history
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// EnrichMap is a convenience wrapper returning records keyed by keyword
// text, the shape the tree analyzer consumes.
func (e *Enricher) EnrichMap(ctx context.Context, keywords []models.Keyword) (map[string]models.KeywordRecord, error) {
	records, err := e.Enrich(ctx, keywords)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.KeywordRecord, len(records))
	for _, rec := range records {
		out[rec.Keyword] = rec
	}
	return out, nil
}

func (e *Enricher) fetch(ctx context.Context, keyword string) (models.VolumeHistory, error) {
	if e.cache != nil {
		if history, ok := e.cache.Get(keyword); ok {
			return history, nil
		}
	}

	history, err := e.provider.GetMonthlyVolumesByYear(ctx, keyword)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			logger.WithField("keyword", keyword).Debug("no volume data, using empty history")
			history = models.VolumeHistory{}
		} else {
			return nil, err
		}
	}

	if e.cache != nil {
		e.cache.Set(keyword, history)
	}
	return history, nil
}
