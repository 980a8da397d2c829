// Package pipeline wires the analysis stages together: keyword
// expansion, volume enrichment, forecasting, roll-up, and alert
// extraction. The flat keyword-list run (scheduled notifier) and the
// tree run (dashboard analysis) share the same stages.
package pipeline

import (
	"context"
	"fmt"

	"github.com/trendlens/trendlens/internal/expander"
	"github.com/trendlens/trendlens/internal/extractor"
	"github.com/trendlens/trendlens/internal/scraper"
	"github.com/trendlens/trendlens/internal/trend"
	"github.com/trendlens/trendlens/internal/volume"
	"github.com/trendlens/trendlens/pkg/logger"
	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/pkg/utils"
)

// Stage names reported through the progress hook.
const (
	StageExpanding    = "expanding"
	StageIdeas        = "generating_ideas"
	StageFetching     = "fetching_volumes"
	StageForecasting  = "forecasting"
	StageScraping     = "scraping"
	StageExtracting   = "extracting_keywords"
	StageCategorizing = "categorizing"
	StageDone         = "done"
)

// Progress describes one pipeline step for live consumers (the
// WebSocket hub, the CLI spinner).
type Progress struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Pipeline runs analysis and scan flows over the configured providers.
type Pipeline struct {
	expander      *expander.Expander
	enricher      *volume.Enricher
	forecaster    *trend.Forecaster
	scraper       *scraper.Scraper
	extractor     *extractor.Extractor
	ideas         volume.IdeaProvider
	ideasPerGroup int
	progress      func(Progress)
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithExpander enables LLM keyword expansion before enrichment. Without
// it keywords are analyzed without similar-keyword context.
func WithExpander(e *expander.Expander) Option {
	return func(p *Pipeline) { p.expander = e }
}

// WithScanStages enables the website-scan flow.
func WithScanStages(s *scraper.Scraper, x *extractor.Extractor) Option {
	return func(p *Pipeline) {
		p.scraper = s
		p.extractor = x
	}
}

// WithIdeaProvider enables planner-idea top-up for sparse ad groups in
// the tree flow: groups with fewer than perGroup keywords are filled
// with related ideas seeded from their existing keywords.
func WithIdeaProvider(ideas volume.IdeaProvider, perGroup int) Option {
	return func(p *Pipeline) {
		p.ideas = ideas
		p.ideasPerGroup = perGroup
	}
}

// WithForecaster overrides the forecaster (used in tests to pin the
// anchor month).
func WithForecaster(f *trend.Forecaster) Option {
	return func(p *Pipeline) { p.forecaster = f }
}

// WithProgress registers a hook called once per stage transition.
func WithProgress(fn func(Progress)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New creates a pipeline around the volume enricher, the one stage
// every flow needs.
func New(enricher *volume.Enricher, opts ...Option) *Pipeline {
	p := &Pipeline{
		enricher:   enricher,
		forecaster: trend.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) report(stage, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.WithField("stage", stage).Info(msg)
	if p.progress != nil {
		p.progress(Progress{Stage: stage, Message: msg})
	}
}

// AnalyzeKeywords runs the flat flow: expand the keywords, fetch
// volume histories, and forecast each one.
func (p *Pipeline) AnalyzeKeywords(ctx context.Context, keywords []string) ([]models.KeywordForecast, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	expanded, err := p.expand(ctx, keywords)
	if err != nil {
		return nil, err
	}

	p.report(StageFetching, "fetching volume histories for %d keywords", len(expanded))
	records, err := p.enricher.Enrich(ctx, expanded)
	if err != nil {
		return nil, fmt.Errorf("pipeline: enrich: %w", err)
	}

	p.report(StageForecasting, "forecasting %d keywords", len(records))
	results := p.forecaster.AnalyzeAll(records)
	p.report(StageDone, "analysis complete")
	return results, nil
}

// AnalyzeAlerts runs AnalyzeKeywords and filters the results down to
// alerts with the given thresholds.
func (p *Pipeline) AnalyzeAlerts(ctx context.Context, keywords []string, th trend.Thresholds) ([]models.KeywordForecast, []models.Alert, error) {
	results, err := p.AnalyzeKeywords(ctx, keywords)
	if err != nil {
		return nil, nil, err
	}
	return results, trend.ExtractAlerts(results, th), nil
}

// AnalyzeTree runs the tree flow: expand and enrich every keyword in
// the hierarchy, then forecast and roll metrics up ad groups and
// categories.
func (p *Pipeline) AnalyzeTree(ctx context.Context, tree []models.Category) ([]models.AnalyzedCategory, error) {
	tree = p.TopUpTree(ctx, tree)
	flat := flattenTree(tree)
	if len(flat) == 0 {
		return p.forecaster.AnalyzeTree(tree, nil), nil
	}

	expanded, err := p.expand(ctx, flat)
	if err != nil {
		return nil, err
	}

	p.report(StageFetching, "fetching volume histories for %d keywords", len(expanded))
	records, err := p.enricher.EnrichMap(ctx, expanded)
	if err != nil {
		return nil, fmt.Errorf("pipeline: enrich: %w", err)
	}

	p.report(StageForecasting, "rolling up %d categories", len(tree))
	analyzed := p.forecaster.AnalyzeTree(tree, records)
	p.report(StageDone, "tree analysis complete")
	return analyzed, nil
}

// TopUpTree fills ad groups that have fewer than the configured number
// of keywords with planner ideas seeded from the group's existing
// keywords. Groups without seeds and idea-provider failures are left
// as they are. The input tree is not mutated.
func (p *Pipeline) TopUpTree(ctx context.Context, tree []models.Category) []models.Category {
	if p.ideas == nil || p.ideasPerGroup <= 0 {
		return tree
	}

	out := make([]models.Category, len(tree))
	for ci, cat := range tree {
		out[ci] = cat
		out[ci].AdGroups = make([]models.AdGroup, len(cat.AdGroups))
		for gi, group := range cat.AdGroups {
			out[ci].AdGroups[gi] = group
			missing := p.ideasPerGroup - len(group.Keywords)
			if missing <= 0 || len(group.Keywords) == 0 {
				continue
			}

			seeds := make([]string, len(group.Keywords))
			for i, kw := range group.Keywords {
				seeds[i] = kw.Text
			}

			p.report(StageIdeas, "requesting %d keyword ideas for %q", missing, group.Name)
			ideas, err := p.ideas.GetKeywordIdeas(ctx, seeds, p.ideasPerGroup)
			if err != nil {
				logger.WithError(err).WithField("ad_group", group.Name).Warn("keyword ideas unavailable, keeping group as is")
				continue
			}

			have := make(map[string]bool, len(seeds))
			for _, seed := range seeds {
				have[utils.NormalizeKeyword(seed)] = true
			}
			kws := make([]models.Keyword, len(group.Keywords), p.ideasPerGroup)
			copy(kws, group.Keywords)
			for _, idea := range utils.DedupeKeywords(ideas) {
				if len(kws) >= p.ideasPerGroup {
					break
				}
				if have[idea] {
					continue
				}
				have[idea] = true
				kws = append(kws, models.Keyword{Text: idea})
			}
			out[ci].AdGroups[gi].Keywords = kws
		}
	}
	return out
}

// ScanWebsite crawls a site, extracts candidate keywords from its
// text, and organizes them into a category tree.
func (p *Pipeline) ScanWebsite(ctx context.Context, siteURL string) ([]models.Category, error) {
	if p.scraper == nil || p.extractor == nil {
		return nil, fmt.Errorf("pipeline: scan stages not configured")
	}

	p.report(StageScraping, "crawling %s", siteURL)
	text, err := p.scraper.ScrapeSite(ctx, siteURL)
	if err != nil {
		return nil, fmt.Errorf("pipeline: scrape: %w", err)
	}

	p.report(StageExtracting, "extracting keywords from %d characters", len(text))
	keywords, err := p.extractor.ExtractFromText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("pipeline: extract: %w", err)
	}

	p.report(StageCategorizing, "organizing %d keywords", len(keywords))
	tree, err := p.extractor.Categorize(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("pipeline: categorize: %w", err)
	}
	p.report(StageDone, "scan complete")
	return tree, nil
}

// expand runs LLM expansion when configured, otherwise wraps the plain
// keywords.
func (p *Pipeline) expand(ctx context.Context, keywords []string) ([]models.Keyword, error) {
	if p.expander == nil {
		out := make([]models.Keyword, len(keywords))
		for i, kw := range keywords {
			out[i] = models.Keyword{Text: kw}
		}
		return out, nil
	}

	p.report(StageExpanding, "expanding %d seed keywords", len(keywords))
	expanded, err := p.expander.ExpandBatch(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("pipeline: expand: %w", err)
	}
	return expanded, nil
}

// flattenTree lists every keyword text in the hierarchy.
func flattenTree(tree []models.Category) []string {
	var out []string
	for _, cat := range tree {
		for _, group := range cat.AdGroups {
			for _, kw := range group.Keywords {
				out = append(out, kw.Text)
			}
		}
	}
	return out
}
