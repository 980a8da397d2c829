// Package scraper crawls a website breadth-first up to a configured
// depth and extracts clean text content for keyword discovery.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/trendlens/trendlens/internal/infra"
	"github.com/trendlens/trendlens/pkg/logger"
)

// ErrNoContent is returned when a crawl yields no extractable text.
var ErrNoContent = errors.New("scraper: no text content found")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Scraper is a breadth-first site crawler. It stays on the start URL's
// host and skips pages it has already visited.
type Scraper struct {
	client    *http.Client
	userAgent string
	maxPages  int
	maxDepth  int
	retries   int
	retryBase time.Duration
	limiter   *infra.RateLimiter
	feeds     *FeedReader
}

// Option configures the scraper.
type Option func(*Scraper)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) { s.client = client }
}

// WithUserAgent overrides the crawl user agent.
func WithUserAgent(ua string) Option {
	return func(s *Scraper) { s.userAgent = ua }
}

// WithTimeout sets the per-request HTTP timeout. Non-positive values
// leave the default in place.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithLimits sets the crawl budget: pages fetched and link depth.
func WithLimits(maxPages, maxDepth int) Option {
	return func(s *Scraper) {
		s.maxPages = maxPages
		s.maxDepth = maxDepth
	}
}

// WithRetries sets per-page fetch retries and the base backoff delay.
func WithRetries(n int, base time.Duration) Option {
	return func(s *Scraper) {
		s.retries = n
		s.retryBase = base
	}
}

// WithRateLimiter throttles page fetches.
func WithRateLimiter(rl *infra.RateLimiter) Option {
	return func(s *Scraper) { s.limiter = rl }
}

// WithFeedReader overrides the RSS/Atom reader used for feeds the
// crawl discovers. Nil disables feed ingestion.
func WithFeedReader(f *FeedReader) Option {
	return func(s *Scraper) { s.feeds = f }
}

// New creates a Scraper.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
		maxPages:  30,
		maxDepth:  2,
		retries:   3,
		retryBase: 2 * time.Second,
		feeds:     NewFeedReader(20),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Page is one crawled page.
type Page struct {
	URL   string
	Depth int
	Text  string
}

// ScrapeSite crawls startURL breadth-first and returns the concatenated
// text of every page visited, followed by the titles of any RSS/Atom
// feeds the pages advertise. Fetch failures skip the page; the crawl
// only errors when nothing at all was extracted.
func (s *Scraper) ScrapeSite(ctx context.Context, startURL string) (string, error) {
	pages, feeds, err := s.crawl(ctx, startURL)
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	texts = append(texts, s.feedTitles(ctx, feeds)...)
	if len(texts) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoContent, startURL)
	}
	return strings.Join(texts, " "), nil
}

// feedTitles reads the discovered feeds, at most three, skipping any
// that fail to parse.
func (s *Scraper) feedTitles(ctx context.Context, feeds []string) []string {
	if s.feeds == nil {
		return nil
	}
	if len(feeds) > 3 {
		feeds = feeds[:3]
	}
	var titles []string
	for _, feedURL := range feeds {
		got, err := s.feeds.Titles(ctx, feedURL)
		if err != nil {
			logger.WithError(err).WithField("feed", feedURL).Warn("feed fetch failed, skipping")
			continue
		}
		titles = append(titles, got...)
	}
	return titles
}

// Crawl performs the BFS and returns per-page results in visit order.
func (s *Scraper) Crawl(ctx context.Context, startURL string) ([]Page, error) {
	pages, _, err := s.crawl(ctx, startURL)
	return pages, err
}

func (s *Scraper) crawl(ctx context.Context, startURL string) ([]Page, []string, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, nil, fmt.Errorf("scraper: parse start url: %w", err)
	}
	if start.Scheme != "http" && start.Scheme != "https" {
		return nil, nil, fmt.Errorf("scraper: unsupported scheme %q", start.Scheme)
	}

	type queued struct {
		url   string
		depth int
	}

	visited := make(map[string]bool)
	queue := []queued{{url: normalizeURL(start), depth: 0}}
	var pages []Page
	seenFeeds := make(map[string]bool)
	var feeds []string

	for len(queue) > 0 && len(visited) < s.maxPages {
		item := queue[0]
		queue = queue[1:]

		if visited[item.url] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return pages, feeds, err
		}
		visited[item.url] = true

		logger.WithField("url", item.url).WithField("depth", item.depth).Debug("crawling page")

		body, err := s.fetch(ctx, item.url)
		if err != nil {
			logger.WithError(err).WithField("url", item.url).Warn("page fetch failed, skipping")
			continue
		}

		page, err := extractPage(body, item.url, start.Host)
		if err != nil {
			logger.WithError(err).WithField("url", item.url).Warn("page parse failed, skipping")
			continue
		}

		pages = append(pages, Page{URL: item.url, Depth: item.depth, Text: page.text})
		for _, feed := range page.feeds {
			if !seenFeeds[feed] {
				seenFeeds[feed] = true
				feeds = append(feeds, feed)
			}
		}

		if item.depth < s.maxDepth {
			for _, link := range page.links {
				if !visited[link] {
					queue = append(queue, queued{url: link, depth: item.depth + 1})
				}
			}
		}
	}

	logger.WithField("pages", len(pages)).WithField("feeds", len(feeds)).Info("crawl complete")
	return pages, feeds, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	var body string
	err := infra.Retry(ctx, s.retries, s.retryBase, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", s.userAgent)

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("scraper: HTTP %d for %s", resp.StatusCode, pageURL)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return err
		}
		body = string(data)
		return nil
	})
	return body, err
}

// parsedPage is the result of pulling one page apart.
type parsedPage struct {
	text  string
	links []string
	feeds []string
}

// extractPage pulls visible text from the page's main content region,
// collects normalized same-host links, and notes any advertised
// RSS/Atom feeds.
func extractPage(html, pageURL, host string) (parsedPage, error) {
	var page parsedPage

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return page, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return page, err
	}

	doc.Find(`link[rel="alternate"]`).Each(func(_ int, l *goquery.Selection) {
		typ, _ := l.Attr("type")
		if typ != "application/rss+xml" && typ != "application/atom+xml" {
			return
		}
		href, _ := l.Attr("href")
		if u, err := base.Parse(strings.TrimSpace(href)); err == nil {
			page.feeds = append(page.feeds, u.String())
		}
	})

	doc.Find("script, style, noscript").Remove()

	// Main content with fallbacks, matching how article-style sites
	// structure their markup.
	var content *goquery.Selection
	for _, sel := range []string{"main", "article", "#content", ".main-content", "body"} {
		if c := doc.Find(sel).First(); c.Length() > 0 {
			content = c
			break
		}
	}
	if content != nil {
		page.text = strings.Join(strings.Fields(content.Text()), " ")
	}

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "#") {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host != host {
			return
		}
		clean := normalizeURL(u)
		if !seen[clean] {
			seen[clean] = true
			page.links = append(page.links, clean)
		}
	})

	return page, nil
}

// normalizeURL strips the fragment and trailing slash so the same page
// is not crawled twice.
func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return strings.TrimRight(c.String(), "/")
}
