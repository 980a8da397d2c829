package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedReader pulls candidate topics from RSS/Atom feeds, a cheap way to
// seed keyword discovery from a blog or news section.
type FeedReader struct {
	parser *gofeed.Parser
	limit  int
}

// NewFeedReader creates a FeedReader that returns at most limit items
// per feed. limit <= 0 means no cap.
func NewFeedReader(limit int) *FeedReader {
	return &FeedReader{parser: gofeed.NewParser(), limit: limit}
}

// FeedItem is one entry from a feed.
type FeedItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Fetch parses the feed at feedURL and returns its items.
func (f *FeedReader) Fetch(ctx context.Context, feedURL string) ([]FeedItem, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse feed %s: %w", feedURL, err)
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		items = append(items, FeedItem{Title: title, Link: it.Link})
		if f.limit > 0 && len(items) >= f.limit {
			break
		}
	}
	return items, nil
}

// Titles is a convenience wrapper returning only the item titles.
func (f *FeedReader) Titles(ctx context.Context, feedURL string) ([]string, error) {
	items, err := f.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	return titles, nil
}
