package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func crawlServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<main>Home page about portable grills</main>
			<a href="/products">Products</a>
			<a href="/products/">Products again</a>
			<a href="/about#team">About</a>
			<a href="javascript:void(0)">ignore</a>
			<a href="mailto:hi@example.com">ignore</a>
			<a href="https://elsewhere.example.org/offsite">offsite</a>
		</body></html>`)
	})
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<script>var junk = 1;</script>
			<article>Gas grills and charcoal grills</article>
			<a href="/products/deep">Deep page</a>
		</body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="content">Our grilling team</div></body></html>`)
	})
	mux.HandleFunc("/products/deep", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><main>Too deep to reach</main></body></html>`)
	})
	return httptest.NewServer(mux)
}

func TestCrawlBreadthFirst(t *testing.T) {
	srv := crawlServer(t)
	defer srv.Close()

	s := New(WithLimits(10, 1), WithRetries(1, time.Millisecond))
	pages, err := s.Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	// depth 1 limit: home, products, about — not products/deep
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3: %+v", len(pages), pages)
	}
	if pages[0].Depth != 0 || !strings.Contains(pages[0].Text, "portable grills") {
		t.Errorf("first page = %+v", pages[0])
	}
	for _, p := range pages {
		if strings.Contains(p.URL, "deep") {
			t.Errorf("crawl exceeded depth limit: %s", p.URL)
		}
		if strings.Contains(p.Text, "junk") {
			t.Errorf("script content leaked into text: %q", p.Text)
		}
	}
}

func TestCrawlRespectsMaxPages(t *testing.T) {
	srv := crawlServer(t)
	defer srv.Close()

	s := New(WithLimits(1, 3), WithRetries(1, time.Millisecond))
	pages, err := s.Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("pages = %d, want 1", len(pages))
	}
}

func TestCrawlStaysOnHost(t *testing.T) {
	srv := crawlServer(t)
	defer srv.Close()

	s := New(WithLimits(20, 3), WithRetries(1, time.Millisecond))
	pages, err := s.Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	for _, p := range pages {
		if !strings.HasPrefix(p.URL, srv.URL) {
			t.Errorf("left the start host: %s", p.URL)
		}
	}
}

func TestCrawlDeduplicatesURLVariants(t *testing.T) {
	srv := crawlServer(t)
	defer srv.Close()

	// /products and /products/ and /about#team must each crawl once.
	s := New(WithLimits(20, 2), WithRetries(1, time.Millisecond))
	pages, err := s.Crawl(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	seen := make(map[string]int)
	for _, p := range pages {
		seen[p.URL]++
	}
	for u, n := range seen {
		if n > 1 {
			t.Errorf("URL %s crawled %d times", u, n)
		}
	}
}

func TestScrapeSiteJoinsText(t *testing.T) {
	srv := crawlServer(t)
	defer srv.Close()

	s := New(WithLimits(10, 1), WithRetries(1, time.Millisecond))
	text, err := s.ScrapeSite(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ScrapeSite: %v", err)
	}
	for _, want := range []string{"portable grills", "charcoal grills", "grilling team"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q", want)
		}
	}
}

func TestScrapeSiteNoContent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(WithLimits(5, 1), WithRetries(2, time.Millisecond))
	_, err := s.ScrapeSite(context.Background(), srv.URL)
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("err = %v, want ErrNoContent", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("fetch attempts = %d, want 2 (retried once)", n)
	}
}

func TestCrawlRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `<html><body><main>recovered</main></body></html>`)
	}))
	defer srv.Close()

	s := New(WithLimits(1, 0), WithRetries(3, time.Millisecond))
	text, err := s.ScrapeSite(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ScrapeSite: %v", err)
	}
	if !strings.Contains(text, "recovered") {
		t.Errorf("text = %q", text)
	}
}

func TestCrawlRejectsBadScheme(t *testing.T) {
	s := New()
	if _, err := s.Crawl(context.Background(), "ftp://example.com"); err == nil {
		t.Error("expected error for non-http scheme")
	}
}

func TestFeedReader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Grill Blog</title>
  <item><title>Best portable grills 2024</title><link>https://example.com/1</link></item>
  <item><title>  </title><link>https://example.com/skip</link></item>
  <item><title>Charcoal vs gas</title><link>https://example.com/2</link></item>
  <item><title>Smoker buying guide</title><link>https://example.com/3</link></item>
</channel></rss>`)
	}))
	defer srv.Close()

	f := NewFeedReader(2)
	titles, err := f.Titles(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	want := []string{"Best portable grills 2024", "Charcoal vs gas"}
	if len(titles) != len(want) {
		t.Fatalf("titles = %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, titles[i], want[i])
		}
	}
}

func TestFeedReaderBadFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not xml at all")
	}))
	defer srv.Close()

	f := NewFeedReader(0)
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected parse error for invalid feed")
	}
}

func TestScrapeSiteIncludesFeedTitles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<link rel="alternate" type="application/rss+xml" href="/feed.xml">
			<link rel="stylesheet" href="/style.css">
		</head><body><main>Home page about portable grills</main></body></html>`)
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Grill Blog</title>
  <item><title>Best portable grills 2024</title><link>https://example.com/1</link></item>
  <item><title>Charcoal vs gas</title><link>https://example.com/2</link></item>
</channel></rss>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(WithLimits(5, 0), WithRetries(1, time.Millisecond))
	text, err := s.ScrapeSite(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ScrapeSite: %v", err)
	}
	for _, want := range []string{"portable grills", "Best portable grills 2024", "Charcoal vs gas"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q", want)
		}
	}
}

func TestScrapeSiteFeedsDisabled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<link rel="alternate" type="application/atom+xml" href="/feed.xml">
		</head><body><main>Home page about portable grills</main></body></html>`)
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		t.Error("feed fetched despite WithFeedReader(nil)")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(WithLimits(5, 0), WithRetries(1, time.Millisecond), WithFeedReader(nil))
	text, err := s.ScrapeSite(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ScrapeSite: %v", err)
	}
	if !strings.Contains(text, "portable grills") {
		t.Errorf("text = %q", text)
	}
}

func TestWithTimeout(t *testing.T) {
	s := New(WithTimeout(5 * time.Second))
	if s.client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", s.client.Timeout)
	}

	s = New(WithTimeout(0))
	if s.client.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want default 30s", s.client.Timeout)
	}
}
