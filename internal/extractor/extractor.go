// Package extractor turns scraped page text into trackable search
// keywords using an LLM, and can organize a flat keyword list into a
// category / ad group tree.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/trendlens/trendlens/internal/expander"
	"github.com/trendlens/trendlens/internal/llm"
	"github.com/trendlens/trendlens/pkg/logger"
	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/pkg/utils"
)

// ErrBadStructure is returned when the model's categorization output
// cannot be parsed.
var ErrBadStructure = errors.New("extractor: completion is not a category structure")

// Chunk sizing: ~3000 prompt tokens at ~4 chars per token.
const maxChunkSize = 12000

// Chunks shorter than this carry too little signal to bother the model.
const minChunkSize = 100

const extractPrompt = `You are a skilled and experienced search marketing analyst. Your task is to analyze the following web page content and identify a list of highly relevant and commercially valuable keywords, focusing on topics and entities mentioned in the text.

The keywords should be:
- Directly related to the products, services, or topics discussed.
- Phrases that a potential customer would use in a search engine.
- A mix of short-tail and long-tail keywords.
- Do not include generic words or adjectives. Only keywords that some business would want to track!
For example, do not include something like 'Recommended'
Also, the data you get is from a website dump, make sure not to accidentally add website elements like the keyword 'filter'
- Return ONLY a single, valid JSON array of strings. Do not include any explanations, introductory text, or concluding remarks outside of the array.

Text to analyze:
--- START OF TEXT ---
%s
--- END OF TEXT ---

Generate a list of keywords:`

const categorizePrompt = `You are a search marketing analyst organizing keywords into an ad campaign structure.

Group the following keywords into categories and ad groups. Every keyword must appear in exactly one ad group. Use short descriptive names.

Keywords:
%s

Return ONLY valid JSON shaped like:
[{"category": "Category Name", "ad_groups": [{"ad_group": "Ad Group Name", "keywords": ["kw1", "kw2"]}]}]
No explanations.`

// Extractor extracts and organizes keywords from free text.
type Extractor struct {
	provider    llm.Provider
	maxKeywords int
	delay       time.Duration
}

// Option configures the extractor.
type Option func(*Extractor)

// WithMaxKeywords caps the number of keywords returned per text.
func WithMaxKeywords(n int) Option {
	return func(e *Extractor) { e.maxKeywords = n }
}

// WithDelay sets the pause between chunk requests.
func WithDelay(d time.Duration) Option {
	return func(e *Extractor) { e.delay = d }
}

// New creates an Extractor backed by the given LLM provider.
func New(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		provider:    provider,
		maxKeywords: 100,
		delay:       500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFromText splits text into chunks, asks the model for keywords
// per chunk, and returns the normalized, deduplicated union capped at
// the configured maximum. Chunk failures are skipped.
func (e *Extractor) ExtractFromText(ctx context.Context, text string) ([]string, error) {
	chunks := SplitChunks(text)
	if len(chunks) == 0 {
		return nil, nil
	}
	logger.WithField("chunks", len(chunks)).Debug("extracting keywords from text")

	seen := make(map[string]struct{})
	var out []string

	for i, chunk := range chunks {
		if len(out) >= e.maxKeywords {
			break
		}
		if i > 0 && e.delay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(e.delay):
			}
		}

		kws, err := e.extractChunk(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			logger.WithError(err).Warn("chunk extraction failed, skipping")
			continue
		}
		for _, kw := range kws {
			n := utils.NormalizeKeyword(kw)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
			if len(out) >= e.maxKeywords {
				break
			}
		}
	}
	return out, nil
}

func (e *Extractor) extractChunk(ctx context.Context, chunk string) ([]string, error) {
	if len(chunk) < minChunkSize {
		return nil, nil
	}
	resp, err := e.provider.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(extractPrompt, chunk),
		Temperature: 0.4,
		MaxTokens:   512,
	})
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	return expander.ParseKeywordList(resp.Content)
}

// Categorize asks the model to arrange a flat keyword list into a
// category / ad group tree. Keywords the model drops are appended to an
// "Uncategorized" group so nothing is lost.
func (e *Extractor) Categorize(ctx context.Context, keywords []string) ([]models.Category, error) {
	if len(keywords) == 0 {
		return nil, nil
	}

	resp, err := e.provider.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(categorizePrompt, strings.Join(keywords, "\n")),
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}

	tree, err := parseCategoryTree(resp.Content)
	if err != nil {
		return nil, err
	}

	placed := make(map[string]bool)
	for _, cat := range tree {
		for _, ag := range cat.AdGroups {
			for _, kw := range ag.Keywords {
				placed[utils.NormalizeKeyword(kw.Text)] = true
			}
		}
	}

	var missing []models.Keyword
	for _, kw := range keywords {
		if !placed[utils.NormalizeKeyword(kw)] {
			missing = append(missing, models.Keyword{Text: kw})
		}
	}
	if len(missing) > 0 {
		tree = append(tree, models.Category{
			Name: "Uncategorized",
			AdGroups: []models.AdGroup{
				{Name: "Uncategorized", Keywords: missing},
			},
		})
	}
	return tree, nil
}

// parseCategoryTree decodes the model's JSON, tolerating prose and code
// fences around the array the same way keyword lists are recovered.
func parseCategoryTree(content string) ([]models.Category, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	type rawAdGroup struct {
		Name     string   `json:"ad_group"`
		Keywords []string `json:"keywords"`
	}
	type rawCategory struct {
		Name     string       `json:"category"`
		AdGroups []rawAdGroup `json:"ad_groups"`
	}

	decode := func(s string) ([]rawCategory, error) {
		var raw []rawCategory
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}

	raw, err := decode(content)
	if err != nil {
		start := strings.Index(content, "[")
		end := strings.LastIndex(content, "]")
		if start >= 0 && end > start {
			raw, err = decode(content[start : end+1])
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %.80q", ErrBadStructure, content)
		}
	}

	out := make([]models.Category, 0, len(raw))
	for _, rc := range raw {
		cat := models.Category{Name: strings.TrimSpace(rc.Name)}
		for _, rag := range rc.AdGroups {
			ag := models.AdGroup{Name: strings.TrimSpace(rag.Name)}
			for _, kw := range utils.DedupeKeywords(rag.Keywords) {
				ag.Keywords = append(ag.Keywords, models.Keyword{Text: kw})
			}
			cat.AdGroups = append(cat.AdGroups, ag)
		}
		out = append(out, cat)
	}
	return out, nil
}

var sentenceEnd = regexp.MustCompile(`[.?!]\s+`)

// SplitChunks splits text into chunks of at most maxChunkSize
// characters, breaking on sentence boundaries where possible.
func SplitChunks(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var segments []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		segments = append(segments, text[last:loc[0]+1])
		last = loc[1]
	}
	if last < len(text) {
		segments = append(segments, text[last:])
	}

	var chunks []string
	var current strings.Builder
	for _, seg := range segments {
		if current.Len() > 0 && current.Len()+len(seg)+1 > maxChunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(seg)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}
