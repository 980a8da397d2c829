// Package expander generates similar search keywords for a seed keyword
// using an LLM. Expansions feed the weighted trend blend, so the goal is
// queries real users would actually type, not marketing copy.
package expander

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trendlens/trendlens/internal/llm"
	"github.com/trendlens/trendlens/pkg/logger"
	"github.com/trendlens/trendlens/pkg/models"
	"github.com/trendlens/trendlens/pkg/utils"
)

// ErrBadCompletion is returned when the model output cannot be parsed
// as a JSON string array.
var ErrBadCompletion = errors.New("expander: completion is not a keyword list")

const systemPrompt = "You are a keyword research expert helping build a trend detection tool."

const promptTemplate = `Given the keyword: %q, generate %d realistic search queries that people would use in search engines like Google when looking for the same thing or related products.

Each result must be:
- Short and concise (2 to 4 words)
- Naturally typed by real users (no fluff, no jargon, no marketing phrases)
- Related to the same intent (including synonyms, slang, or product types)

Examples:
Input: "budget gaming laptop"
Output: ["cheap gaming laptop", "affordable gaming laptop", "low-cost gaming laptop", "entry level gaming laptop", "best gaming laptops under 500"]

Now do the same for: %q
Return only a valid JSON array of strings. No explanations.`

// Expander expands seed keywords into related search queries.
type Expander struct {
	provider llm.Provider
	perSeed  int
	delay    time.Duration
}

// Option configures the expander.
type Option func(*Expander)

// WithPerSeed sets how many similar keywords to request per seed.
func WithPerSeed(n int) Option {
	return func(e *Expander) { e.perSeed = n }
}

// WithDelay sets the pause between seeds in a batch, to stay under
// provider rate limits.
func WithDelay(d time.Duration) Option {
	return func(e *Expander) { e.delay = d }
}

// New creates an Expander backed by the given LLM provider.
func New(provider llm.Provider, opts ...Option) *Expander {
	e := &Expander{
		provider: provider,
		perSeed:  5,
		delay:    1100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand generates similar keywords for a single seed. The seed itself
// is never included in the result, and duplicates are dropped.
func (e *Expander) Expand(ctx context.Context, keyword string) ([]string, error) {
	resp, err := e.provider.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      fmt.Sprintf(promptTemplate, keyword, e.perSeed, keyword),
		Temperature: 0.7,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, fmt.Errorf("expander: %w", err)
	}

	raw, err := ParseKeywordList(resp.Content)
	if err != nil {
		return nil, err
	}

	seed := utils.NormalizeKeyword(keyword)
	out := make([]string, 0, len(raw))
	for _, kw := range utils.DedupeKeywords(raw) {
		if kw == seed {
			continue
		}
		out = append(out, kw)
	}
	return out, nil
}

// ExpandBatch expands a list of seed keywords, pacing requests with the
// configured delay. A seed whose expansion fails gets an empty similar
// list rather than aborting the batch.
func (e *Expander) ExpandBatch(ctx context.Context, keywords []string) ([]models.Keyword, error) {
	out := make([]models.Keyword, 0, len(keywords))
	for i, kw := range keywords {
		if i > 0 && e.delay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(e.delay):
			}
		}

		similar, err := e.Expand(ctx, kw)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			logger.WithError(err).WithField("keyword", kw).Warn("keyword expansion failed")
			similar = nil
		}
		out = append(out, models.Keyword{Text: kw, SimilarKeywords: similar})
	}
	return out, nil
}

// ParseKeywordList extracts a JSON string array from model output.
// Models often wrap the array in prose or code fences, so parsing
// retries on the outermost bracketed slice before giving up.
func ParseKeywordList(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var list []string
	if err := json.Unmarshal([]byte(content), &list); err == nil {
		return list, nil
	}

	// A JSON object means the model ignored the output contract; an
	// array buried in its values is not the answer we asked for.
	if strings.HasPrefix(content, "{") {
		return nil, fmt.Errorf("%w: %.80q", ErrBadCompletion, content)
	}

	// Recover the bracketed slice from surrounding prose.
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(content[start:end+1]), &list); err == nil {
			return list, nil
		}
	}

	return nil, fmt.Errorf("%w: %.80q", ErrBadCompletion, content)
}
