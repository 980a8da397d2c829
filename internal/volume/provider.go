// Package volume fetches monthly search volume histories for keywords.
// The real provider talks to the Google Ads keyword planning API; the
// fake provider generates deterministic synthetic histories for demos
// and tests.
package volume

import (
	"context"
	"errors"

	"github.com/trendlens/trendlens/pkg/models"
)

// Errors returned by volume providers.
var (
	ErrNoData      = errors.New("volume: no search volume data for keyword")
	ErrRateLimited = errors.New("volume: provider rate limit exceeded")
	ErrBadConfig   = errors.New("volume: provider credentials incomplete")
)

// Provider returns monthly search volumes per year for a keyword.
type Provider interface {
	// GetMonthlyVolumesByYear returns a map of year to 12 monthly
	// volumes (January first). The current year's future months are
	// zero-filled.
	GetMonthlyVolumesByYear(ctx context.Context, keyword string) (models.VolumeHistory, error)
}

// IdeaProvider generates related keyword ideas from seed keywords.
type IdeaProvider interface {
	GetKeywordIdeas(ctx context.Context, seeds []string, max int) ([]string, error)
}
