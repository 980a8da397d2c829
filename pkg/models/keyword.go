// Package models defines the shared domain types for TrendLens:
// the category → ad-group → keyword hierarchy, monthly search-volume
// histories, and the forecast/alert types produced by the trend engine.
package models

import "sort"

// MonthSeries holds search volumes for the calendar months of one year.
// Index 0 is January. Past years are expected to carry 12 entries; the
// current, still-incomplete year may carry fewer. Consumers must treat
// out-of-range months as zero rather than assume a full year.
type MonthSeries []int

// VolumeHistory maps a year to that year's monthly search volumes.
// An empty map is a valid history: it means the provider had no data
// for the keyword, not that the fetch failed.
type VolumeHistory map[int]MonthSeries

// Years returns the years present in the history in ascending order.
func (h VolumeHistory) Years() []int {
	years := make([]int, 0, len(h))
	for y := range h {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// LatestYear returns the most recent year in the history, or 0 if empty.
func (h VolumeHistory) LatestYear() int {
	latest := 0
	for y := range h {
		if y > latest {
			latest = y
		}
	}
	return latest
}

// Clone returns a deep copy of the history.
func (h VolumeHistory) Clone() VolumeHistory {
	if h == nil {
		return nil
	}
	out := make(VolumeHistory, len(h))
	for y, months := range h {
		cp := make(MonthSeries, len(months))
		copy(cp, months)
		out[y] = cp
	}
	return out
}

// Keyword is a tracked search query inside an ad group.
type Keyword struct {
	Text            string   `json:"keyword"`
	SimilarKeywords []string `json:"similar_keywords,omitempty"`
}

// AdGroup is a named cluster of related keywords.
type AdGroup struct {
	ID       uint      `json:"ad_group_id,omitempty"`
	Name     string    `json:"ad_group"`
	Keywords []Keyword `json:"keywords"`
}

// Category is a named cluster of ad groups. Categories form the top
// level of the tracked hierarchy.
type Category struct {
	ID       uint      `json:"category_id,omitempty"`
	Name     string    `json:"category"`
	AdGroups []AdGroup `json:"ad_groups"`
}

// KeywordRecord pairs a keyword with its own volume history and the
// histories of its similar keywords. Records are built fresh per
// analysis run by the volume enrichment step and are not persisted.
type KeywordRecord struct {
	Keyword string                   `json:"keyword"`
	History VolumeHistory            `json:"trend_history"`
	Similar map[string]VolumeHistory `json:"similar_keywords,omitempty"`
}
