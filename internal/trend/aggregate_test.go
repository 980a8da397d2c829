package trend

import (
	"math"
	"testing"

	"github.com/trendlens/trendlens/pkg/models"
)

// flatRecord builds a record whose prior year is flat at base with the
// anchor's next month scaled so PctChangeNextMonth is exactly pct.
func flatRecord(keyword string, base int, pct float64) models.KeywordRecord {
	year := constantYear(base)
	year[6] = int(float64(base) * (1 + pct/100)) // anchor 5 → next month July
	return models.KeywordRecord{
		Keyword: keyword,
		History: models.VolumeHistory{
			2023: year,
			2024: {base, base},
		},
	}
}

func TestAnalyzeTreeAggregatesAdGroup(t *testing.T) {
	tree := []models.Category{{
		Name: "Outdoor",
		AdGroups: []models.AdGroup{{
			Name: "Grills",
			Keywords: []models.Keyword{
				{Text: "portable grills"},
				{Text: "charcoal grills"},
			},
		}},
	}}
	records := map[string]models.KeywordRecord{
		"portable grills": flatRecord("portable grills", 100, 20),
		"charcoal grills": flatRecord("charcoal grills", 200, 40),
	}

	out := NewAt(5).AnalyzeTree(tree, records)
	if len(out) != 1 || len(out[0].AdGroups) != 1 {
		t.Fatalf("unexpected tree shape: %+v", out)
	}

	ag := out[0].AdGroups[0]
	if ag.Aggregate == nil {
		t.Fatal("ad group aggregate missing")
	}
	if got := ag.Aggregate.PctChangeNextMonth; got != 30.0 {
		t.Errorf("ad group PctChangeNextMonth = %v, want 30.0 (mean of 20, 40)", got)
	}

	// Mean-of-children invariant for average searches.
	wantAvg := int(math.Round(float64(ag.Keywords[0].AvgMonthlySearches+ag.Keywords[1].AvgMonthlySearches) / 2))
	if got := ag.Aggregate.AvgMonthlySearches; got != wantAvg {
		t.Errorf("ad group AvgMonthlySearches = %d, want %d", got, wantAvg)
	}
}

func TestAnalyzeTreeCategoryMeanOfMeans(t *testing.T) {
	// One ad group with two keywords, one with a single keyword. The
	// category average weighs both groups equally regardless of size.
	tree := []models.Category{{
		Name: "Mixed",
		AdGroups: []models.AdGroup{
			{
				Name: "Big",
				Keywords: []models.Keyword{
					{Text: "a"}, {Text: "b"},
				},
			},
			{
				Name:     "Small",
				Keywords: []models.Keyword{{Text: "c"}},
			},
		},
	}}
	records := map[string]models.KeywordRecord{
		"a": flatRecord("a", 100, 10),
		"b": flatRecord("b", 100, 30), // Big group mean: 20
		"c": flatRecord("c", 100, 60), // Small group mean: 60
	}

	out := NewAt(5).AnalyzeTree(tree, records)
	cat := out[0]
	if cat.Aggregate == nil {
		t.Fatal("category aggregate missing")
	}
	if got := cat.Aggregate.PctChangeNextMonth; got != 40.0 {
		t.Errorf("category PctChangeNextMonth = %v, want 40.0 (mean of group means 20, 60)", got)
	}
}

func TestAnalyzeTreeEmptyNodes(t *testing.T) {
	tree := []models.Category{
		{Name: "Empty category"},
		{
			Name:     "Category with empty group",
			AdGroups: []models.AdGroup{{Name: "No keywords"}},
		},
	}

	out := NewAt(5).AnalyzeTree(tree, nil)
	if len(out) != 2 {
		t.Fatalf("got %d categories, want 2 (empty nodes stay in the tree)", len(out))
	}
	if out[0].Aggregate != nil {
		t.Error("empty category should have no aggregate")
	}
	if out[1].AdGroups[0].Aggregate != nil {
		t.Error("empty ad group should have no aggregate")
	}
	if out[1].Aggregate != nil {
		t.Error("category of empty groups should have no aggregate")
	}
}

func TestAnalyzeTreeMissingRecordDegradesToZero(t *testing.T) {
	tree := []models.Category{{
		Name: "Cat",
		AdGroups: []models.AdGroup{{
			Name:     "Group",
			Keywords: []models.Keyword{{Text: "unfetched"}},
		}},
	}}

	out := NewAt(5).AnalyzeTree(tree, map[string]models.KeywordRecord{})
	kw := out[0].AdGroups[0].Keywords[0]
	if kw.Keyword != "unfetched" {
		t.Fatalf("keyword = %q, want unfetched", kw.Keyword)
	}
	if kw.PctChangeNextMonth != 0 || kw.AvgMonthlySearches != 0 || kw.SeasonalVolatility != 0 {
		t.Errorf("missing record produced non-zero metrics: %+v", kw.ForecastMetrics)
	}
}

func TestAnalyzeTreeDoesNotMutateInput(t *testing.T) {
	tree := []models.Category{{
		Name: "Cat",
		AdGroups: []models.AdGroup{{
			Name:     "Group",
			Keywords: []models.Keyword{{Text: "kw"}},
		}},
	}}
	records := map[string]models.KeywordRecord{"kw": flatRecord("kw", 100, 50)}

	_ = NewAt(5).AnalyzeTree(tree, records)

	if tree[0].Name != "Cat" || len(tree[0].AdGroups[0].Keywords) != 1 {
		t.Error("input tree was mutated")
	}
	if records["kw"].History[2023][6] != 150 {
		t.Error("input records were mutated")
	}
}
