package store

import (
	"reflect"
	"testing"

	"github.com/trendlens/trendlens/pkg/models"
)

func TestToModelTree(t *testing.T) {
	rows := []Category{
		{
			ID:   1,
			Name: "Camping",
			AdGroups: []AdGroup{
				{
					ID:   10,
					Name: "Grills",
					Keywords: []Keyword{
						{ID: 100, Keyword: "portable grills"},
						{ID: 101, Keyword: "charcoal grills"},
					},
				},
				{ID: 11, Name: "Tents"},
			},
		},
		{ID: 2, Name: "Fitness"},
	}

	got := toModelTree(rows)
	want := []models.Category{
		{
			ID:   1,
			Name: "Camping",
			AdGroups: []models.AdGroup{
				{
					ID:   10,
					Name: "Grills",
					Keywords: []models.Keyword{
						{Text: "portable grills"},
						{Text: "charcoal grills"},
					},
				},
				{ID: 11, Name: "Tents", Keywords: []models.Keyword{}},
			},
		},
		{ID: 2, Name: "Fitness", AdGroups: []models.AdGroup{}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("toModelTree:\n got %+v\nwant %+v", got, want)
	}
}

func TestToModelTreeEmpty(t *testing.T) {
	if got := toModelTree(nil); len(got) != 0 {
		t.Errorf("toModelTree(nil) = %v, want empty", got)
	}
}

func TestFromModelCategory(t *testing.T) {
	cat := models.Category{
		Name: "Camping",
		AdGroups: []models.AdGroup{
			{
				Name: "Grills",
				Keywords: []models.Keyword{
					{Text: "portable grills"},
					{Text: "bbq grills"},
				},
			},
		},
	}

	row := fromModelCategory(cat)
	if row.Name != "Camping" {
		t.Errorf("name = %q", row.Name)
	}
	if len(row.AdGroups) != 1 || row.AdGroups[0].Name != "Grills" {
		t.Fatalf("ad groups = %+v", row.AdGroups)
	}
	kws := row.AdGroups[0].Keywords
	if len(kws) != 2 || kws[0].Keyword != "portable grills" || kws[1].Keyword != "bbq grills" {
		t.Errorf("keywords = %+v", kws)
	}
	// IDs are assigned by the database, never carried over
	if row.ID != 0 || row.AdGroups[0].ID != 0 {
		t.Errorf("unexpected preset IDs: %+v", row)
	}
}

func TestTreeRoundTrip(t *testing.T) {
	tree := []models.Category{
		{
			Name: "Camping",
			AdGroups: []models.AdGroup{
				{Name: "Grills", Keywords: []models.Keyword{{Text: "portable grills"}}},
			},
		},
	}

	rows := make([]Category, 0, len(tree))
	for _, cat := range tree {
		rows = append(rows, fromModelCategory(cat))
	}
	got := toModelTree(rows)

	if len(got) != 1 || got[0].Name != "Camping" {
		t.Fatalf("round trip = %+v", got)
	}
	if got[0].AdGroups[0].Keywords[0].Text != "portable grills" {
		t.Errorf("round trip keywords = %+v", got[0].AdGroups[0].Keywords)
	}
}
