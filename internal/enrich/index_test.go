package enrich

import (
	"testing"
	"time"

	"github.com/tabsentry/engine/internal/model"
)

func TestBuild_DuplicateFlagFollowsDupeKeyCardinality(t *testing.T) {
	now := time.Now()
	tabs := []model.Tab{
		{ID: 1, URL: "https://ex.com/a"},
		{ID: 2, URL: "https://ex.com/a?utm_source=x"},
		{ID: 3, URL: "https://ex.com/b"},
	}
	enriched, indices := Build(tabs, nil, nil, now)

	for _, et := range enriched {
		want := et.ID == 1 || et.ID == 2
		if et.IsDupe != want {
			t.Errorf("tab %d: IsDupe = %v, want %v", et.ID, et.IsDupe, want)
		}
	}
	if got := len(indices.ByDupeKey); got != 2 {
		t.Fatalf("expected 2 distinct dupe keys, got %d", got)
	}
}

func TestBuild_CategoryFallsBackToParentDomain(t *testing.T) {
	cats := CategoryTable{"github.com": "dev"}
	tabs := []model.Tab{{ID: 1, URL: "https://gist.github.com/x"}}
	enriched, _ := Build(tabs, nil, cats, time.Now())
	if enriched[0].Category != "dev" {
		t.Fatalf("got category %q, want dev", enriched[0].Category)
	}
}

func TestBuild_UnknownCategoryDefault(t *testing.T) {
	tabs := []model.Tab{{ID: 1, URL: "https://nowhere.example/x"}}
	enriched, _ := Build(tabs, nil, nil, time.Now())
	if enriched[0].Category != unknownCategory {
		t.Fatalf("got %q, want %q", enriched[0].Category, unknownCategory)
	}
}

func TestBuild_AgeFromLastAccessedThenCreatedAt(t *testing.T) {
	now := time.Now()
	tabs := []model.Tab{
		{ID: 1, URL: "https://ex.com", LastAccessed: now.Add(-5 * time.Minute)},
		{ID: 2, URL: "https://ex.com", CreatedAt: now.Add(-10 * time.Minute)},
	}
	enriched, _ := Build(tabs, nil, nil, now)
	if enriched[0].Age < 4*time.Minute || enriched[0].Age > 6*time.Minute {
		t.Fatalf("tab 1 age = %v, want ~5m", enriched[0].Age)
	}
	if enriched[1].Age < 9*time.Minute || enriched[1].Age > 11*time.Minute {
		t.Fatalf("tab 2 age = %v, want ~10m", enriched[1].Age)
	}
}

func TestBuild_WindowIndex(t *testing.T) {
	windows := []model.Window{{ID: 7, Focused: true}}
	_, indices := Build(nil, windows, nil, time.Now())
	if indices.ByWindow[7] == nil || !indices.ByWindow[7].Focused {
		t.Fatalf("window index missing or wrong: %+v", indices.ByWindow)
	}
}
