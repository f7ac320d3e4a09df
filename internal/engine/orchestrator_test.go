package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tabsentry/engine/internal/driver"
	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/store"
)

type fakeDriver struct {
	tabs    []driver.TabRecord
	windows []driver.WindowRecord
	removed []int64
}

func (f *fakeDriver) QueryTabs(context.Context, int64) ([]driver.TabRecord, error) { return f.tabs, nil }
func (f *fakeDriver) QueryWindows(context.Context) ([]driver.WindowRecord, error) {
	return f.windows, nil
}
func (f *fakeDriver) RemoveTabs(_ context.Context, ids []int64) error {
	f.removed = append(f.removed, ids...)
	return nil
}
func (f *fakeDriver) UpdateTab(context.Context, int64, driver.TabPatch) error { return nil }
func (f *fakeDriver) MoveTabs(context.Context, []int64, int64, int) error     { return nil }
func (f *fakeDriver) DiscardTab(context.Context, int64) error                 { return nil }
func (f *fakeDriver) GroupTabs(context.Context, []int64, int64) (int64, error) {
	return 1, nil
}
func (f *fakeDriver) UpdateGroup(context.Context, int64, driver.GroupPatch) error { return nil }
func (f *fakeDriver) QueryGroups(context.Context, int64) ([]driver.GroupRecord, error) {
	return nil, nil
}
func (f *fakeDriver) CreateBookmark(context.Context, string, string, string) error { return nil }
func (f *fakeDriver) SearchBookmarks(context.Context, string) ([]driver.BookmarkRecord, error) {
	return nil, nil
}
func (f *fakeDriver) CreateWindow(context.Context, driver.WindowCreateOpts) (driver.WindowRecord, error) {
	return driver.WindowRecord{}, nil
}
func (f *fakeDriver) CreateTab(context.Context, int64, string) (driver.TabRecord, error) {
	return driver.TabRecord{}, nil
}

func newOrchestrator(drv *fakeDriver) *Orchestrator {
	metrics := NewMetrics(prometheus.NewRegistry())
	return New(nil, drv, store.NewMemory(), nil, metrics, func() time.Time { return time.Unix(1_700_000_000, 0) })
}

func TestRunRule_ScenarioA_DistinctYouTubeVideosNoClose(t *testing.T) {
	drv := &fakeDriver{tabs: []driver.TabRecord{
		{ID: 1, URL: "https://www.youtube.com/watch?v=abc123"},
		{ID: 2, URL: "https://www.youtube.com/watch?v=xyz789"},
	}}
	o := newOrchestrator(drv)
	rule := model.Rule{
		ID: "r1", Enabled: true,
		When: mustCond(t, `{}`),
		Then: []model.Action{{Action: "close-duplicates", Params: map[string]any{"keep": "oldest"}}},
	}
	result := o.RunRule(context.Background(), rule, RunOptions{ForceExecution: true})
	if result.TotalMatches != 2 {
		t.Fatalf("expected 2 matches, got %d", result.TotalMatches)
	}
	if result.TotalActions != 0 {
		t.Fatalf("expected 0 actions (no dupes), got %d", result.TotalActions)
	}
	if len(drv.removed) != 0 {
		t.Fatalf("expected no removeTabs call, got %v", drv.removed)
	}
}

func TestRunRule_DisabledRuleSkippedWithoutForce(t *testing.T) {
	drv := &fakeDriver{tabs: []driver.TabRecord{{ID: 1, URL: "https://a.com"}}}
	o := newOrchestrator(drv)
	rule := model.Rule{ID: "r1", Enabled: false, When: mustCond(t, `{}`), Then: []model.Action{{Action: "close"}}}

	result := o.RunRule(context.Background(), rule, RunOptions{})
	if result.TotalMatches != 0 || result.TotalActions != 0 {
		t.Fatalf("expected disabled rule to be skipped, got %+v", result)
	}
}

func TestRunRule_DisabledRuleRunsWithForceExecution(t *testing.T) {
	drv := &fakeDriver{tabs: []driver.TabRecord{{ID: 1, URL: "https://a.com"}}}
	o := newOrchestrator(drv)
	rule := model.Rule{
		ID: "r1", Enabled: false,
		When: mustCond(t, `{"eq":["tab.domain","a.com"]}`),
		Then: []model.Action{{Action: "close"}},
	}
	result := o.RunRule(context.Background(), rule, RunOptions{ForceExecution: true})
	if result.TotalMatches != 1 {
		t.Fatalf("expected forceExecution to evaluate disabled rule, got %+v", result)
	}
}

func TestRunRule_DryRunIssuesNoDriverMutations(t *testing.T) {
	drv := &fakeDriver{tabs: []driver.TabRecord{{ID: 1, URL: "https://a.com"}}}
	o := newOrchestrator(drv)
	rule := model.Rule{
		ID: "r1", Enabled: true,
		When: mustCond(t, `{"eq":["tab.domain","a.com"]}`),
		Then: []model.Action{{Action: "close"}},
	}

	result := o.RunRule(context.Background(), rule, RunOptions{ForceExecution: true, DryRun: true})
	if len(drv.removed) != 0 {
		t.Fatalf("dry run must not mutate the driver, removed=%v", drv.removed)
	}
	if result.TotalActions != 1 || !result.Actions[0].DryRun {
		t.Fatalf("expected 1 dry-run action result, got %+v", result.Actions)
	}
}

func TestPreviewRule_EvaluatesDisabledRule(t *testing.T) {
	drv := &fakeDriver{tabs: []driver.TabRecord{{ID: 1, URL: "https://a.com"}}}
	o := newOrchestrator(drv)
	rule := model.Rule{ID: "r1", Enabled: false, When: mustCond(t, `{"eq":["tab.domain","a.com"]}`), Then: []model.Action{{Action: "close"}}}

	result := o.PreviewRule(context.Background(), rule)
	if result.TotalMatches != 1 {
		t.Fatalf("expected preview to evaluate regardless of enabled state, got %+v", result)
	}
	if len(drv.removed) != 0 {
		t.Fatalf("preview must not mutate the driver, removed=%v", drv.removed)
	}
}

func TestRunRules_EvaluatesSequentiallyInOrder(t *testing.T) {
	drv := &fakeDriver{tabs: []driver.TabRecord{{ID: 1, URL: "https://a.com"}}}
	o := newOrchestrator(drv)
	rules := []model.Rule{
		{ID: "r1", Enabled: true, When: mustCond(t, `{}`)},
		{ID: "r2", Enabled: true, When: mustCond(t, `{}`)},
	}
	results := o.RunRules(context.Background(), rules, RunOptions{})
	if len(results) != 2 || results[0].RuleID != "r1" || results[1].RuleID != "r2" {
		t.Fatalf("expected results in rule order, got %+v", results)
	}
}
