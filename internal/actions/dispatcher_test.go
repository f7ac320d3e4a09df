package actions

import (
	"context"
	"testing"
	"time"

	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/store"
)

func TestDispatch_ScenarioA_DistinctYouTubeVideosNotClosed(t *testing.T) {
	drv := newFakeDriver()
	disp := NewDispatcher(drv, store.NewMemory(), nil)
	matched := []*model.EnrichedTab{
		{Tab: model.Tab{ID: 1}, DupeKey: "youtube.com/watch?v=abc123"},
		{Tab: model.Tab{ID: 2}, DupeKey: "youtube.com/watch?v=xyz789"},
	}
	rule := model.Rule{ID: "r1", Then: []model.Action{{Action: "close-duplicates", Params: map[string]any{"keep": "oldest"}}}}

	results := disp.Dispatch(context.Background(), rule, matched, false, time.Now())
	if len(results) != 0 {
		t.Fatalf("expected zero actions for distinct dupe keys, got %+v", results)
	}
	if len(drv.removed) != 0 {
		t.Fatalf("expected no driver removeTabs call, got %v", drv.removed)
	}
}

func TestDispatch_ScenarioB_TrackingParamDuplicatesCollapse(t *testing.T) {
	drv := newFakeDriver()
	disp := NewDispatcher(drv, store.NewMemory(), nil)
	now := time.Now()
	matched := []*model.EnrichedTab{
		{Tab: model.Tab{ID: 1, CreatedAt: now.Add(-3 * time.Hour)}, DupeKey: "ex.com/a"},
		{Tab: model.Tab{ID: 2, CreatedAt: now.Add(-2 * time.Hour)}, DupeKey: "ex.com/a"},
		{Tab: model.Tab{ID: 3, CreatedAt: now.Add(-1 * time.Hour)}, DupeKey: "ex.com/a"},
	}
	rule := model.Rule{ID: "r1", Then: []model.Action{{Action: "close-duplicates", Params: map[string]any{"keep": "oldest"}}}}

	disp.Dispatch(context.Background(), rule, matched, false, now)
	if len(drv.removed) != 2 {
		t.Fatalf("expected 2 tabs removed, got %v", drv.removed)
	}
	for _, id := range drv.removed {
		if id == 1 {
			t.Fatalf("tab 1 (oldest) should have been retained, removed=%v", drv.removed)
		}
	}
}

func TestDispatch_DryRunIssuesNoDriverCalls(t *testing.T) {
	drv := newFakeDriver()
	disp := NewDispatcher(drv, store.NewMemory(), nil)
	matched := []*model.EnrichedTab{{Tab: model.Tab{ID: 1}}}
	rule := model.Rule{ID: "r1", Then: []model.Action{{Action: "close"}, {Action: "pin"}}}

	results := disp.Dispatch(context.Background(), rule, matched, true, time.Now())
	if len(drv.removed) != 0 || len(drv.pinned) != 0 {
		t.Fatalf("dry run must not call the driver: removed=%v pinned=%v", drv.removed, drv.pinned)
	}
	for _, r := range results {
		if !r.DryRun || !r.Success {
			t.Fatalf("expected dryRun=true success=true, got %+v", r)
		}
	}
}

func TestDispatch_UnknownActionReportsErrorWithoutAbortingRule(t *testing.T) {
	drv := newFakeDriver()
	disp := NewDispatcher(drv, store.NewMemory(), nil)
	matched := []*model.EnrichedTab{{Tab: model.Tab{ID: 1}}}
	rule := model.Rule{ID: "r1", Then: []model.Action{{Action: "teleport"}, {Action: "pin"}}}

	results := disp.Dispatch(context.Background(), rule, matched, false, time.Now())
	var sawUnknown, sawPin bool
	for _, r := range results {
		if r.Action == "teleport" && !r.Success {
			sawUnknown = true
		}
		if r.Action == "pin" && r.Success {
			sawPin = true
		}
	}
	if !sawUnknown || !sawPin {
		t.Fatalf("expected unknown-action error and sibling pin to still run, got %+v", results)
	}
}

func TestDispatch_PinRunsBeforeCloseRegardlessOfDocumentOrder(t *testing.T) {
	drv := newFakeDriver()
	disp := NewDispatcher(drv, store.NewMemory(), nil)
	matched := []*model.EnrichedTab{{Tab: model.Tab{ID: 1}}}
	// pin sorts before close regardless of document order (priority 1 vs 6).
	rule := model.Rule{ID: "r1", Then: []model.Action{{Action: "close"}, {Action: "pin"}}}

	results := disp.Dispatch(context.Background(), rule, matched, false, time.Now())
	if len(drv.removed) != 1 {
		t.Fatalf("expected tab closed, removed=%v", drv.removed)
	}
	if !drv.pinned[1] {
		t.Fatalf("expected pin to have executed before close per priority order")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
}

func TestDispatch_SuspendSkipsActiveTab(t *testing.T) {
	drv := newFakeDriver()
	disp := NewDispatcher(drv, store.NewMemory(), nil)
	matched := []*model.EnrichedTab{{Tab: model.Tab{ID: 1, Active: true}}}
	rule := model.Rule{ID: "r1", Then: []model.Action{{Action: "suspend"}}}

	disp.Dispatch(context.Background(), rule, matched, false, time.Now())
	if len(drv.discarded) != 0 {
		t.Fatalf("expected active tab to be skipped, discarded=%v", drv.discarded)
	}
}

func TestDispatch_GroupCreatesGroupByDomain(t *testing.T) {
	drv := newFakeDriver()
	disp := NewDispatcher(drv, store.NewMemory(), nil)
	matched := []*model.EnrichedTab{
		{Tab: model.Tab{ID: 1, WindowID: 1}, Domain: "a.com"},
		{Tab: model.Tab{ID: 2, WindowID: 1}, Domain: "a.com"},
	}
	rule := model.Rule{ID: "r1", Then: []model.Action{{Action: "group", Params: map[string]any{"createIfMissing": true}}}}

	results := disp.Dispatch(context.Background(), rule, matched, false, time.Now())
	for _, r := range results {
		if !r.Success {
			t.Fatalf("expected group action to succeed, got %+v", r)
		}
	}
}
