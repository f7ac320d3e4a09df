package actions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tabsentry/engine/internal/driver"
	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/store"
)

// Dispatcher executes a rule's (validated, sorted) action list against a
// matched tab set (§4.4). Its dependencies are the collaborator driver
// and KV store, both reached only through their interfaces.
type Dispatcher struct {
	Driver driver.Driver
	Store  store.Store
	Logger *zap.Logger
}

// NewDispatcher constructs a Dispatcher; a nil logger defaults to a no-op
// logger, matching the rest of this module's constructors.
func NewDispatcher(drv driver.Driver, st store.Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{Driver: drv, Store: st, Logger: logger}
}

// Dispatch runs every action in SortActions(rule.Then) order against
// matched. dryRun short-circuits every recognized action into a
// {success:true, dryRun:true, details:{preview:true}} record with no
// driver calls (§8 invariant 3: dry-run issues zero mutations); an
// unknown action still yields a success:false record.
func (d *Dispatcher) Dispatch(ctx context.Context, rule model.Rule, matched []*model.EnrichedTab, dryRun bool, now time.Time) []model.PerActionResult {
	sorted := SortActions(rule.Then)

	var results []model.PerActionResult
	for _, action := range sorted {
		if dryRun {
			results = append(results, previewResults(action, matched)...)
			continue
		}
		if !IsKnownAction(action.Action) {
			results = append(results, model.PerActionResult{
				Action:  action.Action,
				Success: false,
				Error:   fmt.Sprintf("Unknown action: %s", action.Action),
			})
			continue
		}
		results = append(results, d.execute(ctx, action, matched, now)...)
	}
	return results
}

func previewResults(action model.Action, matched []*model.EnrichedTab) []model.PerActionResult {
	if !IsKnownAction(action.Action) {
		return []model.PerActionResult{{
			Action:  action.Action,
			Success: false,
			Error:   fmt.Sprintf("Unknown action: %s", action.Action),
			DryRun:  true,
		}}
	}
	if isBatchAction(action.Action) {
		return []model.PerActionResult{{
			Action: action.Action, Success: true, DryRun: true,
			Details: map[string]any{"preview": true, "matchCount": len(matched)},
		}}
	}
	results := make([]model.PerActionResult, len(matched))
	for i, t := range matched {
		results[i] = model.PerActionResult{
			TabID: t.ID, Action: action.Action, Success: true, DryRun: true,
			Details: map[string]any{"preview": true},
		}
	}
	return results
}

func isBatchAction(action string) bool {
	return action == "group" || action == "close-duplicates"
}

func (d *Dispatcher) execute(ctx context.Context, action model.Action, matched []*model.EnrichedTab, now time.Time) []model.PerActionResult {
	switch action.Action {
	case "close":
		return d.closeTabs(ctx, matched)
	case "pin":
		return d.perTab(ctx, "pin", matched, func(id int64) error {
			v := true
			return d.Driver.UpdateTab(ctx, id, driver.TabPatch{Pinned: &v})
		})
	case "unpin":
		return d.perTab(ctx, "unpin", matched, func(id int64) error {
			v := false
			return d.Driver.UpdateTab(ctx, id, driver.TabPatch{Pinned: &v})
		})
	case "mute":
		return d.perTab(ctx, "mute", matched, func(id int64) error {
			v := true
			return d.Driver.UpdateTab(ctx, id, driver.TabPatch{Muted: &v})
		})
	case "unmute":
		return d.perTab(ctx, "unmute", matched, func(id int64) error {
			v := false
			return d.Driver.UpdateTab(ctx, id, driver.TabPatch{Muted: &v})
		})
	case "suspend", "discard":
		results := make([]model.PerActionResult, len(matched))
		for i, t := range matched {
			results[i] = Suspend(ctx, d.Driver, t)
		}
		return results
	case "snooze":
		results := make([]model.PerActionResult, len(matched))
		for i, t := range matched {
			results[i] = Snooze(ctx, d.Store, d.Driver, t, action, now)
		}
		return results
	case "bookmark":
		folder := action.String("folder")
		results := make([]model.PerActionResult, len(matched))
		for i, t := range matched {
			results[i] = Bookmark(ctx, d.Driver, t, folder)
		}
		return results
	case "move":
		windowID := int64(0)
		if v, ok := action.Params["windowId"].(float64); ok {
			windowID = int64(v)
		}
		return Move(ctx, d.Driver, matched, windowID, action.Bool("preserveGroup", false))
	case "group":
		return groupByDomain(ctx, d.Driver, matched, action.Bool("createIfMissing", true))
	case "close-duplicates":
		return d.closeDuplicates(ctx, matched, action.String("keep"))
	default:
		return []model.PerActionResult{{Action: action.Action, Success: false, Error: fmt.Sprintf("Unknown action: %s", action.Action)}}
	}
}

func (d *Dispatcher) perTab(ctx context.Context, name string, matched []*model.EnrichedTab, call func(id int64) error) []model.PerActionResult {
	results := make([]model.PerActionResult, len(matched))
	for i, t := range matched {
		if err := call(t.ID); err != nil {
			results[i] = model.PerActionResult{TabID: t.ID, Action: name, Success: false, Error: err.Error()}
			continue
		}
		results[i] = model.PerActionResult{TabID: t.ID, Action: name, Success: true}
	}
	return results
}

func (d *Dispatcher) closeTabs(ctx context.Context, matched []*model.EnrichedTab) []model.PerActionResult {
	ids := make([]int64, len(matched))
	for i, t := range matched {
		ids[i] = t.ID
	}
	results := make([]model.PerActionResult, len(matched))
	err := d.Driver.RemoveTabs(ctx, ids)
	for i, t := range matched {
		if err != nil {
			results[i] = model.PerActionResult{TabID: t.ID, Action: "close", Success: false, Error: err.Error()}
			continue
		}
		results[i] = model.PerActionResult{TabID: t.ID, Action: "close", Success: true}
	}
	return results
}

func (d *Dispatcher) closeDuplicates(ctx context.Context, matched []*model.EnrichedTab, keep string) []model.PerActionResult {
	if keep == "" {
		keep = "oldest"
	}
	kept := keepers(matched, keep)

	var toClose []*model.EnrichedTab
	for _, t := range matched {
		if !kept[t.ID] {
			toClose = append(toClose, t)
		}
	}
	if len(toClose) == 0 {
		return nil
	}
	return d.closeNamed(ctx, "close-duplicates", toClose)
}

func (d *Dispatcher) closeNamed(ctx context.Context, action string, tabs []*model.EnrichedTab) []model.PerActionResult {
	ids := make([]int64, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
	}
	results := make([]model.PerActionResult, len(tabs))
	err := d.Driver.RemoveTabs(ctx, ids)
	for i, t := range tabs {
		if err != nil {
			results[i] = model.PerActionResult{TabID: t.ID, Action: action, Success: false, Error: err.Error()}
			continue
		}
		results[i] = model.PerActionResult{TabID: t.ID, Action: action, Success: true}
	}
	return results
}
