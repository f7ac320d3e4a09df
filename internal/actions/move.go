package actions

import (
	"context"

	"github.com/tabsentry/engine/internal/driver"
	"github.com/tabsentry/engine/internal/model"
)

// Move relocates every tab in tabs to windowID and, if preserveGroup,
// rejoins each tab's original group by title in the destination window.
// It is a batch action: one driver call for the move; for the rejoin,
// one destination-group lookup plus one source-group lookup per grouped
// tab.
func Move(ctx context.Context, drv driver.Driver, tabs []*model.EnrichedTab, windowID int64, preserveGroup bool) []model.PerActionResult {
	ids := make([]int64, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
	}
	if err := drv.MoveTabs(ctx, ids, windowID, -1); err != nil {
		results := make([]model.PerActionResult, len(tabs))
		for i, t := range tabs {
			results[i] = model.PerActionResult{TabID: t.ID, Action: "move", Success: false, Error: err.Error()}
		}
		return results
	}

	results := make([]model.PerActionResult, 0, len(tabs))
	if !preserveGroup {
		for _, t := range tabs {
			results = append(results, model.PerActionResult{TabID: t.ID, Action: "move", Success: true})
		}
		return results
	}

	destGroups, err := drv.QueryGroups(ctx, windowID)
	if err != nil {
		for _, t := range tabs {
			results = append(results, model.PerActionResult{TabID: t.ID, Action: "move", Success: true, Details: map[string]any{"groupRejoin": "failed: " + err.Error()}})
		}
		return results
	}

	for _, t := range tabs {
		res := model.PerActionResult{TabID: t.ID, Action: "move", Success: true}
		if t.GroupID != model.UngroupedID {
			if titleFor, ok := titleOfGroup(ctx, drv, t); ok {
				if gid, found := findGroupByTitle(destGroups, titleFor); found {
					_, _ = drv.GroupTabs(ctx, []int64{t.ID}, gid)
				}
			}
		}
		results = append(results, res)
	}
	return results
}

func findGroupByTitle(groups []driver.GroupRecord, title string) (int64, bool) {
	for _, g := range groups {
		if g.Title == title {
			return g.ID, true
		}
	}
	return 0, false
}

// titleOfGroup looks up the title of a tab's original group in its
// source window so Move can find a same-titled group at the destination.
func titleOfGroup(ctx context.Context, drv driver.Driver, t *model.EnrichedTab) (string, bool) {
	groups, err := drv.QueryGroups(ctx, t.WindowID)
	if err != nil {
		return "", false
	}
	for _, g := range groups {
		if g.ID == t.GroupID {
			return g.Title, true
		}
	}
	return "", false
}
