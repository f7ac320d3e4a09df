package actions

import (
	"context"
	"hash/fnv"

	"github.com/tabsentry/engine/internal/driver"
	"github.com/tabsentry/engine/internal/model"
)

// groupPalette is the small, fixed set of colors a group title hashes
// into deterministically (§4.4 group semantics).
var groupPalette = []string{"grey", "blue", "red", "yellow", "green", "pink", "purple", "cyan", "orange"}

// colorFor deterministically maps a group title to a palette color.
func colorFor(title string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(title))
	return groupPalette[h.Sum32()%uint32(len(groupPalette))]
}

// groupByDomain partitions tabs into per-domain sets and, for each
// partition, reuses an existing same-window group titled after the
// domain or creates one (when createIfMissing). It is a batch action:
// one GroupTabs call per (window, domain) partition, not one per tab.
func groupByDomain(ctx context.Context, drv driver.Driver, tabs []*model.EnrichedTab, createIfMissing bool) []model.PerActionResult {
	type partitionKey struct {
		windowID int64
		domain   string
	}
	partitions := make(map[partitionKey][]*model.EnrichedTab)
	for _, t := range tabs {
		k := partitionKey{windowID: t.WindowID, domain: t.Domain}
		partitions[k] = append(partitions[k], t)
	}

	var results []model.PerActionResult
	for key, group := range partitions {
		ids := make([]int64, len(group))
		for i, t := range group {
			ids[i] = t.ID
		}

		existing, err := drv.QueryGroups(ctx, key.windowID)
		if err != nil {
			results = append(results, failAll(group, "group", err))
			continue
		}

		var groupID int64 = model.UngroupedID
		for _, g := range existing {
			if g.Title == key.domain {
				groupID = g.ID
				break
			}
		}
		if groupID == model.UngroupedID && !createIfMissing {
			for _, t := range group {
				results = append(results, model.PerActionResult{TabID: t.ID, Action: "group", Success: true, Details: map[string]any{"skipped": "no matching group and createIfMissing=false"}})
			}
			continue
		}

		newID, err := drv.GroupTabs(ctx, ids, groupID)
		if err != nil {
			results = append(results, failAll(group, "group", err))
			continue
		}
		if groupID == model.UngroupedID {
			title := key.domain
			color := colorFor(title)
			if err := drv.UpdateGroup(ctx, newID, driver.GroupPatch{Title: &title, Color: &color}); err != nil {
				results = append(results, failAll(group, "group", err))
				continue
			}
		}
		for _, t := range group {
			results = append(results, model.PerActionResult{TabID: t.ID, Action: "group", Success: true})
		}
	}
	return results
}

func failAll(tabs []*model.EnrichedTab, action string, err error) model.PerActionResult {
	// Represents a batch-level failure as a single synthesized record with
	// no TabID; the affected ids are listed in Details["tabIds"], and
	// RuleRunResult.errors receives one entry for the whole record.
	ids := make([]int64, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
	}
	return model.PerActionResult{Action: action, Success: false, Error: err.Error(), Details: map[string]any{"tabIds": ids}}
}
