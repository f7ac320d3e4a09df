package actions

import (
	"context"

	"github.com/tabsentry/engine/internal/driver"
	"github.com/tabsentry/engine/internal/model"
)

// Suspend discards tab unless it is active, pinned, or audible, in which
// case it is silently skipped: a skip is reported as a successful
// non-action, not an error (§4.4 suspend semantics).
func Suspend(ctx context.Context, drv driver.Driver, tab *model.EnrichedTab) model.PerActionResult {
	if tab.Active || tab.Pinned || tab.Audible {
		return model.PerActionResult{
			TabID:   tab.ID,
			Action:  "suspend",
			Success: true,
			Details: map[string]any{"skipped": "active, pinned, or audible tab"},
		}
	}
	if err := drv.DiscardTab(ctx, tab.ID); err != nil {
		return model.PerActionResult{TabID: tab.ID, Action: "suspend", Success: false, Error: err.Error()}
	}
	return model.PerActionResult{TabID: tab.ID, Action: "suspend", Success: true}
}
