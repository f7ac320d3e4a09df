// Package selector applies a compiled predicate and a rule's execution
// flags to an enriched tab snapshot, producing the matched-tab set the
// action dispatcher consumes (§2 "Selector").
package selector

import (
	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/predicate"
)

// Select returns the tabs in ctx.Tabs for which pred matches, honoring
// flags.SkipPinned (default behavior: pinned tabs are excluded from
// selection regardless of predicate result) and flags.IncludePinned
// (an explicit override that disables the pinned skip).
func Select(pred predicate.Predicate, flags model.Flags, ctx *model.ExecutionContext) []*model.EnrichedTab {
	skipPinned := flags.SkipPinned && !flags.IncludePinned

	matched := make([]*model.EnrichedTab, 0, len(ctx.Tabs))
	for _, tab := range ctx.Tabs {
		if skipPinned && tab.Pinned {
			continue
		}
		if pred(tab, ctx) {
			matched = append(matched, tab)
		}
	}
	return matched
}
