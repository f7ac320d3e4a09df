// Package actions implements the Action Validator and Dispatcher (§4.4):
// conflict detection, priority sorting, and per-action/batch execution
// against the collaborator driver.
package actions

import (
	"sort"

	"github.com/tabsentry/engine/internal/model"
)

// priority is the execution-order sort key (§4.4): mutate metadata
// before moving, move before snoozing, snooze before suspending, remove
// tabs last so earlier actions still see a live tab.
var priority = map[string]int{
	"pin":              1,
	"unpin":            1,
	"mute":             1,
	"unmute":           1,
	"group":            2,
	"bookmark":         2,
	"move":             2,
	"snooze":           3,
	"suspend":          4,
	"discard":          4,
	"close-duplicates": 5,
	"close":            6,
}

// conflictPairs are action pairs the validator flags when both appear in
// the same rule's `then` list.
var conflictPairs = [][2]string{
	{"pin", "unpin"},
	{"mute", "unmute"},
	{"close", "snooze"},
}

func priorityOf(action string) int {
	if p, ok := priority[action]; ok {
		return p
	}
	return len(priority) + 1
}

// SortActions returns a stable copy of actions ordered by execution
// priority. Ties (same priority) preserve document order.
func SortActions(list []model.Action) []model.Action {
	sorted := make([]model.Action, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priorityOf(sorted[i].Action) < priorityOf(sorted[j].Action)
	})
	return sorted
}

// DetectConflicts reports every conflicting pair present in a rule's
// `then` list: the three declared conflict pairs (§4.4), plus `close`
// paired with any action declared after it on the same list (since once
// sorted, close runs last and later actions against the same tab would
// otherwise race against a tab that is already gone). Conflicts are
// advisory: execution still proceeds in sorted order.
func DetectConflicts(ruleID string, list []model.Action) []model.ConflictError {
	var conflicts []model.ConflictError

	present := make(map[string]bool, len(list))
	for _, a := range list {
		present[a.Action] = true
	}
	for _, pair := range conflictPairs {
		if present[pair[0]] && present[pair[1]] {
			conflicts = append(conflicts, model.ConflictError{RuleID: ruleID, First: pair[0], Second: pair[1]})
		}
	}

	closeIdx := -1
	for i, a := range list {
		if a.Action == "close" {
			closeIdx = i
			break
		}
	}
	if closeIdx >= 0 {
		for i := closeIdx + 1; i < len(list); i++ {
			conflicts = append(conflicts, model.ConflictError{RuleID: ruleID, First: "close", Second: list[i].Action})
		}
	}

	return conflicts
}

// knownActions are the actions the dispatcher recognizes (§4.4). An
// action outside this set produces {success:false, error:"Unknown
// action: X"} at dispatch time rather than a validation failure, per §6.
var knownActions = map[string]bool{
	"close": true, "pin": true, "unpin": true, "mute": true, "unmute": true,
	"suspend": true, "discard": true, "snooze": true, "group": true,
	"bookmark": true, "move": true, "close-duplicates": true,
}

// IsKnownAction reports whether action is a recognized action name.
func IsKnownAction(action string) bool {
	return knownActions[action]
}
