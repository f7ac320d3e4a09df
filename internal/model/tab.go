// Package model holds the data types the rules engine reads and produces:
// tabs, windows, rules, and the results of a rule run. Nothing in this
// package performs I/O; it is the shared vocabulary between the selection
// engine, the action dispatcher, and the scheduler.
package model

import "time"

// Tab is the input projection read from the browser driver. Field names
// mirror the driver's tab record; the engine never mutates a Tab directly.
type Tab struct {
	ID            int64     `json:"id"`
	WindowID      int64     `json:"windowId"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Pinned        bool      `json:"pinned"`
	Active        bool      `json:"active"`
	Audible       bool      `json:"audible"`
	Muted         bool      `json:"muted"`
	Discarded     bool      `json:"discarded"`
	GroupID       int64     `json:"groupId"`
	Index         int       `json:"index"`
	LastAccessed  time.Time `json:"lastAccessed,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

// UngroupedID is the sentinel GroupID meaning "not a member of any tab group".
const UngroupedID int64 = -1

// EnrichedTab is the engine-owned projection computed once per rule run.
// It is never persisted and never shared between concurrent runs.
type EnrichedTab struct {
	Tab
	Domain   string
	Origin   string
	DupeKey  string
	Category string
	Age      time.Duration
	IsDupe   bool
}

// Window groups tabs. The engine only tracks ids; there are no owning
// pointers between Window, Tab and Group.
type Window struct {
	ID        int64
	Focused   bool
	Incognito bool
	TabIDs    []int64
}

// Indices are derived multi-maps built fresh for every rule evaluation.
type Indices struct {
	ByDomain   map[string][]*EnrichedTab
	ByOrigin   map[string][]*EnrichedTab
	ByDupeKey  map[string][]*EnrichedTab
	ByCategory map[string][]*EnrichedTab
	ByWindow   map[int64]*Window
}

// ExecutionContext is passed to a predicate evaluator and to the action
// dispatcher for a single rule run.
type ExecutionContext struct {
	Tabs           []*EnrichedTab
	Windows        map[int64]*Window
	Indices        Indices
	Now            time.Time
	DryRun         bool
	CallerWindowID int64
}

// PerActionResult is the outcome of one action against one tab (or, for a
// batch action, one synthesized record for the batch as a whole).
type PerActionResult struct {
	TabID   int64          `json:"tabId,omitempty"`
	Action  string         `json:"action"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	DryRun  bool           `json:"dryRun,omitempty"`
}

// RunError is one entry in a RuleRunResult's error list.
type RunError struct {
	TabID   int64  `json:"tabId,omitempty"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

// RuleRunResult is returned by every rule run, successful or not: no
// exception escapes a run, everything becomes data here.
type RuleRunResult struct {
	RuleID       string            `json:"ruleId"`
	Matches      []int64           `json:"matches"`
	Actions      []PerActionResult `json:"actions"`
	TotalMatches int               `json:"totalMatches"`
	TotalActions int               `json:"totalActions"`
	Errors       []RunError        `json:"errors"`
	DurationMs   int64             `json:"durationMs"`
}

// AddError appends an error entry to the result.
func (r *RuleRunResult) AddError(tabID int64, action, message string) {
	r.Errors = append(r.Errors, RunError{TabID: tabID, Action: action, Message: message})
}
