// Package engine wires the Index Builder, Predicate Compiler, Selector,
// and Action Dispatcher into the Orchestrator (§2, §6 Orchestrator API):
// RunRule, RunRules, PreviewRule.
package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/tabsentry/engine/internal/actions"
	"github.com/tabsentry/engine/internal/driver"
	"github.com/tabsentry/engine/internal/enrich"
	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/predicate"
	"github.com/tabsentry/engine/internal/selector"
	"github.com/tabsentry/engine/internal/store"
)

// RunOptions parametrizes one orchestrator invocation (§6).
type RunOptions struct {
	TriggerType    model.TriggerKind
	ForceExecution bool
	DryRun         bool
}

// Orchestrator is the engine's single entry point: it loads a fresh tab
// snapshot, enriches it, compiles and applies the rule's condition, and
// dispatches its actions, returning a RuleRunResult that never panics or
// propagates an error to the caller (§7: surface, do not retry).
type Orchestrator struct {
	logger     *zap.Logger
	driver     driver.Driver
	store      store.Store
	categories enrich.CategoryTable
	clock      func() time.Time
	metrics    *Metrics
	dispatcher *actions.Dispatcher
}

// New constructs an Orchestrator. A nil logger defaults to a no-op
// logger; a nil clock defaults to time.Now; a nil metrics disables
// metric recording (useful for tests that don't want a registry).
func New(logger *zap.Logger, drv driver.Driver, st store.Store, categories enrich.CategoryTable, metrics *Metrics, clock func() time.Time) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{
		logger:     logger,
		driver:     drv,
		store:      st,
		categories: categories,
		clock:      clock,
		metrics:    metrics,
		dispatcher: actions.NewDispatcher(drv, st, logger),
	}
}

// RunRule loads a fresh snapshot, evaluates rule against it, and
// dispatches its actions. A disabled rule is skipped (zero matches, zero
// actions, no errors) unless opts.ForceExecution is set (§3 invariant 4).
func (o *Orchestrator) RunRule(ctx context.Context, rule model.Rule, opts RunOptions) model.RuleRunResult {
	start := o.clock()
	ctx, span := startRunSpan(ctx, rule.ID, string(opts.TriggerType), opts.DryRun)
	defer span.End()

	result := model.RuleRunResult{RuleID: rule.ID}

	if !rule.Enabled && !opts.ForceExecution {
		result.DurationMs = o.clock().Sub(start).Milliseconds()
		o.metrics.observe(rule.ID, "skipped", time.Since(start).Seconds(), 0)
		return result
	}

	execCtx, err := o.buildContext(ctx, opts.DryRun)
	if err != nil {
		result.AddError(0, "snapshot", err.Error())
		result.DurationMs = o.clock().Sub(start).Milliseconds()
		span.SetStatus(codes.Error, err.Error())
		o.metrics.observe(rule.ID, "error", time.Since(start).Seconds(), 0)
		return result
	}

	pred := predicate.Compile(rule.When, o.logger)
	matched := selector.Select(pred, rule.Flags, execCtx)

	for _, c := range actions.DetectConflicts(rule.ID, rule.Then) {
		o.logger.Warn("rule has conflicting actions", zap.String("ruleId", rule.ID), zap.String("first", c.First), zap.String("second", c.Second))
	}

	_, dispatchSpan := startChildSpan(ctx, "engine.dispatch")
	perActions := o.dispatcher.Dispatch(ctx, rule, matched, opts.DryRun || rule.Flags.Test, o.clock())
	dispatchSpan.End()

	result.Actions = perActions
	result.TotalActions = len(perActions)
	for _, t := range matched {
		result.Matches = append(result.Matches, t.ID)
	}
	result.TotalMatches = len(result.Matches)
	for _, a := range perActions {
		if !a.Success {
			result.AddError(a.TabID, a.Action, a.Error)
		}
	}

	result.DurationMs = o.clock().Sub(start).Milliseconds()
	status := "ok"
	if len(result.Errors) > 0 {
		status = "error"
	}
	o.metrics.observe(rule.ID, status, time.Since(start).Seconds(), result.TotalMatches)
	return result
}

// RunRules evaluates rules sequentially in the supplied order (§5: no
// parallelism across rules in the same batch).
func (o *Orchestrator) RunRules(ctx context.Context, rules []model.Rule, opts RunOptions) []model.RuleRunResult {
	results := make([]model.RuleRunResult, len(rules))
	for i, rule := range rules {
		results[i] = o.RunRule(ctx, rule, opts)
	}
	return results
}

// PreviewRule evaluates rule against a fresh snapshot in dry-run mode and
// returns the matches and the actions that would have executed, issuing
// zero driver mutations.
func (o *Orchestrator) PreviewRule(ctx context.Context, rule model.Rule) model.RuleRunResult {
	return o.RunRule(ctx, rule, RunOptions{TriggerType: model.TriggerOnAction, ForceExecution: true, DryRun: true})
}

func (o *Orchestrator) buildContext(ctx context.Context, dryRun bool) (*model.ExecutionContext, error) {
	tabRecords, err := o.driver.QueryTabs(ctx, 0)
	if err != nil {
		return nil, &model.DriverError{Op: "queryTabs", Err: err}
	}
	windowRecords, err := o.driver.QueryWindows(ctx)
	if err != nil {
		return nil, &model.DriverError{Op: "queryWindows", Err: err}
	}

	tabs := make([]model.Tab, len(tabRecords))
	for i, r := range tabRecords {
		tabs[i] = tabFromRecord(r)
	}
	windows := make([]model.Window, len(windowRecords))
	for i, r := range windowRecords {
		windows[i] = model.Window{ID: r.ID, Focused: r.Focused, Incognito: r.Incognito, TabIDs: r.TabIDs}
	}

	now := o.clock()
	enrichedTabs, indices := enrich.Build(tabs, windows, o.categories, now)

	windowIndex := make(map[int64]*model.Window, len(windows))
	for k, v := range indices.ByWindow {
		windowIndex[k] = v
	}

	return &model.ExecutionContext{
		Tabs:    enrichedTabs,
		Windows: windowIndex,
		Indices: indices,
		Now:     now,
		DryRun:  dryRun,
	}, nil
}

func tabFromRecord(r driver.TabRecord) model.Tab {
	t := model.Tab{
		ID: r.ID, WindowID: r.WindowID, URL: r.URL, Title: r.Title,
		Pinned: r.Pinned, Active: r.Active, Audible: r.Audible, Muted: r.Muted,
		Discarded: r.Discarded, GroupID: r.GroupID, Index: r.Index,
	}
	if r.LastAccessed > 0 {
		t.LastAccessed = time.UnixMilli(r.LastAccessed)
	}
	return t
}
