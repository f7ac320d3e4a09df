// Package scheduler implements the Trigger scheduler (§4.5): debounced
// immediate triggers, interval repeat triggers (duration literal or cron
// expression), and persisted one-shot triggers, dispatched by a single
// cooperative clock-driven loop.
package scheduler

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/store"
)

// defaultDebounce is the immediate-trigger coalescing window when a rule
// does not override it (§4.5).
const defaultDebounce = 2 * time.Second

// tickResolution is how often the dispatch loop drains pending fires and
// sorts them into deterministic (ruleId lexicographic) order when more
// than one trigger becomes due in the same window (§4.5 concurrency
// model). It trades a small amount of firing latency for determinism
// when triggers land close together; it does not affect the precision
// of a single rule's debounce window, which is driven by its own timer.
const tickResolution = 10 * time.Millisecond

// RunFunc is invoked once per fired trigger. The scheduler does not await
// its result; it only tracks whether a run for ruleID is in flight.
type RunFunc func(ctx context.Context, ruleID string, kind model.TriggerKind)

type pendingFire struct {
	ruleID string
	kind   model.TriggerKind
}

// Scheduler owns every rule's timers. It is the single writer of the
// timer table (§5); all methods are safe for concurrent use.
type Scheduler struct {
	logger *zap.Logger
	store  store.Store
	clock  func() time.Time
	run    RunFunc

	mu             sync.Mutex
	debounceTimers map[string]*time.Timer
	repeatTimers   map[string]*time.Timer
	onceTimers     map[string]*time.Timer
	running        map[string]bool
	pending        []pendingFire

	stopCh  chan struct{}
	started bool
}

// New constructs a Scheduler. run is called (on its own goroutine, not
// awaited) whenever a trigger fires. A nil logger defaults to a no-op
// logger; a nil clock defaults to time.Now.
func New(logger *zap.Logger, st store.Store, run RunFunc, clock func() time.Time) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		logger:         logger,
		store:          st,
		clock:          clock,
		run:            run,
		debounceTimers: make(map[string]*time.Timer),
		repeatTimers:   make(map[string]*time.Timer),
		onceTimers:     make(map[string]*time.Timer),
		running:        make(map[string]bool),
		stopCh:         make(chan struct{}),
	}
}

// Start begins the dispatch loop that drains pending fires in
// deterministic order. It must be called once before any trigger can
// actually invoke run.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.dispatchLoop()
}

func (s *Scheduler) dispatchLoop() {
	ticker := time.NewTicker(tickResolution)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.drainPending()
		}
	}
}

func (s *Scheduler) drainPending() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].ruleID < batch[j].ruleID })
	for _, p := range batch {
		s.fire(p.ruleID, p.kind)
	}
}

// enqueue marks a trigger as due; it is picked up by the next drain tick
// rather than invoked immediately, so that triggers for several rules
// landing within the same tick fire in ruleId order.
func (s *Scheduler) enqueue(ruleID string, kind model.TriggerKind) {
	s.mu.Lock()
	s.pending = append(s.pending, pendingFire{ruleID: ruleID, kind: kind})
	s.mu.Unlock()
}

func (s *Scheduler) fire(ruleID string, kind model.TriggerKind) {
	s.mu.Lock()
	if s.running[ruleID] {
		s.mu.Unlock()
		s.logger.Debug("trigger coalesced into in-progress run", zap.String("ruleId", ruleID))
		return
	}
	s.running[ruleID] = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.running, ruleID)
			s.mu.Unlock()
		}()
		if s.run != nil {
			s.run(context.Background(), ruleID, kind)
		}
	}()
}

// ScheduleImmediate coalesces calls within the debounce window: each call
// resets the rule's debounce timer. debounceMs of 0 uses the default.
func (s *Scheduler) ScheduleImmediate(ruleID string, debounceMs int64) {
	d := defaultDebounce
	if debounceMs > 0 {
		d = time.Duration(debounceMs) * time.Millisecond
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.debounceTimers[ruleID]; ok {
		t.Stop()
	}
	s.debounceTimers[ruleID] = time.AfterFunc(d, func() {
		s.enqueue(ruleID, model.TriggerImmediate)
	})
}

// InstallRepeat installs a repeat trigger. interval is a duration literal
// ("30m", "1h", "2d") or a standard five-field cron expression. It fires
// immediately on install and every interval thereafter (§4.5).
func (s *Scheduler) InstallRepeat(ruleID string, interval string) error {
	next, err := nextRepeatFire(interval, s.clock())
	if err != nil {
		return &model.ValidationError{RuleID: ruleID, Reason: "invalid repeat interval: " + err.Error()}
	}

	s.cancelRepeat(ruleID)
	s.enqueue(ruleID, model.TriggerRepeat)
	s.scheduleNextRepeat(ruleID, interval, next)
	return nil
}

func (s *Scheduler) scheduleNextRepeat(ruleID, interval string, at time.Time) {
	delay := at.Sub(s.clock())
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	s.repeatTimers[ruleID] = time.AfterFunc(delay, func() {
		s.enqueue(ruleID, model.TriggerRepeat)
		next, err := nextRepeatFire(interval, s.clock())
		if err != nil {
			s.logger.Warn("repeat trigger interval became invalid; not rescheduling", zap.String("ruleId", ruleID), zap.Error(err))
			return
		}
		s.scheduleNextRepeat(ruleID, interval, next)
	})
	s.mu.Unlock()
}

// nextRepeatFire resolves the next fire time for a duration-literal or
// cron-expression repeat interval.
func nextRepeatFire(interval string, from time.Time) (time.Time, error) {
	if d, ok := parseDurationLiteral(interval); ok {
		return from.Add(d), nil
	}
	schedule, err := cron.ParseStandard(interval)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from), nil
}

func parseDurationLiteral(s string) (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}
	unit := s[len(s)-1]
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// InstallOnce installs a one-shot trigger at the given absolute time and
// persists it. If at is already due, it is scheduled for the next
// dispatch tick instead of firing synchronously.
func (s *Scheduler) InstallOnce(ctx context.Context, ruleID string, at time.Time) error {
	if err := upsertPersistedTrigger(ctx, s.store, PersistedTrigger{RuleID: ruleID, Time: at, Type: "once"}); err != nil {
		s.logger.Warn("failed to persist once trigger; falling back to in-memory only", zap.String("ruleId", ruleID), zap.Error(err))
	}
	s.scheduleOnceTimer(ruleID, at)
	return nil
}

func (s *Scheduler) scheduleOnceTimer(ruleID string, at time.Time) {
	delay := at.Sub(s.clock())
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	s.onceTimers[ruleID] = time.AfterFunc(delay, func() {
		s.enqueue(ruleID, model.TriggerOnce)
		if err := removePersistedTrigger(context.Background(), s.store, ruleID); err != nil {
			s.logger.Warn("failed to remove fired once trigger from storage", zap.String("ruleId", ruleID), zap.Error(err))
		}
	})
	s.mu.Unlock()
}

// Init loads persisted once-triggers (§4.5 persistence): due ones are
// scheduled to fire on the next tick and removed once fired; future ones
// get a timer for their remaining delay. Tolerates restart with no
// triggers lost and none double-fired.
func (s *Scheduler) Init(ctx context.Context) error {
	triggers, err := loadPersistedTriggers(ctx, s.store)
	if err != nil {
		return err
	}
	now := s.clock()
	for _, t := range triggers {
		if !t.Time.After(now) {
			s.enqueue(t.RuleID, model.TriggerOnce)
			if err := removePersistedTrigger(ctx, s.store, t.RuleID); err != nil {
				s.logger.Warn("failed to remove due once trigger at init", zap.String("ruleId", t.RuleID), zap.Error(err))
			}
			continue
		}
		s.scheduleOnceTimer(t.RuleID, t.Time)
	}
	return nil
}

// InstallRule cancels all existing timers for rule.ID and reinstalls them
// from rule.Trigger (§3 Lifecycle: every rule mutation re-derives timers
// from the current trigger).
func (s *Scheduler) InstallRule(ctx context.Context, rule model.Rule) error {
	s.RemoveRule(ctx, rule.ID)

	switch rule.Trigger.Kind {
	case model.TriggerImmediate:
		// Immediate triggers install no timer up front; ScheduleImmediate
		// is called per external event by the host.
		return nil
	case model.TriggerRepeat:
		return s.InstallRepeat(rule.ID, rule.Trigger.RepeatEvery)
	case model.TriggerOnce:
		return s.InstallOnce(ctx, rule.ID, rule.Trigger.OnceAt)
	case model.TriggerOnAction:
		return nil
	default:
		return &model.ValidationError{RuleID: rule.ID, Reason: "unknown trigger kind"}
	}
}

func (s *Scheduler) cancelRepeat(ruleID string) {
	s.mu.Lock()
	if t, ok := s.repeatTimers[ruleID]; ok {
		t.Stop()
		delete(s.repeatTimers, ruleID)
	}
	s.mu.Unlock()
}

// RemoveRule cancels every timer kind for ruleID and purges any pending
// persisted once-trigger. Idempotent.
func (s *Scheduler) RemoveRule(ctx context.Context, ruleID string) {
	s.mu.Lock()
	if t, ok := s.debounceTimers[ruleID]; ok {
		t.Stop()
		delete(s.debounceTimers, ruleID)
	}
	if t, ok := s.repeatTimers[ruleID]; ok {
		t.Stop()
		delete(s.repeatTimers, ruleID)
	}
	if t, ok := s.onceTimers[ruleID]; ok {
		t.Stop()
		delete(s.onceTimers, ruleID)
	}
	s.mu.Unlock()

	if err := removePersistedTrigger(ctx, s.store, ruleID); err != nil {
		s.logger.Warn("failed to purge persisted once trigger on rule removal", zap.String("ruleId", ruleID), zap.Error(err))
	}
}

// StopAll cancels every timer for every rule and stops the dispatch loop.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for _, t := range s.debounceTimers {
		t.Stop()
	}
	for _, t := range s.repeatTimers {
		t.Stop()
	}
	for _, t := range s.onceTimers {
		t.Stop()
	}
	s.debounceTimers = make(map[string]*time.Timer)
	s.repeatTimers = make(map[string]*time.Timer)
	s.onceTimers = make(map[string]*time.Timer)
	started := s.started
	s.started = false
	s.mu.Unlock()

	if started {
		close(s.stopCh)
	}
}
