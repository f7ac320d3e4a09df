package actions

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tabsentry/engine/internal/driver"
	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/store"
)

// WakeRecord is the persisted shape of one snoozed tab (§4.4 snooze
// semantics, §6 store key "snoozedTabs").
type WakeRecord struct {
	ID       string    `json:"id"`
	TabID    int64     `json:"tabId"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	WindowID int64     `json:"windowId"`
	GroupID  int64     `json:"groupId"`
	WakeAt   time.Time `json:"wakeAt"`
	Reason   string    `json:"reason"`
}

// snoozeDurationLiteral matches a duration literal like "30m", "2h", "7d".
var snoozeDurationLiteral = regexp.MustCompile(`^(\d+)([mhd])$`)

func parseSnoozeDuration(s string) (time.Duration, bool) {
	m := snoozeDurationLiteral.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "m":
		return time.Duration(n) * time.Minute, true
	case "h":
		return time.Duration(n) * time.Hour, true
	default:
		return time.Duration(n) * 24 * time.Hour, true
	}
}

// resolveWakeAt computes the absolute wake time from an action's `for`
// (duration literal) or `until` (RFC3339 timestamp) parameter.
func resolveWakeAt(a model.Action, now time.Time) (time.Time, bool) {
	if until := a.String("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if forDur := a.String("for"); forDur != "" {
		d, ok := parseSnoozeDuration(forDur)
		if !ok {
			return time.Time{}, false
		}
		return now.Add(d), true
	}
	return time.Time{}, false
}

// Snooze enqueues a wake record for tab and closes it. It is a per-tab
// action.
func Snooze(ctx context.Context, st store.Store, drv driver.Driver, tab *model.EnrichedTab, a model.Action, now time.Time) model.PerActionResult {
	wakeAt, ok := resolveWakeAt(a, now)
	if !ok {
		return model.PerActionResult{TabID: tab.ID, Action: "snooze", Success: false, Error: "snooze requires a valid 'for' or 'until' parameter"}
	}

	rec := WakeRecord{
		ID:       uuid.New().String(),
		TabID:    tab.ID,
		URL:      tab.URL,
		Title:    tab.Title,
		WindowID: tab.WindowID,
		GroupID:  tab.GroupID,
		WakeAt:   wakeAt,
		Reason:   "snooze",
	}
	if err := enqueueWake(ctx, st, rec); err != nil {
		return model.PerActionResult{TabID: tab.ID, Action: "snooze", Success: false, Error: err.Error()}
	}
	if err := drv.RemoveTabs(ctx, []int64{tab.ID}); err != nil {
		return model.PerActionResult{TabID: tab.ID, Action: "snooze", Success: false, Error: err.Error()}
	}
	return model.PerActionResult{TabID: tab.ID, Action: "snooze", Success: true}
}

func loadWakeRecords(ctx context.Context, st store.Store) ([]WakeRecord, error) {
	v, ok, err := st.Get(ctx, store.KeySnoozedTabs)
	if err != nil {
		return nil, &model.StorageError{Key: store.KeySnoozedTabs, Op: "get", Err: err}
	}
	if !ok || v == nil {
		return nil, nil
	}
	records, ok := v.([]WakeRecord)
	if !ok {
		return nil, fmt.Errorf("snoozedTabs value has unexpected type %T", v)
	}
	return records, nil
}

func saveWakeRecords(ctx context.Context, st store.Store, records []WakeRecord) error {
	if err := st.Set(ctx, store.KeySnoozedTabs, records); err != nil {
		return &model.StorageError{Key: store.KeySnoozedTabs, Op: "set", Err: err}
	}
	return nil
}

func enqueueWake(ctx context.Context, st store.Store, rec WakeRecord) error {
	records, err := loadWakeRecords(ctx, st)
	if err != nil {
		return err
	}
	records = append(records, rec)
	return saveWakeRecords(ctx, st, records)
}

// SweepSnoozed restores every wake record whose WakeAt <= now: it
// recreates the tab in its original window if that window still exists,
// else in a freshly created window, rejoins the original group by id if
// it still exists, and removes the record. Each call performs one sweep;
// no timer or poll in this module calls it, so the host decides when a
// sweep runs.
func SweepSnoozed(ctx context.Context, st store.Store, drv driver.Driver, now time.Time) ([]WakeRecord, error) {
	records, err := loadWakeRecords(ctx, st)
	if err != nil {
		return nil, err
	}

	var due, pending []WakeRecord
	for _, r := range records {
		if !r.WakeAt.After(now) {
			due = append(due, r)
		} else {
			pending = append(pending, r)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}

	windows, err := drv.QueryWindows(ctx)
	if err != nil {
		return nil, err
	}
	alive := make(map[int64]bool, len(windows))
	for _, w := range windows {
		alive[w.ID] = true
	}

	var restored []WakeRecord
	for _, r := range due {
		targetWindow := r.WindowID
		var restoredTabID int64
		if alive[targetWindow] {
			restoredTab, err := drv.CreateTab(ctx, targetWindow, r.URL)
			if err != nil {
				pending = append(pending, r)
				continue
			}
			restoredTabID = restoredTab.ID
		} else {
			// CreateWindow already opens r.URL as the window's first tab
			// (driver.go's CreateTab doc comment); calling CreateTab again
			// here would open a second, duplicate tab.
			created, err := drv.CreateWindow(ctx, driver.WindowCreateOpts{URL: r.URL})
			if err != nil {
				pending = append(pending, r)
				continue
			}
			targetWindow = created.ID
			if len(created.TabIDs) > 0 {
				restoredTabID = created.TabIDs[0]
			}
		}
		rejoinGroup(ctx, drv, restoredTabID, targetWindow, r.GroupID)
		restored = append(restored, r)
	}

	if err := saveWakeRecords(ctx, st, pending); err != nil {
		return restored, err
	}
	return restored, nil
}

// rejoinGroup reattaches a restored tab to its original group, if that
// group still exists in the target window. Failure is non-fatal to the
// restore: the tab still reopens, just ungrouped.
func rejoinGroup(ctx context.Context, drv driver.Driver, tabID, windowID, originalGroupID int64) {
	if originalGroupID == model.UngroupedID {
		return
	}
	groups, err := drv.QueryGroups(ctx, windowID)
	if err != nil {
		return
	}
	for _, g := range groups {
		if g.ID == originalGroupID {
			_, _ = drv.GroupTabs(ctx, []int64{tabID}, originalGroupID)
			return
		}
	}
}
