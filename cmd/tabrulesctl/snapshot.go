package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tabsentry/engine/internal/driver"
)

// snapshot is the on-disk shape a tabrulesctl invocation loads: a static
// set of tabs and windows to evaluate a rule against, standing in for a
// live browser connection.
type snapshot struct {
	Tabs    []driver.TabRecord    `json:"tabs"`
	Windows []driver.WindowRecord `json:"windows"`
}

func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return &s, nil
}

// snapshotDriver implements driver.Driver over an in-memory snapshot.
// Mutations are applied to the in-memory copy and recorded in Log so
// `tabrulesctl run` can report what a live driver would have done.
type snapshotDriver struct {
	tabs    map[int64]driver.TabRecord
	windows []driver.WindowRecord
	nextID  int64
	Log     []string
}

func newSnapshotDriver(s *snapshot) *snapshotDriver {
	tabs := make(map[int64]driver.TabRecord, len(s.Tabs))
	var maxID int64
	for _, t := range s.Tabs {
		tabs[t.ID] = t
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	return &snapshotDriver{tabs: tabs, windows: s.Windows, nextID: maxID + 1}
}

func (d *snapshotDriver) QueryTabs(_ context.Context, windowID int64) ([]driver.TabRecord, error) {
	out := make([]driver.TabRecord, 0, len(d.tabs))
	for _, t := range d.tabs {
		if windowID == 0 || t.WindowID == windowID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (d *snapshotDriver) QueryWindows(context.Context) ([]driver.WindowRecord, error) {
	return d.windows, nil
}

func (d *snapshotDriver) RemoveTabs(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(d.tabs, id)
		d.Log = append(d.Log, fmt.Sprintf("removeTab %d", id))
	}
	return nil
}

func (d *snapshotDriver) UpdateTab(_ context.Context, id int64, patch driver.TabPatch) error {
	t, ok := d.tabs[id]
	if !ok {
		return fmt.Errorf("tab %d not found", id)
	}
	if patch.Pinned != nil {
		t.Pinned = *patch.Pinned
	}
	if patch.Muted != nil {
		t.Muted = *patch.Muted
	}
	if patch.Active != nil {
		t.Active = *patch.Active
	}
	d.tabs[id] = t
	d.Log = append(d.Log, fmt.Sprintf("updateTab %d %+v", id, patch))
	return nil
}

func (d *snapshotDriver) MoveTabs(_ context.Context, ids []int64, windowID int64, _ int) error {
	for _, id := range ids {
		t, ok := d.tabs[id]
		if !ok {
			continue
		}
		t.WindowID = windowID
		d.tabs[id] = t
	}
	d.Log = append(d.Log, fmt.Sprintf("moveTabs %v -> window %d", ids, windowID))
	return nil
}

func (d *snapshotDriver) DiscardTab(_ context.Context, id int64) error {
	t, ok := d.tabs[id]
	if !ok {
		return fmt.Errorf("tab %d not found", id)
	}
	t.Discarded = true
	d.tabs[id] = t
	d.Log = append(d.Log, fmt.Sprintf("discardTab %d", id))
	return nil
}

func (d *snapshotDriver) CreateTab(_ context.Context, windowID int64, url string) (driver.TabRecord, error) {
	t := driver.TabRecord{ID: d.nextID, WindowID: windowID, URL: url}
	d.tabs[t.ID] = t
	d.nextID++
	d.Log = append(d.Log, fmt.Sprintf("createTab %s in window %d", url, windowID))
	return t, nil
}

func (d *snapshotDriver) GroupTabs(_ context.Context, ids []int64, groupID int64) (int64, error) {
	if groupID == 0 {
		groupID = d.nextID
		d.nextID++
	}
	for _, id := range ids {
		t, ok := d.tabs[id]
		if !ok {
			continue
		}
		t.GroupID = groupID
		d.tabs[id] = t
	}
	d.Log = append(d.Log, fmt.Sprintf("groupTabs %v -> group %d", ids, groupID))
	return groupID, nil
}

func (d *snapshotDriver) UpdateGroup(_ context.Context, groupID int64, patch driver.GroupPatch) error {
	d.Log = append(d.Log, fmt.Sprintf("updateGroup %d %+v", groupID, patch))
	return nil
}

func (d *snapshotDriver) QueryGroups(context.Context, int64) ([]driver.GroupRecord, error) {
	return nil, nil
}

func (d *snapshotDriver) CreateBookmark(_ context.Context, parentID, title, url string) error {
	d.Log = append(d.Log, fmt.Sprintf("createBookmark %q %s (folder %s)", title, url, parentID))
	return nil
}

func (d *snapshotDriver) SearchBookmarks(context.Context, string) ([]driver.BookmarkRecord, error) {
	return nil, nil
}

func (d *snapshotDriver) CreateWindow(_ context.Context, opts driver.WindowCreateOpts) (driver.WindowRecord, error) {
	w := driver.WindowRecord{ID: d.nextID}
	d.nextID++
	d.windows = append(d.windows, w)
	d.Log = append(d.Log, fmt.Sprintf("createWindow %s", opts.URL))
	return w, nil
}
