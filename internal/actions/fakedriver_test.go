package actions

import (
	"context"
	"fmt"

	"github.com/tabsentry/engine/internal/driver"
)

// fakeDriver is a minimal in-memory driver.Driver for dispatcher tests.
type fakeDriver struct {
	removed     []int64
	pinned      map[int64]bool
	muted       map[int64]bool
	discarded   []int64
	groups      map[int64][]driver.GroupRecord // windowID -> groups
	nextGroupID int64
	bookmarks   []driver.BookmarkRecord
	windows     []driver.WindowRecord
	createdTabs []driver.TabRecord
	moved       [][]int64

	failRemove bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		pinned: map[int64]bool{},
		muted:  map[int64]bool{},
		groups: map[int64][]driver.GroupRecord{},
	}
}

func (f *fakeDriver) QueryTabs(context.Context, int64) ([]driver.TabRecord, error) { return nil, nil }
func (f *fakeDriver) QueryWindows(context.Context) ([]driver.WindowRecord, error)  { return f.windows, nil }

func (f *fakeDriver) RemoveTabs(_ context.Context, ids []int64) error {
	if f.failRemove {
		return fmt.Errorf("remove failed")
	}
	f.removed = append(f.removed, ids...)
	return nil
}

func (f *fakeDriver) UpdateTab(_ context.Context, id int64, patch driver.TabPatch) error {
	if patch.Pinned != nil {
		f.pinned[id] = *patch.Pinned
	}
	if patch.Muted != nil {
		f.muted[id] = *patch.Muted
	}
	return nil
}

func (f *fakeDriver) MoveTabs(_ context.Context, ids []int64, _ int64, _ int) error {
	f.moved = append(f.moved, ids)
	return nil
}

func (f *fakeDriver) DiscardTab(_ context.Context, id int64) error {
	f.discarded = append(f.discarded, id)
	return nil
}

func (f *fakeDriver) GroupTabs(_ context.Context, _ []int64, groupID int64) (int64, error) {
	if groupID != 0 && groupID != -1 {
		return groupID, nil
	}
	f.nextGroupID++
	return f.nextGroupID, nil
}

func (f *fakeDriver) UpdateGroup(_ context.Context, groupID int64, patch driver.GroupPatch) error {
	title := ""
	if patch.Title != nil {
		title = *patch.Title
	}
	color := ""
	if patch.Color != nil {
		color = *patch.Color
	}
	f.groups[0] = append(f.groups[0], driver.GroupRecord{ID: groupID, Title: title, Color: color})
	return nil
}

func (f *fakeDriver) QueryGroups(_ context.Context, windowID int64) ([]driver.GroupRecord, error) {
	return f.groups[windowID], nil
}

func (f *fakeDriver) CreateBookmark(_ context.Context, parentID, title, url string) error {
	f.bookmarks = append(f.bookmarks, driver.BookmarkRecord{ID: fmt.Sprintf("bm-%d", len(f.bookmarks)), ParentID: parentID, Title: title, URL: url, IsFolder: url == ""})
	return nil
}

func (f *fakeDriver) SearchBookmarks(_ context.Context, query string) ([]driver.BookmarkRecord, error) {
	var out []driver.BookmarkRecord
	for _, b := range f.bookmarks {
		if b.Title == query {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeDriver) CreateWindow(_ context.Context, opts driver.WindowCreateOpts) (driver.WindowRecord, error) {
	w := driver.WindowRecord{ID: int64(len(f.windows) + 1)}
	if opts.URL != "" {
		tab := driver.TabRecord{ID: int64(1000 + len(f.createdTabs)), WindowID: w.ID, URL: opts.URL}
		f.createdTabs = append(f.createdTabs, tab)
		w.TabIDs = []int64{tab.ID}
	}
	f.windows = append(f.windows, w)
	return w, nil
}

func (f *fakeDriver) CreateTab(_ context.Context, windowID int64, url string) (driver.TabRecord, error) {
	t := driver.TabRecord{ID: int64(1000 + len(f.createdTabs)), WindowID: windowID, URL: url}
	f.createdTabs = append(f.createdTabs, t)
	return t, nil
}
