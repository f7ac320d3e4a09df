package driver

import (
	"context"
	"fmt"
)

// NoopDriver is a placeholder Driver for hosts that have not yet wired a
// real browser bridge (native messaging, a websocket bridge analogous to
// the teacher's controlplane/websocket.Hub, or similar). It answers every
// query with an empty result and every mutation with an error, so a
// misconfigured daemon fails loudly at the first rule run rather than
// silently doing nothing.
type NoopDriver struct{}

func (NoopDriver) QueryTabs(context.Context, int64) ([]TabRecord, error)    { return nil, nil }
func (NoopDriver) QueryWindows(context.Context) ([]WindowRecord, error)     { return nil, nil }
func (NoopDriver) RemoveTabs(context.Context, []int64) error               { return errNoDriver("removeTabs") }
func (NoopDriver) UpdateTab(context.Context, int64, TabPatch) error        { return errNoDriver("updateTab") }
func (NoopDriver) MoveTabs(context.Context, []int64, int64, int) error     { return errNoDriver("moveTabs") }
func (NoopDriver) DiscardTab(context.Context, int64) error                 { return errNoDriver("discardTab") }
func (NoopDriver) CreateTab(context.Context, int64, string) (TabRecord, error) {
	return TabRecord{}, errNoDriver("createTab")
}
func (NoopDriver) GroupTabs(context.Context, []int64, int64) (int64, error) {
	return 0, errNoDriver("groupTabs")
}
func (NoopDriver) UpdateGroup(context.Context, int64, GroupPatch) error { return errNoDriver("updateGroup") }
func (NoopDriver) QueryGroups(context.Context, int64) ([]GroupRecord, error) {
	return nil, nil
}
func (NoopDriver) CreateBookmark(context.Context, string, string, string) error {
	return errNoDriver("createBookmark")
}
func (NoopDriver) SearchBookmarks(context.Context, string) ([]BookmarkRecord, error) {
	return nil, nil
}
func (NoopDriver) CreateWindow(context.Context, WindowCreateOpts) (WindowRecord, error) {
	return WindowRecord{}, errNoDriver("createWindow")
}

func errNoDriver(op string) error {
	return fmt.Errorf("no browser driver configured: %s", op)
}
