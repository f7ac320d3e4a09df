// Package driver declares the browser-side collaborator interfaces the
// engine depends on: the tab/window driver and its event source (§6).
// The persistent key-value store interface lives in package store. No
// production driver is implemented here — per spec.md §1 the browser is
// an out of scope collaborator; this package exists so the rest of the
// engine can depend on an interface rather than a concrete browser
// binding.
package driver

import "context"

// Driver is the browser-side collaborator: queries and mutates tabs,
// windows, groups, and bookmarks. All calls may suspend (§5); callers
// must pass a context for cancellation.
type Driver interface {
	QueryTabs(ctx context.Context, windowID int64) ([]TabRecord, error)
	QueryWindows(ctx context.Context) ([]WindowRecord, error)

	RemoveTabs(ctx context.Context, ids []int64) error
	UpdateTab(ctx context.Context, id int64, patch TabPatch) error
	MoveTabs(ctx context.Context, ids []int64, windowID int64, index int) error
	DiscardTab(ctx context.Context, id int64) error
	// CreateTab opens a URL in an existing window. §6 lists CreateWindow
	// (which opens a tab as a side effect of creating its window) but has
	// no call for opening a tab into an *existing* window; the snooze
	// restore path (§4.4) needs exactly that when the original window is
	// still alive, so this driver adds it.
	CreateTab(ctx context.Context, windowID int64, url string) (TabRecord, error)

	GroupTabs(ctx context.Context, tabIDs []int64, groupID int64) (int64, error)
	UpdateGroup(ctx context.Context, groupID int64, patch GroupPatch) error
	QueryGroups(ctx context.Context, windowID int64) ([]GroupRecord, error)

	CreateBookmark(ctx context.Context, parentID, title, url string) error
	SearchBookmarks(ctx context.Context, query string) ([]BookmarkRecord, error)

	CreateWindow(ctx context.Context, opts WindowCreateOpts) (WindowRecord, error)
}

// TabRecord is the wire shape a Driver returns for one tab; the engine
// converts it to model.Tab at the orchestrator boundary.
type TabRecord struct {
	ID           int64
	WindowID     int64
	URL          string
	Title        string
	Pinned       bool
	Active       bool
	Audible      bool
	Muted        bool
	Discarded    bool
	GroupID      int64
	Index        int
	LastAccessed int64 // unix millis, 0 if unknown
}

// WindowRecord is the wire shape a Driver returns for one window.
type WindowRecord struct {
	ID        int64
	Focused   bool
	Incognito bool
	TabIDs    []int64
}

// GroupRecord describes an existing tab group.
type GroupRecord struct {
	ID        int64
	WindowID  int64
	Title     string
	Color     string
	Collapsed bool
}

// BookmarkRecord describes a bookmark or folder returned by a search.
type BookmarkRecord struct {
	ID       string
	ParentID string
	Title    string
	URL      string
	IsFolder bool
}

// TabPatch carries optional field updates for UpdateTab; nil pointers
// mean "leave unchanged".
type TabPatch struct {
	Pinned *bool
	Muted  *bool
	Active *bool
}

// GroupPatch carries optional field updates for UpdateGroup.
type GroupPatch struct {
	Title     *string
	Color     *string
	Collapsed *bool
}

// WindowCreateOpts parametrizes CreateWindow.
type WindowCreateOpts struct {
	URL     string
	Focused bool
	State   string
}

// EventKind discriminates a tab lifecycle event from the driver's event
// subscription (§6).
type EventKind string

const (
	EventTabCreated   EventKind = "created"
	EventTabUpdated   EventKind = "updated"
	EventTabActivated EventKind = "activated"
	EventTabRemoved   EventKind = "removed"
)

// Event is one tab lifecycle notification.
type Event struct {
	Kind  EventKind
	TabID int64
}

// EventSource is the subscription side of the browser driver: tab
// lifecycle events and the periodic alarm tick the scheduler uses for
// the snooze sweep (§6).
type EventSource interface {
	Subscribe() (events <-chan Event, unsubscribe func())
	SubscribeAlarm(interval int64) (ticks <-chan struct{}, unsubscribe func())
}
