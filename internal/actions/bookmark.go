package actions

import (
	"context"

	"github.com/tabsentry/engine/internal/driver"
	"github.com/tabsentry/engine/internal/model"
)

// otherFolderID is the conventional parent id for the driver's default
// "Other bookmarks" folder (§4.4 bookmark semantics: folders are
// resolved or created under it).
const otherFolderID = "other"

// Bookmark resolves (creating if absent) a folder named folderName under
// the driver's "Other" folder, then bookmarks tab under it. Per-tab
// action.
func Bookmark(ctx context.Context, drv driver.Driver, tab *model.EnrichedTab, folderName string) model.PerActionResult {
	parentID, err := resolveFolder(ctx, drv, folderName)
	if err != nil {
		return model.PerActionResult{TabID: tab.ID, Action: "bookmark", Success: false, Error: err.Error()}
	}
	if err := drv.CreateBookmark(ctx, parentID, tab.Title, tab.URL); err != nil {
		return model.PerActionResult{TabID: tab.ID, Action: "bookmark", Success: false, Error: err.Error()}
	}
	return model.PerActionResult{TabID: tab.ID, Action: "bookmark", Success: true}
}

func resolveFolder(ctx context.Context, drv driver.Driver, folderName string) (string, error) {
	if folderName == "" {
		return otherFolderID, nil
	}
	results, err := drv.SearchBookmarks(ctx, folderName)
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if r.IsFolder && r.Title == folderName && r.ParentID == otherFolderID {
			return r.ID, nil
		}
	}
	if err := drv.CreateBookmark(ctx, otherFolderID, folderName, ""); err != nil {
		return "", err
	}
	results, err = drv.SearchBookmarks(ctx, folderName)
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if r.IsFolder && r.Title == folderName {
			return r.ID, nil
		}
	}
	return otherFolderID, nil
}
