package actions

import (
	"time"

	"github.com/tabsentry/engine/internal/model"
)

// keepers groups matched tabs by DupeKey and, for every group of size
// >= 2, selects which tabs survive under the given `keep` strategy
// (§4.4 close-duplicates semantics). Groups of size 1 always survive.
func keepers(tabs []*model.EnrichedTab, keep string) map[int64]bool {
	groups := make(map[string][]*model.EnrichedTab, len(tabs))
	for _, t := range tabs {
		groups[t.DupeKey] = append(groups[t.DupeKey], t)
	}

	kept := make(map[int64]bool, len(tabs))
	for _, group := range groups {
		if len(group) < 2 {
			for _, t := range group {
				kept[t.ID] = true
			}
			continue
		}
		switch keep {
		case "all":
			for _, t := range group {
				kept[t.ID] = true
			}
		case "none":
			// no keepers; every member closes
		case "newest":
			kept[extreme(group, false, false).ID] = true
		case "mru":
			kept[extreme(group, true, false).ID] = true
		case "lru":
			kept[extreme(group, true, true).ID] = true
		default: // "oldest", the documented default
			kept[extreme(group, false, true).ID] = true
		}
	}
	return kept
}

// anchor returns the timestamp a keeper strategy ranks by: lastAccessed
// when preferLastAccessed is set and present, else createdAt.
func anchor(t *model.EnrichedTab, preferLastAccessed bool) time.Time {
	if preferLastAccessed && !t.LastAccessed.IsZero() {
		return t.LastAccessed
	}
	return t.CreatedAt
}

// extreme picks the min (wantMin) or max member of group by (anchor, id),
// id breaking ties deterministically.
func extreme(group []*model.EnrichedTab, preferLastAccessed, wantMin bool) *model.EnrichedTab {
	best := group[0]
	bestTime := anchor(best, preferLastAccessed)
	for _, t := range group[1:] {
		tt := anchor(t, preferLastAccessed)
		var better bool
		if wantMin {
			better = tt.Before(bestTime) || (tt.Equal(bestTime) && t.ID < best.ID)
		} else {
			better = tt.After(bestTime) || (tt.Equal(bestTime) && t.ID > best.ID)
		}
		if better {
			best, bestTime = t, tt
		}
	}
	return best
}
