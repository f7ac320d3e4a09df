// Package enrich builds the per-run EnrichedTab projection and the
// derived indices (by domain, origin, dupeKey, category) that the
// predicate compiler and action dispatcher read (§4.2).
package enrich

import (
	"strings"
	"time"

	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/normalize"
)

const unknownCategory = "unknown"

// CategoryTable maps a domain to a category tag. It is optional and
// collaborator-provided; a nil table means every tab is "unknown".
type CategoryTable map[string]string

// Lookup resolves a domain to a category, falling back to the parent
// domain once (a.b.c -> b.c) before giving up to "unknown".
func (t CategoryTable) Lookup(domain string) string {
	if t == nil {
		return unknownCategory
	}
	if cat, ok := t[domain]; ok {
		return cat
	}
	if parts := strings.SplitN(domain, ".", 2); len(parts) == 2 {
		if cat, ok := t[parts[1]]; ok {
			return cat
		}
	}
	return unknownCategory
}

// Build enriches every tab and constructs the four multi-maps plus the
// window index. It performs no I/O and is pure given (tabs, windows, now).
func Build(tabs []model.Tab, windows []model.Window, categories CategoryTable, now time.Time) ([]*model.EnrichedTab, model.Indices) {
	enriched := make([]*model.EnrichedTab, 0, len(tabs))
	byDupeKeyRaw := make(map[string][]*model.EnrichedTab, len(tabs))

	for _, tab := range tabs {
		domain := normalize.Domain(tab.URL)
		dupeKey := normalize.Normalize(tab.URL)

		anchor := tab.LastAccessed
		if anchor.IsZero() {
			anchor = tab.CreatedAt
		}
		var age time.Duration
		if !anchor.IsZero() && now.After(anchor) {
			age = now.Sub(anchor)
		}

		et := &model.EnrichedTab{
			Tab:      tab,
			Domain:   domain,
			Origin:   "",
			DupeKey:  dupeKey,
			Category: categories.Lookup(domain),
			Age:      age,
		}
		enriched = append(enriched, et)
		byDupeKeyRaw[dupeKey] = append(byDupeKeyRaw[dupeKey], et)
	}

	indices := model.Indices{
		ByDomain:   make(map[string][]*model.EnrichedTab),
		ByOrigin:   make(map[string][]*model.EnrichedTab),
		ByDupeKey:  make(map[string][]*model.EnrichedTab),
		ByCategory: make(map[string][]*model.EnrichedTab),
		ByWindow:   make(map[int64]*model.Window),
	}

	for key, group := range byDupeKeyRaw {
		isDupe := len(group) > 1
		for _, et := range group {
			et.IsDupe = isDupe
		}
		indices.ByDupeKey[key] = group
	}

	for _, et := range enriched {
		indices.ByDomain[et.Domain] = append(indices.ByDomain[et.Domain], et)
		if et.Origin != "" {
			indices.ByOrigin[et.Origin] = append(indices.ByOrigin[et.Origin], et)
		}
		indices.ByCategory[et.Category] = append(indices.ByCategory[et.Category], et)
	}

	for i := range windows {
		w := windows[i]
		indices.ByWindow[w.ID] = &w
	}

	return enriched, indices
}
