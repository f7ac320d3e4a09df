package predicate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tabsentry/engine/internal/model"
)

// countPerOriginPrefix is the path prefix for the three countPerOrigin:*
// paths, e.g. "tab.countPerOrigin:domain".
const countPerOriginPrefix = "tab.countPerOrigin:"

// resolvePath resolves a dotted path against an enriched tab and its
// execution context. The second return value is false when the path is
// unknown or its value is unavailable (e.g. no last-accessed time).
func resolvePath(path string, t *model.EnrichedTab, ctx *model.ExecutionContext) (any, bool) {
	if strings.HasPrefix(path, countPerOriginPrefix) {
		return resolveCountPerOrigin(path, t, ctx)
	}

	switch path {
	case "tab.url":
		return t.URL, true
	case "tab.title":
		return t.Title, true
	case "tab.domain":
		return t.Domain, true
	case "tab.pinned", "tab.isPinned":
		return t.Pinned, true
	case "tab.active", "tab.isActive":
		return t.Active, true
	case "tab.audible", "tab.isAudible":
		return t.Audible, true
	case "tab.muted", "tab.isMuted":
		return t.Muted, true
	case "tab.age":
		return float64(t.Age.Milliseconds()), true
	case "tab.last_access":
		if t.LastAccessed.IsZero() {
			return nil, false
		}
		return float64(ctx.Now.Sub(t.LastAccessed).Milliseconds()), true
	case "tab.isDupe":
		return t.IsDupe, true
	case "tab.category":
		return t.Category, true
	case "window.tabCount":
		if ctx == nil {
			return nil, false
		}
		w, ok := ctx.Indices.ByWindow[t.WindowID]
		if !ok {
			return nil, false
		}
		return float64(len(w.TabIDs)), true
	default:
		return nil, false
	}
}

func resolveCountPerOrigin(path string, t *model.EnrichedTab, ctx *model.ExecutionContext) (any, bool) {
	if ctx == nil {
		return nil, false
	}
	dimension := strings.TrimPrefix(path, countPerOriginPrefix)
	var key string
	var index map[string][]*model.EnrichedTab
	switch dimension {
	case "domain":
		key, index = t.Domain, ctx.Indices.ByDomain
	case "origin":
		key, index = t.Origin, ctx.Indices.ByOrigin
	case "dupeKey":
		key, index = t.DupeKey, ctx.Indices.ByDupeKey
	default:
		return nil, false
	}
	return float64(len(index[key])), true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", x)
	}
}

func toStringLower(v any) string {
	return strings.ToLower(toString(v))
}
