// Package predicate compiles a Condition tree into an evaluator closure
// (§4.3). Compilation is deterministic and referentially transparent: a
// second Compile call on an identical tree yields a predicate with
// identical behavior and identical cost class.
package predicate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tabsentry/engine/internal/model"
)

// EvalTimeout caps the wall-clock budget for evaluating one predicate
// against one tab. Go's regexp package is RE2-based and has no
// catastrophic-backtracking failure mode, so this is a guardrail against
// pathological input sizes rather than a defense against regex engines
// that can hang; exceeding it fails the comparison closed (false) and is
// logged each time a comparison against a tab exceeds it.
const EvalTimeout = 50 * time.Millisecond

// Predicate evaluates one enriched tab against a compiled condition tree.
type Predicate func(tab *model.EnrichedTab, ctx *model.ExecutionContext) bool

// Compile translates a Condition tree into a Predicate. Invalid regex
// patterns compile to an always-false predicate for that subtree and are
// logged as a warning; they do not prevent the rest of the tree (or other
// rules) from compiling.
func Compile(cond model.Condition, logger *zap.Logger) Predicate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return compileNode(cond, logger)
}

func compileNode(cond model.Condition, logger *zap.Logger) Predicate {
	switch cond.Kind {
	case model.KindEmpty:
		// §4.3 empty condition policy: an explicit {all:[]} matches no
		// tab. This is a documented divergence from vacuous truth, chosen
		// for safety — an explicit empty conjunction never acts. A bare
		// {} (no condition) is KindAll with no children below instead,
		// and matches every tab per §8 scenarios A-C.
		return func(*model.EnrichedTab, *model.ExecutionContext) bool { return false }

	case model.KindAll:
		// No children (a bare {} condition) is vacuously true: the loop
		// below never runs, so every tab matches.
		children := compileAll(cond.Children, logger)
		return func(t *model.EnrichedTab, ctx *model.ExecutionContext) bool {
			for _, p := range children {
				if !p(t, ctx) {
					return false
				}
			}
			return true
		}

	case model.KindAny:
		children := compileAll(cond.Children, logger)
		return func(t *model.EnrichedTab, ctx *model.ExecutionContext) bool {
			for _, p := range children {
				if p(t, ctx) {
					return true
				}
			}
			return false
		}

	case model.KindNone:
		children := compileAll(cond.Children, logger)
		return func(t *model.EnrichedTab, ctx *model.ExecutionContext) bool {
			for _, p := range children {
				if p(t, ctx) {
					return false
				}
			}
			return true
		}

	case model.KindNot:
		if cond.Child == nil {
			return func(*model.EnrichedTab, *model.ExecutionContext) bool { return false }
		}
		child := compileNode(*cond.Child, logger)
		return func(t *model.EnrichedTab, ctx *model.ExecutionContext) bool {
			return !child(t, ctx)
		}

	case model.KindCompare:
		return compileCompare(cond, logger)

	default:
		logger.Warn("condition node has unrecognized kind; compiling to always-false", zap.String("kind", string(cond.Kind)))
		return func(*model.EnrichedTab, *model.ExecutionContext) bool { return false }
	}
}

func compileAll(children []model.Condition, logger *zap.Logger) []Predicate {
	out := make([]Predicate, len(children))
	for i, c := range children {
		out[i] = compileNode(c, logger)
	}
	return out
}

func compileCompare(cond model.Condition, logger *zap.Logger) Predicate {
	op := cond.Op
	path := cond.Path
	value := cond.Value

	var re *regexp.Regexp
	if op == "regex" || op == "not_regex" {
		pattern, ok := value.(string)
		if !ok {
			logger.Warn("regex comparison value is not a string; compiling to always-false", zap.String("path", path))
			return func(*model.EnrichedTab, *model.ExecutionContext) bool { return false }
		}
		pattern = strings.TrimPrefix(pattern, "/")
		pattern = strings.TrimSuffix(pattern, "/")
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warn("invalid regex in rule condition; compiling to always-false",
				zap.String("path", path), zap.String("pattern", pattern), zap.Error(err))
			return func(*model.EnrichedTab, *model.ExecutionContext) bool { return false }
		}
		re = compiled
	}

	return func(t *model.EnrichedTab, ctx *model.ExecutionContext) bool {
		start := time.Now()
		result := evalCompare(op, path, value, re, t, ctx)
		if elapsed := time.Since(start); elapsed > EvalTimeout {
			logger.Warn("predicate evaluation exceeded guardrail timeout",
				zap.String("path", path), zap.Duration("elapsed", elapsed))
			return false
		}
		return result
	}
}

func evalCompare(op, path string, value any, re *regexp.Regexp, t *model.EnrichedTab, ctx *model.ExecutionContext) bool {
	actual, found := resolvePath(path, t, ctx)
	if !found {
		// Missing paths fail the comparison except neq/not_contains,
		// which succeed (absence is "not equal"/"does not contain").
		return op == "neq" || op == "not_contains"
	}

	coercedValue := coerceValue(path, value)

	switch op {
	case "eq":
		return compareEqual(actual, coercedValue)
	case "neq":
		return !compareEqual(actual, coercedValue)
	case "is":
		return compareEqual(actual, coercedValue)
	case "gt", "gte", "lt", "lte":
		af, aok := toFloat(actual)
		bf, bok := toFloat(coercedValue)
		if !aok || !bok {
			return false
		}
		switch op {
		case "gt":
			return af > bf
		case "gte":
			return af >= bf
		case "lt":
			return af < bf
		default:
			return af <= bf
		}
	case "contains":
		return strings.Contains(toStringLower(actual), toStringLower(coercedValue))
	case "not_contains":
		return !strings.Contains(toStringLower(actual), toStringLower(coercedValue))
	case "starts_with":
		return strings.HasPrefix(toStringLower(actual), toStringLower(coercedValue))
	case "ends_with":
		return strings.HasSuffix(toStringLower(actual), toStringLower(coercedValue))
	case "regex":
		if re == nil {
			return false
		}
		return re.MatchString(toString(actual))
	case "not_regex":
		if re == nil {
			return false
		}
		return !re.MatchString(toString(actual))
	case "in":
		return membership(actual, coercedValue)
	case "not_in":
		return !membership(actual, coercedValue)
	default:
		return false
	}
}

// durationLiteral matches a duration literal like "30m", "2h", "7d".
var durationLiteral = regexp.MustCompile(`^(\d+)([mhd])$`)

// coerceValue converts a duration literal to milliseconds when the
// comparison path is tab.age or tab.last_access. Every other value passes
// through unchanged (including plain strings compared as strings).
func coerceValue(path string, value any) any {
	if path != "tab.age" && path != "tab.last_access" {
		return value
	}
	s, ok := value.(string)
	if !ok {
		return value
	}
	m := durationLiteral.FindStringSubmatch(s)
	if m == nil {
		return value
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return value
	}
	var unit time.Duration
	switch m[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	return float64(time.Duration(n) * unit / time.Millisecond)
}

func membership(actual, list any) bool {
	items, ok := list.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if compareEqual(actual, item) {
			return true
		}
	}
	return false
}

func compareEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
	}
	return toString(a) == toString(b)
}
