package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConditionKind discriminates the normalized shape of a Condition node.
// The rule document accepts three surface syntaxes (junction, comparison,
// UI form) that all normalize to this one tagged variant; see
// Condition.UnmarshalJSON.
type ConditionKind string

const (
	KindAll     ConditionKind = "all"
	KindAny     ConditionKind = "any"
	KindNone    ConditionKind = "none"
	KindNot     ConditionKind = "not"
	KindCompare ConditionKind = "compare"
	// KindEmpty marks an explicit {all:[]} condition, which the compiler
	// turns into a predicate that matches no tab (§4.3 empty condition
	// policy: safety over vacuous truth for an explicit empty conjunction).
	// A bare {} (no condition at all) is not this — see the len(raw)==0
	// branch of UnmarshalJSON, which normalizes it to KindAll with no
	// children instead.
	KindEmpty ConditionKind = "empty"
)

// Condition is the normalized condition-tree node. Exactly the fields
// relevant to Kind are populated; a visitor (the predicate compiler)
// switches exhaustively on Kind rather than re-deriving shape from raw
// JSON at evaluation time.
type Condition struct {
	Kind     ConditionKind
	Children []Condition // KindAll, KindAny, KindNone
	Child    *Condition  // KindNot
	Op       string      // KindCompare: normalized operator name
	Path     string      // KindCompare: dotted path, e.g. "tab.age"
	Value    any         // KindCompare: comparison operand
}

// operatorSynonyms translates the UI form's operator vocabulary into the
// canonical comparison operator names used by the predicate compiler.
// Translation is lossless: every synonym maps to exactly one canonical op.
var operatorSynonyms = map[string]string{
	"equals":           "eq",
	"equal":            "eq",
	"not_equals":       "neq",
	"not_equal":        "neq",
	"greater_than":     "gt",
	"greater_or_equal": "gte",
	"less_than":        "lt",
	"less_or_equal":    "lte",
	"matches":          "regex",
	"not_matches":      "not_regex",
	"is":               "is",
}

var canonicalOps = map[string]struct{}{
	"eq": {}, "neq": {}, "gt": {}, "gte": {}, "lt": {}, "lte": {},
	"contains": {}, "not_contains": {}, "starts_with": {}, "ends_with": {},
	"regex": {}, "not_regex": {}, "in": {}, "not_in": {}, "is": {},
}

// NormalizeOperator resolves a UI-form or already-canonical operator name
// to its canonical comparison op. The second return value is false for an
// operator neither canonical nor a known synonym.
func NormalizeOperator(op string) (string, bool) {
	if _, ok := canonicalOps[op]; ok {
		return op, true
	}
	if canon, ok := operatorSynonyms[op]; ok {
		return canon, true
	}
	return "", false
}

// UnmarshalJSON accepts all three condition surface syntaxes described in
// §4.3 and normalizes them into the tagged-variant shape above.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("condition must be a JSON object: %w", err)
	}

	if len(raw) == 0 {
		// No condition specified at all (§8 scenarios A-C): matches every
		// tab (vacuous truth). Distinct from an explicit empty conjunction
		// below, which is the safety "match nothing" case instead.
		*c = Condition{Kind: KindAll}
		return nil
	}

	if rawChildren, ok := raw["all"]; ok {
		children, err := unmarshalConditionList(rawChildren)
		if err != nil {
			return fmt.Errorf("all: %w", err)
		}
		if len(children) == 0 {
			*c = Condition{Kind: KindEmpty}
			return nil
		}
		*c = Condition{Kind: KindAll, Children: children}
		return nil
	}
	if rawChildren, ok := raw["any"]; ok {
		children, err := unmarshalConditionList(rawChildren)
		if err != nil {
			return fmt.Errorf("any: %w", err)
		}
		*c = Condition{Kind: KindAny, Children: children}
		return nil
	}
	if rawChildren, ok := raw["none"]; ok {
		children, err := unmarshalConditionList(rawChildren)
		if err != nil {
			return fmt.Errorf("none: %w", err)
		}
		*c = Condition{Kind: KindNone, Children: children}
		return nil
	}
	if rawChild, ok := raw["not"]; ok {
		var child Condition
		if err := json.Unmarshal(rawChild, &child); err != nil {
			return fmt.Errorf("not: %w", err)
		}
		*c = Condition{Kind: KindNot, Child: &child}
		return nil
	}

	// UI form: {subject, operator, value}.
	if rawSubject, ok := raw["subject"]; ok {
		var subject, operator string
		if err := json.Unmarshal(rawSubject, &subject); err != nil {
			return fmt.Errorf("subject: %w", err)
		}
		if rawOp, ok := raw["operator"]; ok {
			if err := json.Unmarshal(rawOp, &operator); err != nil {
				return fmt.Errorf("operator: %w", err)
			}
		}
		canon, ok := NormalizeOperator(operator)
		if !ok {
			return fmt.Errorf("unknown operator %q", operator)
		}
		var value any
		if rawValue, ok := raw["value"]; ok {
			if err := json.Unmarshal(rawValue, &value); err != nil {
				return fmt.Errorf("value: %w", err)
			}
		}
		*c = Condition{Kind: KindCompare, Op: canon, Path: subject, Value: value}
		return nil
	}

	// Comparison form: {op: [path, value]}. Exactly one key is expected;
	// the first recognized operator key wins if there is more than one.
	for key, rawTuple := range raw {
		canon, ok := NormalizeOperator(key)
		if !ok {
			continue
		}
		var tuple [2]json.RawMessage
		var arr []json.RawMessage
		if err := json.Unmarshal(rawTuple, &arr); err != nil || len(arr) != 2 {
			return fmt.Errorf("%s: expected [path, value] tuple", key)
		}
		tuple[0], tuple[1] = arr[0], arr[1]

		var path string
		if err := json.Unmarshal(tuple[0], &path); err != nil {
			return fmt.Errorf("%s: path must be a string: %w", key, err)
		}
		var value any
		if err := json.Unmarshal(tuple[1], &value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*c = Condition{Kind: KindCompare, Op: canon, Path: path, Value: value}
		return nil
	}

	return fmt.Errorf("condition has no recognized junction, comparison, or UI-form keys")
}

// unmarshalConditionList decodes a junction's JSON array of child
// conditions, each through Condition.UnmarshalJSON.
func unmarshalConditionList(data json.RawMessage) ([]Condition, error) {
	var children []Condition
	if err := json.Unmarshal(data, &children); err != nil {
		return nil, err
	}
	return children, nil
}

// Action is one entry in a rule's `then` list. Params carries
// action-specific parameters (e.g. `keep` for close-duplicates, `for`/
// `until` for snooze) keyed exactly as they appear in the rule document.
type Action struct {
	Action string         `json:"action"`
	Params map[string]any `json:"-"`
}

// UnmarshalJSON keeps the `action` discriminator and folds every other
// key into Params, so action-specific parameters need no dedicated struct
// per action type at the document layer.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	action, _ := raw["action"].(string)
	delete(raw, "action")
	a.Action = action
	a.Params = raw
	return nil
}

// MarshalJSON re-flattens Params alongside the action discriminator.
func (a Action) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Params)+1)
	for k, v := range a.Params {
		out[k] = v
	}
	out["action"] = a.Action
	return json.Marshal(out)
}

// String returns a param as a string, or "" if absent/wrong type.
func (a Action) String(key string) string {
	if v, ok := a.Params[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns a param as a bool, or def if absent/wrong type.
func (a Action) Bool(key string, def bool) bool {
	if v, ok := a.Params[key].(bool); ok {
		return v
	}
	return def
}

// TriggerKind discriminates which of the four trigger classes a Rule uses.
type TriggerKind string

const (
	TriggerImmediate TriggerKind = "immediate"
	TriggerRepeat    TriggerKind = "repeat"
	TriggerOnce      TriggerKind = "once"
	TriggerOnAction  TriggerKind = "on_action"
)

// Trigger describes exactly one of the four trigger classes a Rule may
// carry. DebounceMs, RepeatEvery and OnceAt are meaningful only for the
// matching Kind.
type Trigger struct {
	Kind TriggerKind `json:"kind"`
	// DebounceMs overrides the default debounce window for an immediate
	// trigger. Always milliseconds (§9: the spec normalizes units to ms
	// at the document boundary regardless of how the source expressed
	// them).
	DebounceMs int64 `json:"debounceMs,omitempty"`
	// RepeatEvery is a duration literal ("30m", "1h", "2d") or a standard
	// five-field cron expression, for a repeat trigger.
	RepeatEvery string `json:"repeatEvery,omitempty"`
	// OnceAt is the absolute fire time for a once trigger.
	OnceAt time.Time `json:"onceAt,omitempty"`
}

// Flags are per-rule execution toggles.
type Flags struct {
	SkipPinned    bool `json:"skipPinned"`
	IncludePinned bool `json:"includePinned"`
	Test          bool `json:"test"`
}

// DefaultFlags returns the document-default flag set (skipPinned=true).
func DefaultFlags() Flags {
	return Flags{SkipPinned: true}
}

// Rule is owned by the collaborator; the engine reads it and never
// mutates it.
type Rule struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Enabled bool      `json:"enabled"`
	When    Condition `json:"when"`
	Then    []Action  `json:"then"`
	Trigger Trigger   `json:"trigger"`
	Flags   Flags     `json:"flags"`
}

// UnmarshalJSON decodes a rule document starting from DefaultFlags, so
// any flag the document omits keeps its default.
func (r *Rule) UnmarshalJSON(data []byte) error {
	type plain Rule
	p := plain{Flags: DefaultFlags()}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Rule(p)
	return nil
}
