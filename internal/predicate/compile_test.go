package predicate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tabsentry/engine/internal/model"
)

func mustCondition(t *testing.T, raw string) model.Condition {
	t.Helper()
	var c model.Condition
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal condition: %v", err)
	}
	return c
}

func ctxFor(tabs ...*model.EnrichedTab) *model.ExecutionContext {
	byDomain := map[string][]*model.EnrichedTab{}
	for _, tb := range tabs {
		byDomain[tb.Domain] = append(byDomain[tb.Domain], tb)
	}
	return &model.ExecutionContext{
		Now: time.Now(),
		Indices: model.Indices{
			ByDomain:  byDomain,
			ByOrigin:  map[string][]*model.EnrichedTab{},
			ByDupeKey: map[string][]*model.EnrichedTab{},
			ByWindow:  map[int64]*model.Window{},
		},
	}
}

func TestCompile_BareConditionMatchesEverything(t *testing.T) {
	cond := mustCondition(t, `{}`)
	pred := Compile(cond, nil)
	tab := &model.EnrichedTab{Tab: model.Tab{ID: 1}}
	if !pred(tab, ctxFor(tab)) {
		t.Fatal("bare {} condition should match every tab")
	}
}

func TestCompile_EmptyAllMatchesNothing(t *testing.T) {
	cond := mustCondition(t, `{"all":[]}`)
	pred := Compile(cond, nil)
	tab := &model.EnrichedTab{Tab: model.Tab{ID: 1}}
	if pred(tab, ctxFor(tab)) {
		t.Fatal("empty all[] should never match")
	}
}

func TestCompile_ComparisonForm(t *testing.T) {
	cond := mustCondition(t, `{"eq":["tab.domain","example.com"]}`)
	pred := Compile(cond, nil)
	tab := &model.EnrichedTab{Tab: model.Tab{ID: 1}, Domain: "example.com"}
	if !pred(tab, ctxFor(tab)) {
		t.Fatal("expected match")
	}
}

func TestCompile_UIFormTranslation(t *testing.T) {
	cond := mustCondition(t, `{"subject":"tab.domain","operator":"equals","value":"example.com"}`)
	pred := Compile(cond, nil)
	tab := &model.EnrichedTab{Tab: model.Tab{ID: 1}, Domain: "example.com"}
	if !pred(tab, ctxFor(tab)) {
		t.Fatal("expected UI-form eq translation to match")
	}
}

func TestCompile_AllAnyNoneNot(t *testing.T) {
	allCond := mustCondition(t, `{"all":[{"eq":["tab.domain","a.com"]},{"gt":["tab.age","1h"]}]}`)
	pred := Compile(allCond, nil)

	old := &model.EnrichedTab{Tab: model.Tab{ID: 1}, Domain: "a.com", Age: 2 * time.Hour}
	fresh := &model.EnrichedTab{Tab: model.Tab{ID: 2}, Domain: "a.com", Age: time.Minute}
	if !pred(old, ctxFor(old)) {
		t.Error("expected old a.com tab to match all[]")
	}
	if pred(fresh, ctxFor(fresh)) {
		t.Error("fresh tab should not match age>1h")
	}

	noneCond := mustCondition(t, `{"none":[{"eq":["tab.domain","a.com"]}]}`)
	predNone := Compile(noneCond, nil)
	if predNone(old, ctxFor(old)) {
		t.Error("none[] should exclude a.com")
	}

	notCond := mustCondition(t, `{"not":{"eq":["tab.domain","a.com"]}}`)
	predNot := Compile(notCond, nil)
	if predNot(old, ctxFor(old)) {
		t.Error("not eq a.com should be false for a.com tab")
	}
}

func TestCompile_MissingPathSemantics(t *testing.T) {
	tab := &model.EnrichedTab{Tab: model.Tab{ID: 1}}
	ctx := ctxFor(tab)

	eqCond := mustCondition(t, `{"eq":["tab.last_access","5m"]}`)
	if Compile(eqCond, nil)(tab, ctx) {
		t.Error("eq on missing path should be false")
	}

	neqCond := mustCondition(t, `{"neq":["tab.last_access","5m"]}`)
	if !Compile(neqCond, nil)(tab, ctx) {
		t.Error("neq on missing path should be true")
	}

	notContainsCond := mustCondition(t, `{"not_contains":["tab.last_access","5m"]}`)
	if !Compile(notContainsCond, nil)(tab, ctx) {
		t.Error("not_contains on missing path should be true")
	}
}

func TestCompile_DurationLiteralCoercion(t *testing.T) {
	tab := &model.EnrichedTab{Tab: model.Tab{ID: 1}, Age: 2 * time.Hour}
	cond := mustCondition(t, `{"gt":["tab.age","1h"]}`)
	if !Compile(cond, nil)(tab, ctxFor(tab)) {
		t.Fatal("2h age should be > 1h literal")
	}
}

func TestCompile_InvalidRegexCompilesToAlwaysFalse(t *testing.T) {
	cond := mustCondition(t, `{"regex":["tab.title","["]}`)
	pred := Compile(cond, nil)
	tab := &model.EnrichedTab{Tab: model.Tab{ID: 1, Title: "anything"}}
	if pred(tab, ctxFor(tab)) {
		t.Fatal("invalid regex should compile to always-false")
	}
}

func TestCompile_RegexStripsSlashes(t *testing.T) {
	cond := mustCondition(t, `{"regex":["tab.title","/^foo/"]}`)
	pred := Compile(cond, nil)
	match := &model.EnrichedTab{Tab: model.Tab{ID: 1, Title: "foobar"}}
	noMatch := &model.EnrichedTab{Tab: model.Tab{ID: 2, Title: "barfoo"}}
	if !pred(match, ctxFor(match)) {
		t.Error("expected foobar to match /^foo/")
	}
	if pred(noMatch, ctxFor(noMatch)) {
		t.Error("expected barfoo not to match /^foo/")
	}
}

func TestCompile_CountPerOriginDomain(t *testing.T) {
	a := &model.EnrichedTab{Tab: model.Tab{ID: 1}, Domain: "a.com"}
	b := &model.EnrichedTab{Tab: model.Tab{ID: 2}, Domain: "a.com"}
	ctx := ctxFor(a, b)

	cond := mustCondition(t, `{"gte":["tab.countPerOrigin:domain",2]}`)
	pred := Compile(cond, nil)
	if !pred(a, ctx) {
		t.Fatal("expected count>=2 for domain with two tabs")
	}
}

func TestCompile_InOperator(t *testing.T) {
	cond := mustCondition(t, `{"in":["tab.domain",["a.com","b.com"]]}`)
	pred := Compile(cond, nil)
	tab := &model.EnrichedTab{Tab: model.Tab{ID: 1}, Domain: "b.com"}
	if !pred(tab, ctxFor(tab)) {
		t.Fatal("expected b.com to be in [a.com, b.com]")
	}
}
