package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/tabsentry/engine/internal/model"
)

// ruleStore holds the daemon's loaded rule set in memory, keyed by id.
// Rule storage proper is a collaborator responsibility (spec §1); this
// is the minimal in-process cache the scheduler and MCP server need to
// resolve a rule id to its definition as loaded from the rules file.
type ruleStore struct {
	mu    sync.RWMutex
	rules map[string]model.Rule
	order []string
}

func newRuleStore() *ruleStore {
	return &ruleStore{rules: make(map[string]model.Rule)}
}

func loadRulesFile(path string) ([]model.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	var rules []model.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return rules, nil
}

func (s *ruleStore) Replace(rules []model.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[string]model.Rule, len(rules))
	s.order = make([]string, 0, len(rules))
	for _, r := range rules {
		s.rules[r.ID] = r
		s.order = append(s.order, r.ID)
	}
}

func (s *ruleStore) Lookup(ruleID string) (model.Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[ruleID]
	return r, ok
}

func (s *ruleStore) All() []model.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Rule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rules[id])
	}
	return out
}
