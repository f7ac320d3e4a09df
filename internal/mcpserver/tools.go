package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tabsentry/engine/internal/engine"
	"github.com/tabsentry/engine/internal/model"
)

type runRuleInput struct {
	RuleID         string `json:"rule_id" jsonschema:"rule identifier to evaluate"`
	TriggerType    string `json:"trigger_type,omitempty" jsonschema:"trigger kind recorded against the run: immediate, repeat, once, or on_action"`
	ForceExecution bool   `json:"force_execution,omitempty" jsonschema:"evaluate the rule even if it is disabled"`
	DryRun         bool   `json:"dry_run,omitempty" jsonschema:"compute matches and actions without mutating any tab"`
}

type runRulesInput struct {
	RuleIDs        []string `json:"rule_ids" jsonschema:"rule identifiers to evaluate, in order"`
	TriggerType    string   `json:"trigger_type,omitempty" jsonschema:"trigger kind recorded against each run"`
	ForceExecution bool     `json:"force_execution,omitempty" jsonschema:"evaluate each rule even if disabled"`
	DryRun         bool     `json:"dry_run,omitempty" jsonschema:"compute matches and actions without mutating any tab"`
}

type previewRuleInput struct {
	RuleID string `json:"rule_id" jsonschema:"rule identifier to preview"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_rule",
		Description: "Evaluate one rule against the current tab snapshot and dispatch its actions",
	}, s.handleRunRule)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_rules",
		Description: "Evaluate a sequence of rules in order, each against its own fresh snapshot",
	}, s.handleRunRules)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "preview_rule",
		Description: "Evaluate a rule in dry-run mode regardless of its enabled state, issuing no driver mutations",
	}, s.handlePreviewRule)
}

func (s *Server) handleRunRule(ctx context.Context, _ *mcp.CallToolRequest, input runRuleInput) (*mcp.CallToolResult, any, error) {
	rule, ok := s.resolveRule(input.RuleID)
	if !ok {
		return nil, nil, fmt.Errorf("rule not found: %s", input.RuleID)
	}

	opts := engine.RunOptions{
		TriggerType:    triggerKindOrDefault(input.TriggerType),
		ForceExecution: input.ForceExecution,
		DryRun:         input.DryRun,
	}
	result := s.orchestrator.RunRule(ctx, rule, opts)
	return jsonToolResult(result)
}

func (s *Server) handleRunRules(ctx context.Context, _ *mcp.CallToolRequest, input runRulesInput) (*mcp.CallToolResult, any, error) {
	if len(input.RuleIDs) == 0 {
		return nil, nil, fmt.Errorf("rule_ids is required")
	}

	rules := make([]model.Rule, 0, len(input.RuleIDs))
	for _, id := range input.RuleIDs {
		rule, ok := s.resolveRule(id)
		if !ok {
			return nil, nil, fmt.Errorf("rule not found: %s", id)
		}
		rules = append(rules, rule)
	}

	opts := engine.RunOptions{
		TriggerType:    triggerKindOrDefault(input.TriggerType),
		ForceExecution: input.ForceExecution,
		DryRun:         input.DryRun,
	}
	results := s.orchestrator.RunRules(ctx, rules, opts)
	return jsonToolResult(results)
}

func (s *Server) handlePreviewRule(ctx context.Context, _ *mcp.CallToolRequest, input previewRuleInput) (*mcp.CallToolResult, any, error) {
	rule, ok := s.resolveRule(input.RuleID)
	if !ok {
		return nil, nil, fmt.Errorf("rule not found: %s", input.RuleID)
	}
	result := s.orchestrator.PreviewRule(ctx, rule)
	return jsonToolResult(result)
}

func (s *Server) resolveRule(ruleID string) (model.Rule, bool) {
	if s.lookup == nil {
		return model.Rule{}, false
	}
	return s.lookup(ruleID)
}

func triggerKindOrDefault(raw string) model.TriggerKind {
	if raw == "" {
		return model.TriggerOnAction
	}
	return model.TriggerKind(raw)
}

func jsonToolResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	return textToolResult(string(data)), nil, nil
}

func textToolResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
