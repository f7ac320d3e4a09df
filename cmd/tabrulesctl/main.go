// tabrulesctl evaluates a rule document against a static tab snapshot
// without a live browser connection, for local iteration on rule
// authoring.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tabsentry/engine/internal/actions"
	"github.com/tabsentry/engine/internal/engine"
	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/store"
)

var (
	version = "dev"
	commit  = "none"
)

type cliConfig struct {
	jsonOutput bool
}

var errShowUsage = errors.New("show usage")

func main() {
	cfg, command, args, err := parseArgs(os.Args[1:])
	if errors.Is(err, errShowUsage) {
		printUsage()
		if len(os.Args) == 1 {
			os.Exit(1)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	switch command {
	case "preview":
		err = runEvaluate(cfg, args, true)
	case "run":
		err = runEvaluate(cfg, args, false)
	case "validate":
		err = runValidate(args)
	case "version":
		fmt.Printf("tabrulesctl %s (commit: %s)\n", version, commit)
		return
	case "help", "--help", "-h":
		printUsage()
	default:
		err = fmt.Errorf("unknown command: %s", command)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string) (cliConfig, string, []string, error) {
	cfg := cliConfig{}

	idx := 0
	for idx < len(args) {
		arg := args[idx]
		if !strings.HasPrefix(arg, "-") {
			break
		}
		switch arg {
		case "--help", "-h":
			return cfg, "", nil, errShowUsage
		case "--json":
			cfg.jsonOutput = true
			idx++
		default:
			return cfg, "", nil, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	if idx >= len(args) {
		return cfg, "", nil, errShowUsage
	}

	return cfg, args[idx], args[idx+1:], nil
}

func printUsage() {
	fmt.Print(`Usage: tabrulesctl [--json] <command>

Commands:
  preview <rule.json> <snapshot.json>   Evaluate a rule without mutating the snapshot
  run <rule.json> <snapshot.json>       Evaluate a rule and apply its actions to the snapshot
  validate <rule.json>                  Parse a rule document and report condition/action errors
  version                               Print the build version
`)
}

func loadRule(path string) (model.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Rule{}, fmt.Errorf("read rule %s: %w", path, err)
	}
	var rule model.Rule
	if err := json.Unmarshal(data, &rule); err != nil {
		return model.Rule{}, fmt.Errorf("parse rule %s: %w", path, err)
	}
	return rule, nil
}

func runEvaluate(cfg cliConfig, args []string, dryRun bool) error {
	if len(args) != 2 {
		return fmt.Errorf("expected <rule.json> <snapshot.json>")
	}

	rule, err := loadRule(args[0])
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(args[1])
	if err != nil {
		return err
	}

	drv := newSnapshotDriver(snap)
	orch := engine.New(nil, drv, store.NewMemory(), nil, nil, time.Now)

	opts := engine.RunOptions{TriggerType: model.TriggerOnAction, ForceExecution: true, DryRun: dryRun}
	result := orch.RunRule(context.Background(), rule, opts)

	if cfg.jsonOutput {
		return printJSON(os.Stdout, result)
	}
	printRunResult(os.Stdout, result, drv.Log)
	return nil
}

func runValidate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected <rule.json>")
	}
	rule, err := loadRule(args[0])
	if err != nil {
		return err
	}
	if rule.ID == "" {
		return fmt.Errorf("rule is missing an id")
	}
	for i, action := range rule.Then {
		if action.Action == "" {
			return fmt.Errorf("action %d is missing an action name", i)
		}
		if !actions.IsKnownAction(action.Action) {
			return fmt.Errorf("action %d: unknown action %q", i, action.Action)
		}
	}
	for _, c := range actions.DetectConflicts(rule.ID, rule.Then) {
		fmt.Printf("warning: conflicting actions %q and %q\n", c.First, c.Second)
	}
	fmt.Printf("rule %q is valid (%d actions)\n", rule.ID, len(rule.Then))
	return nil
}
