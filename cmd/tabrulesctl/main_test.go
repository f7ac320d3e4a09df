package main

import "testing"

func TestVersionMetadataDefaults(t *testing.T) {
	if version != "dev" {
		t.Fatalf("expected default version %q, got %q", "dev", version)
	}
	if commit != "none" {
		t.Fatalf("expected default commit %q, got %q", "none", commit)
	}
}

func TestParseArgs_JSONFlagBeforeCommand(t *testing.T) {
	cfg, command, args, err := parseArgs([]string{"--json", "preview", "rule.json", "snapshot.json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.jsonOutput {
		t.Fatal("expected jsonOutput to be set")
	}
	if command != "preview" {
		t.Fatalf("expected command preview, got %q", command)
	}
	if len(args) != 2 || args[0] != "rule.json" || args[1] != "snapshot.json" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestParseArgs_NoArgsShowsUsage(t *testing.T) {
	_, _, _, err := parseArgs(nil)
	if err != errShowUsage {
		t.Fatalf("expected errShowUsage, got %v", err)
	}
}

func TestParseArgs_UnknownFlagErrors(t *testing.T) {
	_, _, _, err := parseArgs([]string{"--nope", "preview"})
	if err == nil || err == errShowUsage {
		t.Fatalf("expected an unknown-flag error, got %v", err)
	}
}
