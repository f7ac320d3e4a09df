package engine

import (
	"encoding/json"
	"testing"

	"github.com/tabsentry/engine/internal/model"
)

func mustCond(t *testing.T, raw string) model.Condition {
	t.Helper()
	var c model.Condition
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal condition: %v", err)
	}
	return c
}
