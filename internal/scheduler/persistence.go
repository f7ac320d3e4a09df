package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/tabsentry/engine/internal/model"
	"github.com/tabsentry/engine/internal/store"
)

// PersistedTrigger is the on-disk shape of a pending once trigger (§4.5,
// §6 store key "scheduledTriggers"). Only once triggers are persisted;
// immediate and repeat triggers are reconstructed from the rule document
// on every InstallRule call.
type PersistedTrigger struct {
	RuleID string    `json:"ruleId"`
	Time   time.Time `json:"time"`
	Type   string    `json:"type"`
}

func loadPersistedTriggers(ctx context.Context, st store.Store) ([]PersistedTrigger, error) {
	v, ok, err := st.Get(ctx, store.KeyScheduledTriggers)
	if err != nil {
		return nil, &model.StorageError{Key: store.KeyScheduledTriggers, Op: "get", Err: err}
	}
	if !ok || v == nil {
		return nil, nil
	}
	triggers, ok := v.([]PersistedTrigger)
	if !ok {
		return nil, fmt.Errorf("scheduledTriggers value has unexpected type %T", v)
	}
	return triggers, nil
}

func savePersistedTriggers(ctx context.Context, st store.Store, triggers []PersistedTrigger) error {
	if err := st.Set(ctx, store.KeyScheduledTriggers, triggers); err != nil {
		return &model.StorageError{Key: store.KeyScheduledTriggers, Op: "set", Err: err}
	}
	return nil
}

func upsertPersistedTrigger(ctx context.Context, st store.Store, t PersistedTrigger) error {
	triggers, err := loadPersistedTriggers(ctx, st)
	if err != nil {
		return err
	}
	out := triggers[:0]
	for _, existing := range triggers {
		if existing.RuleID != t.RuleID {
			out = append(out, existing)
		}
	}
	out = append(out, t)
	return savePersistedTriggers(ctx, st, out)
}

func removePersistedTrigger(ctx context.Context, st store.Store, ruleID string) error {
	triggers, err := loadPersistedTriggers(ctx, st)
	if err != nil {
		return err
	}
	out := triggers[:0]
	for _, existing := range triggers {
		if existing.RuleID != ruleID {
			out = append(out, existing)
		}
	}
	return savePersistedTriggers(ctx, st, out)
}
