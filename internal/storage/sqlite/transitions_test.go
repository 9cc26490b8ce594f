package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jpicklyk/task-orchestrator/internal/types"
)

func newTransition(id, itemID string, from, to types.Role, trigger types.Trigger, at time.Time) *types.RoleTransition {
	return &types.RoleTransition{
		ID: id, ItemID: itemID, FromRole: from, ToRole: to, Trigger: trigger, TransitionedAt: at,
	}
}

func TestAppendAndListTransitionsForItem(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mustCreateItem(t, store, "a")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := newTransition("t1", "a", types.RoleQueue, types.RoleWork, types.TriggerStart, base)
	t2 := newTransition("t2", "a", types.RoleWork, types.RoleTerminal, types.TriggerComplete, base.Add(time.Hour))
	if err := store.AppendTransition(ctx, t1); err != nil {
		t.Fatalf("append t1: %v", err)
	}
	if err := store.AppendTransition(ctx, t2); err != nil {
		t.Fatalf("append t2: %v", err)
	}

	got, err := store.TransitionsForItem(ctx, "a")
	if err != nil {
		t.Fatalf("transitions for item: %v", err)
	}
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t2" {
		t.Errorf("transitions = %v, want [t1 t2] oldest-first", got)
	}
}

func TestTransitionsSinceAndRange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mustCreateItem(t, store, "a")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"t1", "t2", "t3"} {
		tr := newTransition(id, "a", types.RoleQueue, types.RoleWork, types.TriggerStart,
			base.Add(time.Duration(i)*24*time.Hour))
		if err := store.AppendTransition(ctx, tr); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	since, err := store.TransitionsSince(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("transitions since: %v", err)
	}
	if len(since) != 2 || since[0].ID != "t2" {
		t.Errorf("since = %v, want [t2 t3]", since)
	}

	ranged, err := store.TransitionsInRange(ctx, base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("transitions in range: %v", err)
	}
	if len(ranged) != 2 || ranged[0].ID != "t1" || ranged[1].ID != "t2" {
		t.Errorf("range = %v, want [t1 t2]", ranged)
	}
}

func TestTransitionsSurviveItemDeletion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mustCreateItem(t, store, "a")

	tr := newTransition("t1", "a", types.RoleQueue, types.RoleWork, types.TriggerStart, time.Now())
	if err := store.AppendTransition(ctx, tr); err != nil {
		t.Fatalf("append transition: %v", err)
	}

	if err := store.DeleteItem(ctx, "a"); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	got, err := store.TransitionsForItem(ctx, "a")
	if err != nil {
		t.Fatalf("transitions for item after delete: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected audit transition to survive item deletion, got %d rows", len(got))
	}
}
