package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jpicklyk/task-orchestrator/internal/types"
)

func mustCreateItem(t *testing.T, store *Store, id string) *types.Item {
	t.Helper()
	item := newItem(id, id)
	if err := store.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("create item %s: %v", id, err)
	}
	return item
}

func newDep(id, from, to string, typ types.DependencyType) *types.Dependency {
	return &types.Dependency{ID: id, FromItemID: from, ToItemID: to, Type: typ, CreatedAt: time.Now()}
}

func TestCreateDependency(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mustCreateItem(t, store, "a")
	mustCreateItem(t, store, "b")

	dep := newDep("d1", "a", "b", types.DepBlocks)
	if err := store.CreateDependency(ctx, dep); err != nil {
		t.Fatalf("create dependency: %v", err)
	}

	from, err := store.DependenciesFrom(ctx, "a")
	if err != nil {
		t.Fatalf("dependencies from: %v", err)
	}
	if len(from) != 1 || from[0].ID != "d1" {
		t.Errorf("dependencies from a = %v, want [d1]", from)
	}

	to, err := store.DependenciesTo(ctx, "b")
	if err != nil {
		t.Fatalf("dependencies to: %v", err)
	}
	if len(to) != 1 || to[0].ID != "d1" {
		t.Errorf("dependencies to b = %v, want [d1]", to)
	}
}

func TestCreateDependencyRejectsSelfLoop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mustCreateItem(t, store, "a")

	dep := newDep("d1", "a", "a", types.DepBlocks)
	if err := store.CreateDependency(ctx, dep); err == nil {
		t.Error("expected self-loop dependency to be rejected")
	}
}

func TestCreateDependencyRejectsCycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mustCreateItem(t, store, "a")
	mustCreateItem(t, store, "b")
	mustCreateItem(t, store, "c")

	if err := store.CreateDependency(ctx, newDep("d1", "a", "b", types.DepBlocks)); err != nil {
		t.Fatalf("create a->b: %v", err)
	}
	if err := store.CreateDependency(ctx, newDep("d2", "b", "c", types.DepBlocks)); err != nil {
		t.Fatalf("create b->c: %v", err)
	}

	if err := store.CreateDependency(ctx, newDep("d3", "c", "a", types.DepBlocks)); err == nil {
		t.Error("expected c->a to be rejected as a closing cycle")
	}
}

func TestDeleteDependencyVariants(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mustCreateItem(t, store, "a")
	mustCreateItem(t, store, "b")
	mustCreateItem(t, store, "c")

	if err := store.CreateDependency(ctx, newDep("d1", "a", "b", types.DepBlocks)); err != nil {
		t.Fatalf("create a->b: %v", err)
	}
	if err := store.CreateDependency(ctx, newDep("d2", "a", "c", types.DepRelatesTo)); err != nil {
		t.Fatalf("create a->c: %v", err)
	}

	if err := store.DeleteDependency(ctx, "d1"); err != nil {
		t.Fatalf("delete by id: %v", err)
	}
	remaining, err := store.DependenciesForItem(ctx, "a")
	if err != nil {
		t.Fatalf("dependencies for a: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "d2" {
		t.Errorf("remaining = %v, want [d2]", remaining)
	}

	if err := store.DeleteDependenciesForItem(ctx, "a"); err != nil {
		t.Fatalf("delete all for a: %v", err)
	}
	remaining, err = store.DependenciesForItem(ctx, "a")
	if err != nil {
		t.Fatalf("dependencies for a after delete-all: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("remaining after delete-all = %v, want none", remaining)
	}
}

func TestDeleteDependencyNotFound(t *testing.T) {
	store := newTestStore(t)
	if err := store.DeleteDependency(context.Background(), "missing"); err == nil {
		t.Error("expected not-found error deleting a nonexistent dependency")
	}
}
