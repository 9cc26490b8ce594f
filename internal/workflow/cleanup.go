package workflow

import (
	"context"

	"github.com/jpicklyk/task-orchestrator/internal/config"
	"github.com/jpicklyk/task-orchestrator/internal/storage"
)

// defaultRetainTags is used when completion_cleanup.retainTags is unset in
// config.yaml, per spec.md §4.4.
var defaultRetainTags = []string{"bug", "bugfix", "fix", "hotfix", "critical"}

// CompletionCleanup deletes the direct children (not grandchildren) of an
// item that just reached TERMINAL, skipping any child carrying a retained
// tag. Projects and standalone items are never themselves deleted by this
// function; it only ever removes itemID's children. Returns the deleted
// child IDs.
func CompletionCleanup(ctx context.Context, store storage.Store, itemID string, cfg config.CompletionCleanupConfig) ([]string, error) {
	targets, err := SelectCompletionCleanupTargets(ctx, store, itemID, cfg)
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, id := range targets {
		if err := store.DeleteItem(ctx, id); err != nil {
			return nil, err
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

// SelectCompletionCleanupTargets computes, read-only, the direct children of
// itemID that CompletionCleanup would delete under cfg, without deleting
// anything. Used both by CompletionCleanup itself and by complete_tree's
// dryRun mode.
func SelectCompletionCleanupTargets(ctx context.Context, store storage.Store, itemID string, cfg config.CompletionCleanupConfig) ([]string, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	retain := cfg.RetainTags
	if len(retain) == 0 {
		retain = defaultRetainTags
	}
	retainSet := make(map[string]bool, len(retain))
	for _, t := range retain {
		retainSet[t] = true
	}

	children, err := store.ChildItems(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var targets []string
	for _, child := range children {
		if hasAnyTag(child.Tags, retainSet) {
			continue
		}
		targets = append(targets, child.ID)
	}
	return targets, nil
}

func hasAnyTag(tags []string, set map[string]bool) bool {
	for _, t := range tags {
		if set[t] {
			return true
		}
	}
	return false
}
