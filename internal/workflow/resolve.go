// Package workflow implements the transition handler: the three-phase
// resolve/validate/apply algorithm that governs how a work item's role
// changes, plus the cascade and cleanup side effects that follow a change.
// It is the engine spec.md calls out as the hardest piece of this system;
// grounded in the teacher's function-per-phase, explicit-error-return style
// (internal/storage/sqlite's CreateIssue flow) since beads itself has no
// equivalent multi-phase state machine.
package workflow

import (
	"fmt"

	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// statusCancelled is the statusLabel a forward cancel transition writes.
const statusCancelled = "cancelled"

// Resolution is the pure, I/O-free output of phase 1: the target role a
// trigger maps a work item to, plus whatever statusLabel that resolution
// implies.
type Resolution struct {
	TargetRole  types.Role
	StatusLabel *string
}

// Resolve maps (item.Role, trigger, hasReviewPhase, item.PreviousRole) onto
// a target role, per spec.md §4.3 phase 1. It performs no I/O and returns
// an error for every combination the table marks invalid.
func Resolve(item *types.Item, trigger types.Trigger, hasReviewPhase bool) (Resolution, error) {
	if !trigger.IsValid() {
		return Resolution{}, fmt.Errorf("unknown trigger %q: valid triggers are %s", trigger, types.ValidTriggersDescription())
	}

	current := item.Role

	switch trigger {
	case types.TriggerCancel:
		if current == types.RoleTerminal {
			return Resolution{}, fmt.Errorf("item is already terminal")
		}
		label := statusCancelled
		return Resolution{TargetRole: types.RoleTerminal, StatusLabel: &label}, nil

	case types.TriggerBlock, types.TriggerHold:
		if current == types.RoleBlocked {
			return Resolution{}, fmt.Errorf("item is already blocked")
		}
		if current == types.RoleTerminal {
			return Resolution{}, fmt.Errorf("a terminal item cannot be blocked")
		}
		return Resolution{TargetRole: types.RoleBlocked}, nil

	case types.TriggerResume:
		if current != types.RoleBlocked {
			return Resolution{}, fmt.Errorf("resume is only valid from BLOCKED, item is %s", current)
		}
		if item.PreviousRole == nil {
			return Resolution{}, fmt.Errorf("blocked item has no previousRole to resume to")
		}
		return Resolution{TargetRole: *item.PreviousRole}, nil

	case types.TriggerComplete:
		if current == types.RoleTerminal {
			return Resolution{}, fmt.Errorf("item is already terminal")
		}
		if current == types.RoleBlocked {
			return Resolution{}, fmt.Errorf("a blocked item must resume before it can complete")
		}
		return Resolution{TargetRole: types.RoleTerminal}, nil

	case types.TriggerStart:
		switch current {
		case types.RoleQueue:
			return Resolution{TargetRole: types.RoleWork}, nil
		case types.RoleWork:
			if hasReviewPhase {
				return Resolution{TargetRole: types.RoleReview}, nil
			}
			return Resolution{TargetRole: types.RoleTerminal}, nil
		case types.RoleReview:
			return Resolution{TargetRole: types.RoleTerminal}, nil
		case types.RoleTerminal:
			return Resolution{}, fmt.Errorf("item is already terminal")
		case types.RoleBlocked:
			return Resolution{}, fmt.Errorf("a blocked item must resume before it can start")
		}
	}

	return Resolution{}, fmt.Errorf("unhandled trigger %q for role %q", trigger, current)
}
