package toolserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jpicklyk/task-orchestrator/internal/storage"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

type dependencySpec struct {
	FromItemID string  `json:"fromItemId"`
	ToItemID   string  `json:"toItemId"`
	Type       string  `json:"type"`
	UnblockAt  *string `json:"unblockAt"`
}

type fanOutSpec struct {
	Source  string   `json:"source"`
	Targets []string `json:"targets"`
}

type fanInSpec struct {
	Sources []string `json:"sources"`
	Target  string   `json:"target"`
}

type manageDependenciesParams struct {
	Operation    string           `json:"operation"`
	Dependencies []dependencySpec `json:"dependencies"`
	Linear       []string         `json:"linear"`
	FanOut       *fanOutSpec      `json:"fan-out"`
	FanIn        *fanInSpec       `json:"fan-in"`

	ID       string                 `json:"id"`
	From     string                 `json:"from"`
	To       string                 `json:"to"`
	Type     *string                `json:"type"`
	DeleteAll *string               `json:"deleteAll"`
}

func (s *Server) handleManageDependencies(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[manageDependenciesParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}

	switch params.Operation {
	case "create":
		return s.createDependencies(ctx, params)
	case "delete":
		return s.deleteDependencies(ctx, params)
	default:
		return failCode(CodeValidation, "unknown manage_dependencies operation: "+params.Operation)
	}
}

// expandPattern turns one of the three pattern shortcuts into an explicit
// dependencySpec list, all typed BLOCKS, per spec.md §6.
func expandPattern(params manageDependenciesParams) ([]dependencySpec, error) {
	if len(params.Dependencies) > 0 {
		return params.Dependencies, nil
	}
	if len(params.Linear) > 0 {
		if len(params.Linear) < 2 {
			return nil, nil
		}
		specs := make([]dependencySpec, 0, len(params.Linear)-1)
		for i := 0; i < len(params.Linear)-1; i++ {
			specs = append(specs, dependencySpec{
				FromItemID: params.Linear[i], ToItemID: params.Linear[i+1], Type: string(types.DepBlocks),
			})
		}
		return specs, nil
	}
	if params.FanOut != nil {
		specs := make([]dependencySpec, 0, len(params.FanOut.Targets))
		for _, t := range params.FanOut.Targets {
			specs = append(specs, dependencySpec{FromItemID: params.FanOut.Source, ToItemID: t, Type: string(types.DepBlocks)})
		}
		return specs, nil
	}
	if params.FanIn != nil {
		specs := make([]dependencySpec, 0, len(params.FanIn.Sources))
		for _, src := range params.FanIn.Sources {
			specs = append(specs, dependencySpec{FromItemID: src, ToItemID: params.FanIn.Target, Type: string(types.DepBlocks)})
		}
		return specs, nil
	}
	return nil, nil
}

// createDependencies inserts the whole batch inside one transaction so any
// violation (cycle, bad id, duplicate edge) rejects all of it, per spec.md
// §6 ("creation is atomic").
func (s *Server) createDependencies(ctx context.Context, params manageDependenciesParams) *Envelope {
	specs, err := expandPattern(params)
	if err != nil {
		return failCode(CodeValidation, err.Error())
	}
	if len(specs) == 0 {
		return failCode(CodeValidation, "create requires dependencies[] or a pattern shortcut")
	}

	created := make([]*types.Dependency, 0, len(specs))
	txErr := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Store) error {
		for _, spec := range specs {
			dep := &types.Dependency{
				ID:         uuid.NewString(),
				FromItemID: spec.FromItemID,
				ToItemID:   spec.ToItemID,
				Type:       types.DependencyType(spec.Type),
				CreatedAt:  time.Now(),
			}
			if spec.UnblockAt != nil {
				r := types.Role(*spec.UnblockAt)
				dep.UnblockAt = &r
			}
			if err := tx.CreateDependency(ctx, dep); err != nil {
				return err
			}
			created = append(created, dep)
		}
		return nil
	})
	if txErr != nil {
		return fail(txErr)
	}
	return ok(created)
}

func (s *Server) deleteDependencies(ctx context.Context, params manageDependenciesParams) *Envelope {
	switch {
	case params.DeleteAll != nil:
		if err := s.store.DeleteDependenciesForItem(ctx, *params.DeleteAll); err != nil {
			return fail(err)
		}
		return okMessage("all dependencies for item deleted", map[string]string{"itemId": *params.DeleteAll})

	case params.ID != "":
		if err := s.store.DeleteDependency(ctx, params.ID); err != nil {
			return fail(err)
		}
		return okMessage("dependency deleted", map[string]string{"id": params.ID})

	case params.From != "" && params.To != "":
		var depType *types.DependencyType
		if params.Type != nil {
			t := types.DependencyType(*params.Type)
			depType = &t
		}
		if err := s.store.DeleteDependenciesBetween(ctx, params.From, params.To, depType); err != nil {
			return fail(err)
		}
		return okMessage("dependencies deleted", map[string]string{"from": params.From, "to": params.To})

	default:
		return failCode(CodeValidation, "delete requires id, (from,to[,type]), or deleteAll")
	}
}

type queryDependenciesParams struct {
	ItemID    string  `json:"itemId"`
	Direction *string `json:"direction"` // "from" | "to" | "" (both)
	Type      *string `json:"type"`
	Graph     bool    `json:"graph"`
}

func (s *Server) handleQueryDependencies(ctx context.Context, raw json.RawMessage) *Envelope {
	params, err := decodeParams[queryDependenciesParams](raw)
	if err != nil {
		return failCode(CodeValidation, "invalid parameters: "+err.Error())
	}
	if params.ItemID == "" {
		return failCode(CodeValidation, "query_dependencies requires itemId")
	}

	if params.Graph {
		nodes, err := s.dependencyGraph(ctx, params.ItemID)
		if err != nil {
			return fail(err)
		}
		return ok(map[string]any{"nodes": nodes})
	}

	var deps []*types.Dependency
	switch {
	case params.Direction != nil && *params.Direction == "from":
		deps, err = s.store.DependenciesFrom(ctx, params.ItemID)
	case params.Direction != nil && *params.Direction == "to":
		deps, err = s.store.DependenciesTo(ctx, params.ItemID)
	default:
		deps, err = s.store.DependenciesForItem(ctx, params.ItemID)
	}
	if err != nil {
		return fail(err)
	}

	if params.Type != nil {
		filtered := make([]*types.Dependency, 0, len(deps))
		for _, d := range deps {
			if string(d.Type) == *params.Type {
				filtered = append(filtered, d)
			}
		}
		deps = filtered
	}
	return ok(deps)
}

// dependencyGraph does a bounded breadth-first walk of the dependency edges
// reachable from itemID, for query_dependencies(graph=true). Edges of every
// type, RELATES_TO included, are followed in both directions.
func (s *Server) dependencyGraph(ctx context.Context, itemID string) ([]string, error) {
	const maxNodes = 500
	visited := map[string]bool{itemID: true}
	queue := []string{itemID}
	order := []string{itemID}

	for len(queue) > 0 && len(order) < maxNodes {
		current := queue[0]
		queue = queue[1:]

		deps, err := s.store.DependenciesForItem(ctx, current)
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			for _, next := range []string{d.FromItemID, d.ToItemID} {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
					order = append(order, next)
				}
			}
		}
	}
	return order, nil
}
