// Package schema implements the note-schema service: a pure read-through
// cache over note contracts loaded once from config.yaml at process start,
// matched against an item's tags to decide what notes are expected and
// whether a review phase applies. Grounded on the teacher's read-through
// label-mutex cache in internal/labelmutex/policy.go, which is likewise
// loaded once from YAML and consulted without re-reading the file.
package schema

import (
	"log/slog"

	"github.com/jpicklyk/task-orchestrator/internal/config"
	"github.com/jpicklyk/task-orchestrator/internal/types"
)

// Service answers getSchemaForTags/hasReviewPhase queries against an
// immutable in-memory map built once at Load time. It never re-reads its
// source file; a changed config.yaml only takes effect on restart, which is
// an explicit design choice (see DESIGN.md) since hot-reloading a schema
// mid-transition could change what a concurrent advance_item call expects
// partway through validation.
type Service struct {
	byTag map[string][]types.NoteSchemaEntry
}

// Load builds a Service from decoded file config. A nil fc (no config.yaml
// found) yields an empty Service: every item is in schema-free mode, per
// spec.md §4.2. Malformed entries are skipped with a logged warning rather
// than failing startup.
func Load(fc *config.FileConfig, log *slog.Logger) *Service {
	s := &Service{byTag: make(map[string][]types.NoteSchemaEntry)}
	if fc == nil {
		return s
	}
	for tag, rawEntries := range fc.NoteSchemas {
		entries := make([]types.NoteSchemaEntry, 0, len(rawEntries))
		for _, re := range rawEntries {
			entry := types.NoteSchemaEntry{
				Key:         re.Key,
				Role:        re.Role,
				Required:    re.Required,
				Description: re.Description,
				Guidance:    re.Guidance,
			}
			if !isValidEntry(entry) {
				log.Warn("skipping malformed note schema entry", "tag", tag, "key", re.Key, "role", re.Role)
				continue
			}
			entries = append(entries, entry)
		}
		if len(entries) > 0 {
			s.byTag[tag] = entries
		}
	}
	return s
}

func isValidEntry(e types.NoteSchemaEntry) bool {
	if e.Key == "" {
		return false
	}
	switch e.Role {
	case "queue", "work", "review":
		return true
	default:
		return false
	}
}

// GetSchemaForTags returns the entry list of the first tag in tags that
// matches a known schema, or nil for schema-free mode.
func (s *Service) GetSchemaForTags(tags []string) []types.NoteSchemaEntry {
	for _, tag := range tags {
		if entries, ok := s.byTag[tag]; ok {
			return entries
		}
	}
	return nil
}

// HasReviewPhase reports whether the schema matched by tags contains any
// entry with role "review". Unmatched tags report false, treated as "skip
// REVIEW" by the transition handler.
func (s *Service) HasReviewPhase(tags []string) bool {
	for _, e := range s.GetSchemaForTags(tags) {
		if e.Role == "review" {
			return true
		}
	}
	return false
}

// MissingRequiredNotes returns the required entries for phase (the role
// being left, lowercase) that have no satisfying note in existing, keyed by
// note key with a non-empty body.
func (s *Service) MissingRequiredNotes(tags []string, phase string, existing map[string]string) []types.NoteSchemaEntry {
	var missing []types.NoteSchemaEntry
	for _, e := range s.GetSchemaForTags(tags) {
		if !e.Required || e.Role != phase {
			continue
		}
		if body, ok := existing[e.Key]; !ok || body == "" {
			missing = append(missing, e)
		}
	}
	return missing
}
