package schema

import (
	"log/slog"
	"testing"

	"github.com/jpicklyk/task-orchestrator/internal/config"
)

func testLogger() *slog.Logger { return slog.Default() }

func TestLoadNilFileConfigIsSchemaFree(t *testing.T) {
	svc := Load(nil, testLogger())

	if entries := svc.GetSchemaForTags([]string{"feature"}); entries != nil {
		t.Errorf("expected nil schema for nil FileConfig, got %v", entries)
	}
	if svc.HasReviewPhase([]string{"feature"}) {
		t.Error("expected no review phase in schema-free mode")
	}
	if missing := svc.MissingRequiredNotes([]string{"feature"}, "queue", nil); missing != nil {
		t.Errorf("expected no missing notes in schema-free mode, got %v", missing)
	}
}

func TestLoadSkipsMalformedEntries(t *testing.T) {
	fc := &config.FileConfig{NoteSchemas: map[string][]config.RawSchemaEntry{
		"feature": {
			{Key: "requirements", Role: "queue", Required: true},
			{Key: "", Role: "work"},              // missing key
			{Key: "design", Role: "implementing"}, // unknown role
		},
	}}
	svc := Load(fc, testLogger())

	entries := svc.GetSchemaForTags([]string{"feature"})
	if len(entries) != 1 || entries[0].Key != "requirements" {
		t.Errorf("entries = %v, want only the valid requirements entry", entries)
	}
}

func TestLoadDropsTagWithNoValidEntries(t *testing.T) {
	fc := &config.FileConfig{NoteSchemas: map[string][]config.RawSchemaEntry{
		"broken": {{Key: "", Role: "queue"}},
	}}
	svc := Load(fc, testLogger())

	if entries := svc.GetSchemaForTags([]string{"broken"}); entries != nil {
		t.Errorf("expected no schema for a tag whose every entry was malformed, got %v", entries)
	}
}

func TestGetSchemaForTagsFirstMatchWins(t *testing.T) {
	fc := &config.FileConfig{NoteSchemas: map[string][]config.RawSchemaEntry{
		"bug":     {{Key: "repro-steps", Role: "queue", Required: true}},
		"feature": {{Key: "requirements", Role: "queue", Required: true}},
	}}
	svc := Load(fc, testLogger())

	entries := svc.GetSchemaForTags([]string{"bug", "feature"})
	if len(entries) != 1 || entries[0].Key != "repro-steps" {
		t.Errorf("entries = %v, want bug schema to win (first matching tag)", entries)
	}

	entries = svc.GetSchemaForTags([]string{"unrelated", "feature"})
	if len(entries) != 1 || entries[0].Key != "requirements" {
		t.Errorf("entries = %v, want feature schema when bug tag absent", entries)
	}
}

func TestHasReviewPhase(t *testing.T) {
	fc := &config.FileConfig{NoteSchemas: map[string][]config.RawSchemaEntry{
		"feature": {
			{Key: "requirements", Role: "queue", Required: true},
			{Key: "review-notes", Role: "review", Required: true},
		},
		"bug": {{Key: "repro-steps", Role: "queue", Required: true}},
	}}
	svc := Load(fc, testLogger())

	if !svc.HasReviewPhase([]string{"feature"}) {
		t.Error("expected feature schema to carry a review phase")
	}
	if svc.HasReviewPhase([]string{"bug"}) {
		t.Error("expected bug schema to have no review phase")
	}
	if svc.HasReviewPhase([]string{"unknown-tag"}) {
		t.Error("expected an unmatched tag to report no review phase")
	}
}

func TestMissingRequiredNotesFiltersByPhaseAndBody(t *testing.T) {
	fc := &config.FileConfig{NoteSchemas: map[string][]config.RawSchemaEntry{
		"feature": {
			{Key: "requirements", Role: "queue", Required: true},
			{Key: "design-notes", Role: "queue", Required: false},
			{Key: "test-plan", Role: "work", Required: true},
		},
	}}
	svc := Load(fc, testLogger())

	missing := svc.MissingRequiredNotes([]string{"feature"}, "queue", nil)
	if len(missing) != 1 || missing[0].Key != "requirements" {
		t.Errorf("missing = %v, want only the required queue-phase requirements note", missing)
	}

	missing = svc.MissingRequiredNotes([]string{"feature"}, "queue", map[string]string{"requirements": ""})
	if len(missing) != 1 || missing[0].Key != "requirements" {
		t.Errorf("expected an empty-bodied note to still count as missing, got %v", missing)
	}

	missing = svc.MissingRequiredNotes([]string{"feature"}, "queue", map[string]string{"requirements": "build the thing"})
	if len(missing) != 0 {
		t.Errorf("expected no missing notes once requirements has a body, got %v", missing)
	}

	missing = svc.MissingRequiredNotes([]string{"feature"}, "work", nil)
	if len(missing) != 1 || missing[0].Key != "test-plan" {
		t.Errorf("missing = %v, want only the work-phase test-plan note", missing)
	}
}
