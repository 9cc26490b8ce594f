package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CompletionCleanupConfig controls what completion cleanup does to a
// TERMINAL item's direct children, per spec.md's completion-cleanup
// ancillary.
type CompletionCleanupConfig struct {
	Enabled    bool     `yaml:"enabled"`
	RetainTags []string `yaml:"retainTags"`
}

// FileConfig is the decoded shape of .taskorchestrator/config.yaml: note
// schemas plus the two workflow ancillaries spec.md leaves configurable.
// Grounded on the teacher's yaml_config.go, which also decodes a small
// typed subset of project YAML rather than treating the whole file as a
// generic map.
type FileConfig struct {
	// NoteSchemas maps a tag to its ordered list of note-schema entries
	// (note_schemas.<tag> in spec.md §6).
	NoteSchemas map[string][]RawSchemaEntry `yaml:"note_schemas"`
	AutoCascade *struct {
		Enabled  bool `yaml:"enabled"`
		MaxDepth int  `yaml:"maxDepth"`
	} `yaml:"auto_cascade"`
	CompletionCleanup *CompletionCleanupConfig `yaml:"completion_cleanup"`
}

// RawSchemaEntry is one note contract as it appears under a tag in
// config.yaml.
type RawSchemaEntry struct {
	Key         string `yaml:"key"`
	Role        string `yaml:"role"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
	Guidance    string `yaml:"guidance"`
}

// LoadFileConfig reads and decodes path. A missing file is not an error to
// the caller of this package (Load already defaults the in-memory Config);
// callers only invoke LoadFileConfig once FindConfigYaml has confirmed the
// file exists.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config.yaml: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config.yaml: %w", err)
	}
	return &fc, nil
}

// Apply folds file-sourced overrides into cfg, matching the teacher's
// env-wins-then-file-fills-gaps layering for settings that can come from
// either source.
func (fc *FileConfig) Apply(cfg *Config) {
	if fc.AutoCascade != nil {
		cfg.AutoCascade = fc.AutoCascade.Enabled
		if fc.AutoCascade.MaxDepth > 0 {
			cfg.AutoCascadeMaxDepth = fc.AutoCascade.MaxDepth
		}
	}
	if fc.CompletionCleanup != nil {
		cfg.CompletionCleanup = *fc.CompletionCleanup
	}
}
