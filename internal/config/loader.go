package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record file extensions and the directories they live under.
const (
	StatsExt   = ".stats"
	SpellExt   = ".spell"
	membersDir = "members"
	spellsDir  = "spells"
)

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

// RecordPath maps a dotted identifier such as "storm.thundersnake" to
// <root>/<dir>/storm/thundersnake<ext>.
func RecordPath(root, dir, id, ext string) string {
	parts := strings.Split(id, ".")
	return filepath.Join(append([]string{root, dir}, parts...)...) + ext
}

// StatsPath is the record path for a member identifier.
func StatsPath(root, memberID string) string {
	return RecordPath(root, membersDir, memberID, StatsExt)
}

// SpellPath is the record path for a spell identifier.
func SpellPath(root, spellID string) string {
	return RecordPath(root, spellsDir, spellID, SpellExt)
}

// normalize converts a decoded YAML document into the plain JSON value shape
// the schema validator expects.
func normalize(raw []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("record is not json compatible: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
