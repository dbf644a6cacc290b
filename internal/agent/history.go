package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"battlematus/internal/combat"
)

// Entry is the choice made in one round. An empty Spell is a pass.
type Entry struct {
	Round   int               `json:"round"`
	Spell   string            `json:"spell,omitempty"`
	Targets []combat.Position `json:"targets,omitempty"`
}

// History replays recorded per-round choices and records the choices of
// its fallback for rounds it has no entry for. With a path the history is
// read from and saved to that file.
type History struct {
	path     string
	member   string
	entries  map[int]Entry
	fallback combat.Agent
}

func NewHistory(path, member string) (combat.Agent, error) {
	h := &History{path: path, member: member, entries: map[int]Entry{}, fallback: First{}}
	if path == "" {
		return h, nil
	}
	entries, err := ReadHistory(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("no history yet", "member", member, "path", path)
	case err != nil:
		return nil, err
	}
	for _, e := range entries {
		h.entries[e.Round] = e
	}
	return h, nil
}

func (h *History) Name() string { return spec("history", h.path) }

func (h *History) Select(v combat.View) combat.Choice {
	round := v.State.Round
	if e, ok := h.entries[round]; ok {
		if e.Spell == "" {
			return combat.Pass()
		}
		if i := slices.Index(v.Hand(), e.Spell); i >= 0 {
			return combat.Choice{Spell: i, Targets: slices.Clone(e.Targets)}
		}
		slog.Warn("recorded spell not in hand, using fallback", "member", h.member, "round", round, "spell", e.Spell)
	}

	c := h.fallback.Select(v)
	e := Entry{Round: round}
	if sp, ok := v.Spell(c.Spell); ok {
		e.Spell = sp.ID
		e.Targets = slices.Clone(c.Targets)
	}
	h.entries[round] = e
	return c
}

// Entries returns the history ordered by round.
func (h *History) Entries() []Entry {
	out := make([]Entry, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return a.Round - b.Round })
	return out
}

// Save writes the history back to its file. Histories without a path are
// kept in memory only.
func (h *History) Save() error {
	if h.path == "" {
		return nil
	}
	return WriteHistory(h.path, h.Entries())
}

func ReadHistory(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}
	return entries, nil
}

func WriteHistory(path string, entries []Entry) error {
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
