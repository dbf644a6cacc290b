package config

import (
	"log/slog"
	"os"
	"sync"
)

// Library is the simulation wide registry of static records. Stats and
// spells are loaded on first use and shared by reference afterwards. A spell
// that failed to load is cached as nil so it is not read again.
type Library struct {
	root string

	mu     sync.RWMutex
	stats  map[string]*Stats
	spells map[string]*Spell
}

// NewLibrary returns a library reading records under root. An empty root
// gives a purely in-memory library fed through PutStats and PutSpell.
func NewLibrary(root string) *Library {
	return &Library{
		root:   root,
		stats:  make(map[string]*Stats),
		spells: make(map[string]*Spell),
	}
}

// HasStats reports whether stats for id are loaded or present on disk.
func (l *Library) HasStats(id string) bool {
	l.mu.RLock()
	_, ok := l.stats[id]
	l.mu.RUnlock()
	if ok {
		return true
	}
	if l.root == "" {
		return false
	}
	_, err := os.Stat(StatsPath(l.root, id))
	return err == nil
}

// Stats returns the profile for a member id. A missing or malformed record
// yields the default profile and a warning. The spells in the member's deck
// and side deck are loaded alongside.
func (l *Library) Stats(id string) *Stats {
	l.mu.RLock()
	s, ok := l.stats[id]
	l.mu.RUnlock()
	if ok {
		return s
	}

	loaded := l.readStats(id)
	l.mu.Lock()
	if cur, ok := l.stats[id]; ok {
		l.mu.Unlock()
		return cur
	}
	l.stats[id] = loaded
	l.mu.Unlock()

	for _, sp := range loaded.Deck {
		l.Spell(sp)
	}
	for _, sp := range loaded.Side {
		l.Spell(sp)
	}
	return loaded
}

func (l *Library) readStats(id string) *Stats {
	def := DefaultStats()
	if l.root == "" {
		slog.Warn("no stats record, using defaults", "member", id)
		return &def
	}
	path := StatsPath(l.root, id)
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("stats record unreadable, using defaults", "member", id, "path", path, "err", err)
		return &def
	}
	s, err := ParseStats(raw)
	if err != nil {
		slog.Warn("stats record malformed, using defaults", "member", id, "path", path, "err", err)
	}
	return &s
}

// PutStats registers a profile directly.
func (l *Library) PutStats(id string, s Stats) *Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := &s
	l.stats[id] = p
	return p
}

// Spell returns the definition for a spell id. ok is false for spells that
// are missing or invalid.
func (l *Library) Spell(id string) (*Spell, bool) {
	l.mu.RLock()
	s, seen := l.spells[id]
	l.mu.RUnlock()
	if seen {
		return s, s != nil
	}

	s = l.readSpell(id)
	l.mu.Lock()
	if cur, ok := l.spells[id]; ok {
		s = cur
	} else {
		l.spells[id] = s
	}
	l.mu.Unlock()
	return s, s != nil
}

func (l *Library) readSpell(id string) *Spell {
	if l.root == "" {
		slog.Warn("unknown spell", "spell", id)
		return nil
	}
	path := SpellPath(l.root, id)
	raw, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("spell record unreadable, marking invalid", "spell", id, "path", path, "err", err)
		return nil
	}
	s, err := ParseSpell(raw)
	if err != nil {
		slog.Warn("spell record invalid", "spell", id, "path", path, "err", err)
		return nil
	}
	return s
}

// PutSpell registers a definition directly. Invalid definitions are cached
// as unusable and the validation error is returned.
func (l *Library) PutSpell(s *Spell) error {
	if err := s.Validate(); err != nil {
		if s.ID != "" {
			l.mu.Lock()
			l.spells[s.ID] = nil
			l.mu.Unlock()
		}
		return err
	}
	l.mu.Lock()
	l.spells[s.ID] = s
	l.mu.Unlock()
	return nil
}
