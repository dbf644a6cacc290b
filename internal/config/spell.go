package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"battlematus/internal/pip"
)

// ErrInvalidSpell marks a spell record that is missing or malformed.
var ErrInvalidSpell = errors.New("invalid spell")

// ActionKind is the kind of a spell action.
type ActionKind int

const (
	ActionCharm ActionKind = iota
	ActionWard
	ActionAura
	ActionGlobal
	ActionDamage
	ActionHeal
	ActionLifesteal
	ActionManipulate
	ActionModify
	ActionRevive
)

var actionNames = []string{"charm", "ward", "aura", "global", "damage", "heal", "lifesteal", "manipulate", "modify", "revive"}

func (k ActionKind) String() string { return enumName(actionNames, int(k), "action") }

func (k ActionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ActionKind) UnmarshalText(b []byte) error {
	i, err := enumParse(actionNames, string(b), "action")
	*k = ActionKind(i)
	return err
}

func (k *ActionKind) UnmarshalYAML(node *yaml.Node) error { return k.UnmarshalText([]byte(node.Value)) }

// TargetKind selects who a spell action applies to.
type TargetKind int

const (
	TargetSelf TargetKind = iota
	TargetFriend
	TargetEnemy
	TargetAllFriends
	TargetAllEnemies
)

var targetNames = []string{"self", "target_friend", "target_enemy", "all_friend", "all_enemy"}

func (k TargetKind) String() string { return enumName(targetNames, int(k), "target") }

// Single reports whether the selector needs one chosen target slot.
func (k TargetKind) Single() bool { return k == TargetFriend || k == TargetEnemy }

func (k TargetKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *TargetKind) UnmarshalText(b []byte) error {
	i, err := enumParse(targetNames, string(b), "target")
	*k = TargetKind(i)
	return err
}

func (k *TargetKind) UnmarshalYAML(node *yaml.Node) error { return k.UnmarshalText([]byte(node.Value)) }

// ModType is what a charm, ward, aura or global modifies.
type ModType int

const (
	ModDamageMult ModType = iota
	ModDamageCap
	ModAccuracy
	ModHealingMult
	ModHealingCap
	ModAbsorb
	ModResist
	ModMark
	ModDispel
)

var modNames = []string{"damage_mult", "damage_cap", "accuracy_mod", "healing_mult", "healing_cap", "absorb", "resist_mod", "mark", "dispel"}

func (m ModType) String() string { return enumName(modNames, int(m), "modifier") }

func (m ModType) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ModType) UnmarshalText(b []byte) error {
	i, err := enumParse(modNames, string(b), "modifier")
	*m = ModType(i)
	return err
}

func (m *ModType) UnmarshalYAML(node *yaml.Node) error { return m.UnmarshalText([]byte(node.Value)) }

func enumName(names []string, i int, kind string) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, i)
	}
	return names[i]
}

func enumParse(names []string, s, kind string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && n >= 0 && n < len(names) {
		return n, nil
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}

// Modifier is a charm, ward, aura or global. Source is the spell that
// created it. An empty Schools list matches every school.
type Modifier struct {
	Source  string       `yaml:"-" json:"source"`
	Type    ModType      `yaml:"type" json:"type"`
	Value   float64      `yaml:"value" json:"value"`
	Schools []pip.School `yaml:"schools" json:"schools,omitempty"`
}

// Matches reports whether the modifier applies to spells of school s.
func (m Modifier) Matches(s pip.School) bool {
	if len(m.Schools) == 0 {
		return true
	}
	for _, x := range m.Schools {
		if x == s {
			return true
		}
	}
	return false
}

// Action is one step of a spell. Data is the kind specific payload and is
// checked when the spell resolves, not when it loads.
type Action struct {
	Kind      ActionKind     `yaml:"type"`
	Target    TargetKind     `yaml:"target"`
	Data      map[string]any `yaml:"data"`
	Condition string         `yaml:"condition"`
}

// Spell is the static definition of a castable spell.
type Spell struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	Rate        float64             `yaml:"rate"`
	School      pip.School          `yaml:"school"`
	Pips        [pip.CostSlots]int  `yaml:"cost"`
	Shadow      int                 `yaml:"shadow"`
	X           bool                `yaml:"x"`
	Enchantable bool                `yaml:"enchantable"`
	Modifiers   map[string]Modifier `yaml:"modifiers"`
	Actions     []Action            `yaml:"actions"`
}

// Cost is the pip cost of casting the spell.
func (s *Spell) Cost() pip.Cost {
	return pip.Cost{Pips: s.Pips, School: pip.SchoolPip(s.School), Shadow: s.Shadow, X: s.X}
}

// Modifier looks up a named modifier, stamped with the spell as its source.
func (s *Spell) Modifier(name string) (Modifier, bool) {
	m, ok := s.Modifiers[name]
	if !ok {
		return Modifier{}, false
	}
	m.Source = s.ID
	return m, true
}

// PrimaryTarget is the selector of the first action that needs a chosen
// target, or TargetSelf when none does.
func (s *Spell) PrimaryTarget() TargetKind {
	for _, a := range s.Actions {
		if a.Target.Single() {
			return a.Target
		}
	}
	return TargetSelf
}

// Revives reports whether the spell brings back defeated members. Its
// chosen target must be a defeated seat instead of a living one.
func (s *Spell) Revives() bool {
	for _, a := range s.Actions {
		if a.Kind == ActionRevive {
			return true
		}
	}
	return false
}

// Reaches reports whether any action of the spell uses the selector.
func (s *Spell) Reaches(k TargetKind) bool {
	for _, a := range s.Actions {
		if a.Target == k {
			return true
		}
	}
	return false
}

// Validate checks the fields every castable spell needs.
func (s *Spell) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSpell)
	}
	if !s.School.Valid() {
		return fmt.Errorf("%w %s: bad school %d", ErrInvalidSpell, s.ID, int(s.School))
	}
	if s.Rate < 0 {
		return fmt.Errorf("%w %s: negative rate", ErrInvalidSpell, s.ID)
	}
	for i, n := range s.Pips {
		if n < 0 {
			return fmt.Errorf("%w %s: negative cost for %s", ErrInvalidSpell, s.ID, pip.Pip(i))
		}
	}
	if len(s.Actions) == 0 {
		return fmt.Errorf("%w %s: no actions", ErrInvalidSpell, s.ID)
	}
	return nil
}

// ParseSpell validates a raw record against the spell schema and decodes it.
func ParseSpell(raw []byte) (*Spell, error) {
	doc, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpell, err)
	}
	if err := spellSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpell, err)
	}
	s := &Spell{Rate: 1.0}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpell, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
