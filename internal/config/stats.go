package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"battlematus/internal/pip"
)

// Pair is a (multiplier, flat) stat pair, e.g. damage or resist for a school.
type Pair [2]float64

func (p Pair) Mult() float64 { return p[0] }
func (p Pair) Flat() float64 { return p[1] }

// Healing I/O indexes into Stats.Healing.
const (
	HealingIn  = 0
	HealingOut = 1
)

// Stats is the static profile of a member. It is immutable once loaded and
// shared by every Member record with the same identifier.
type Stats struct {
	Name   string `yaml:"name" json:"name"`
	Level  int    `yaml:"level" json:"level"`
	Health int    `yaml:"health" json:"health"`
	Mana   int    `yaml:"mana" json:"mana"`

	Mastery  [pip.SchoolCount]bool    `yaml:"mastery" json:"mastery"`
	Damage   [pip.SchoolCount]Pair    `yaml:"damage" json:"damage"`
	Resist   [pip.SchoolCount]Pair    `yaml:"resist" json:"resist"`
	Accuracy [pip.SchoolCount]float64 `yaml:"accuracy" json:"accuracy"`

	Critical   [pip.SchoolCount]float64 `yaml:"critical" json:"critical"`
	Block      [pip.SchoolCount]float64 `yaml:"block" json:"block"`
	Pierce     [pip.SchoolCount]float64 `yaml:"pierce" json:"pierce"`
	StunResist float64                  `yaml:"stunres" json:"stunres"`
	Healing    [2]float64               `yaml:"healing" json:"healing"`

	PipConversion [pip.SchoolCount]float64 `yaml:"pipcons" json:"pipcons"`
	PowerPip      float64                  `yaml:"powerpip" json:"powerpip"`
	ShadowPip     float64                  `yaml:"shadpip" json:"shadpip"`
	Archmastery   float64                  `yaml:"archmastery" json:"archmastery"`

	StartPips  []pip.Pip `yaml:"startpips" json:"startpips"`
	Maycasts   []string  `yaml:"maycasts" json:"maycasts"`
	Deck       []string  `yaml:"deck" json:"deck"`
	Side       []string  `yaml:"side" json:"side"`
	ArchSchool pip.Pip   `yaml:"amschool" json:"amschool"`

	// Player is derived from Mana when the record leaves it out.
	Player *bool `yaml:"player" json:"player"`
}

// DefaultStats returns the profile used for members without a usable record.
func DefaultStats() Stats {
	return Stats{
		Name:       "Magic Man",
		Level:      1,
		Health:     500,
		Mana:       10,
		ArchSchool: pip.Fire,
	}
}

// IsPlayer reports whether the member is player controlled.
func (s *Stats) IsPlayer() bool {
	if s.Player != nil {
		return *s.Player
	}
	return s.Mana < 0
}

// ParseStats decodes a stats record on top of the defaults.
func ParseStats(raw []byte) (Stats, error) {
	s := DefaultStats()
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return DefaultStats(), fmt.Errorf("parse stats: %w", err)
	}
	if s.Health <= 0 {
		return DefaultStats(), fmt.Errorf("parse stats: health must be positive, got %d", s.Health)
	}
	if !s.ArchSchool.IsSchool() {
		return DefaultStats(), fmt.Errorf("parse stats: archmastery school must be a school pip, got %s", s.ArchSchool)
	}
	for _, p := range s.StartPips {
		if p == pip.None {
			return DefaultStats(), fmt.Errorf("parse stats: start pips cannot contain none")
		}
	}
	return s, nil
}
