// Package pip implements the pip economy: the fixed seven slot pip holding
// every combatant carries, and the gain, consume, sort and count operations
// over it.
package pip

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pip is a single pip. The numeric value is the sort precedence.
type Pip int

const (
	Basic Pip = iota
	Power
	Balance
	Death
	Fire
	Ice
	Life
	Myth
	Storm
	None

	// Kinds is the number of distinct pip values including None.
	Kinds = int(None) + 1
	// CostSlots is the number of payable pip kinds (everything but None).
	CostSlots = int(None)
)

var pipNames = [Kinds]string{"basic", "power", "balance", "death", "fire", "ice", "life", "myth", "storm", "none"}

func (p Pip) String() string {
	if p < 0 || int(p) >= Kinds {
		return fmt.Sprintf("pip(%d)", int(p))
	}
	return pipNames[p]
}

// Valid reports whether p is one of the declared pip values.
func (p Pip) Valid() bool { return p >= Basic && p <= None }

// IsSchool reports whether p is one of the seven school pips.
func (p Pip) IsSchool() bool { return p >= Balance && p <= Storm }

// ParsePip accepts a pip name ("power") or its precedence number.
func ParsePip(s string) (Pip, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range pipNames {
		if n == s {
			return Pip(i), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && Pip(n).Valid() {
		return Pip(n), nil
	}
	return None, fmt.Errorf("unknown pip %q", s)
}

// UnmarshalYAML accepts either the pip name or the integer precedence.
func (p *Pip) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParsePip(node.Value)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// School indexes the per-school stat arrays.
type School int

const (
	SchoolFire School = iota
	SchoolIce
	SchoolStorm
	SchoolLife
	SchoolDeath
	SchoolMyth
	SchoolBalance
	SchoolSun
	SchoolMoon
	SchoolStar
	SchoolShadow

	// SchoolCount is the length of every per-school stat array.
	SchoolCount = int(SchoolShadow) + 1
)

var schoolNames = [SchoolCount]string{"fire", "ice", "storm", "life", "death", "myth", "balance", "sun", "moon", "star", "shadow"}

func (s School) String() string {
	if !s.Valid() {
		return fmt.Sprintf("school(%d)", int(s))
	}
	return schoolNames[s]
}

// Valid reports whether s indexes a stat array.
func (s School) Valid() bool { return s >= SchoolFire && int(s) < SchoolCount }

// ParseSchool accepts a school name or its index.
func ParseSchool(s string) (School, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range schoolNames {
		if n == s {
			return School(i), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && School(n).Valid() {
		return School(n), nil
	}
	return SchoolFire, fmt.Errorf("unknown school %q", s)
}

func (s *School) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseSchool(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// SchoolPip maps a school to its school pip. Astral and shadow schools have
// no school pip and map to None.
func SchoolPip(s School) Pip {
	switch s {
	case SchoolFire:
		return Fire
	case SchoolIce:
		return Ice
	case SchoolStorm:
		return Storm
	case SchoolLife:
		return Life
	case SchoolDeath:
		return Death
	case SchoolMyth:
		return Myth
	case SchoolBalance:
		return Balance
	default:
		return None
	}
}
