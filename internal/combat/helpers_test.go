package combat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"battlematus/internal/config"
	"battlematus/internal/pip"
)

// fixedAgent always returns the same choice.
type fixedAgent struct{ choice Choice }

func (a fixedAgent) Name() string       { return "fixed" }
func (a fixedAgent) Select(View) Choice { return a.choice }

func basicCost(n int) [pip.CostSlots]int {
	var c [pip.CostSlots]int
	c[pip.Basic] = n
	return c
}

// strike is a storm single target hit with the given rate and roll values.
func strike(id string, rate float64, values ...any) *config.Spell {
	return &config.Spell{
		ID:     id,
		Name:   id,
		Rate:   rate,
		School: pip.SchoolStorm,
		Pips:   basicCost(2),
		Actions: []config.Action{{
			Kind:   config.ActionDamage,
			Target: config.TargetEnemy,
			Data:   map[string]any{"range": values},
		}},
	}
}

func putStats(t *testing.T, lib *config.Library, id string, health int, player bool, deck ...string) *config.Stats {
	t.Helper()
	s := config.DefaultStats()
	s.Name = id
	s.Health = health
	s.Player = &player
	s.Deck = deck
	return lib.PutStats(id, s)
}

func putSpell(t *testing.T, lib *config.Library, sp *config.Spell) {
	t.Helper()
	require.NoError(t, lib.PutSpell(sp))
}

// duel seats a player caster at Sun and an NPC target at Blade. The caster
// starts with two basic pips and never rolls power pips.
func duel(t *testing.T, seed int64, sp *config.Spell) (*Simulation, *[]Record) {
	t.Helper()
	lib := config.NewLibrary("")
	putSpell(t, lib, sp)
	caster := putStats(t, lib, "caster", 500, true, sp.ID)
	caster.StartPips = []pip.Pip{pip.Basic, pip.Basic}
	putStats(t, lib, "target", 500, false)

	sim := NewSimulation(lib, seed)
	var records []Record
	sim.Emit = func(r Record) { records = append(records, r) }
	_, err := sim.AddMember("caster", Sun)
	require.NoError(t, err)
	_, err = sim.AddMember("target", Blade)
	require.NoError(t, err)
	sim.SetAgent("caster", fixedAgent{Choice{Spell: 0, Targets: []Position{Blade}}})
	sim.SetAgent("target", fixedAgent{Pass()})
	return sim, &records
}

func recordsOf(records []Record, typ string) []Record {
	var out []Record
	for _, r := range records {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}
