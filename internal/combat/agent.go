package combat

import (
	"math/rand"

	"battlematus/internal/config"
	"battlematus/internal/pip"
)

// PassChoice is the spell index an agent returns to pass.
const PassChoice = -1

// Choice is an agent's planning decision: an index into the member's hand
// and the chosen target seats.
type Choice struct {
	Spell   int
	Targets []Position
}

// Pass returns the choice that skips the turn.
func Pass() Choice { return Choice{Spell: PassChoice} }

// Agent picks a spell and targets for a member during planning. Agents
// only see a copy of the battle; every effect goes through validation.
type Agent interface {
	Name() string
	Select(v View) Choice
}

// AgentFactory builds the agent a spec names for a member.
type AgentFactory func(spec, member string) (Agent, error)

// View is what an agent can see when asked to plan.
type View struct {
	Member   string
	Position Position
	Self     *Member
	Stats    *config.Stats
	State    *State
	Library  *config.Library
	Rng      *rand.Rand
}

func (s *Simulation) view(id string, pos Position, stats *config.Stats) View {
	st := s.State.Clone()
	return View{
		Member:   id,
		Position: pos,
		Self:     st.Members[id],
		Stats:    stats,
		State:    st,
		Library:  s.Library,
		Rng:      s.Rng,
	}
}

// Hand lists the spell ids the member may pick from.
func (v View) Hand() []string {
	return v.Self.HandCards(v.Stats.IsPlayer())
}

// Spell looks up the hand card at index i.
func (v View) Spell(i int) (*config.Spell, bool) {
	hand := v.Hand()
	if i < 0 || i >= len(hand) {
		return nil, false
	}
	return v.Library.Spell(hand[i])
}

// Castable reports whether the member currently holds the pips for the
// hand card at index i.
func (v View) Castable(i int) bool {
	sp, ok := v.Spell(i)
	if !ok {
		return false
	}
	return affordable(v.Self, v.Stats, sp) == nil
}

// Opponents lists living seats the member may target with enemy spells.
func (v View) Opponents() []Position {
	return v.State.Living(enemySide(v.Position, v.Self.Beguiled()))
}

// Allies lists living seats on the member's own side.
func (v View) Allies() []Position {
	return v.State.Living(friendSide(v.Position, v.Self.Beguiled()))
}

// Fallen lists defeated members still seated on the member's own side.
func (v View) Fallen() []Position {
	return v.State.Fallen(friendSide(v.Position, v.Self.Beguiled()))
}

func friendSide(pos Position, beguiled bool) int {
	if beguiled {
		return 1 - pos.Side()
	}
	return pos.Side()
}

func enemySide(pos Position, beguiled bool) int {
	return 1 - friendSide(pos, beguiled)
}

func mastery(stats *config.Stats, school pip.School) bool {
	return school.Valid() && stats.Mastery[school]
}
