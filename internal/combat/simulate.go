package combat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"battlematus/internal/config"
	"battlematus/internal/pip"
	"battlematus/internal/util"
)

var (
	// ErrNotSupported marks event kinds and spell features the engine does
	// not resolve yet (pet casts, interrupts, secondary effects, action
	// conditions).
	ErrNotSupported = errors.New("not supported")
	// ErrMalformedAction marks a spell action whose payload cannot be read.
	ErrMalformedAction = errors.New("malformed action")
)

// Status is the outcome of one Advance call.
type Status int

const (
	StatusContinue Status = iota
	StatusRoundEnd
	StatusFriendlyVictory
	StatusEnemyVictory
	StatusError
	StatusUnsupported
)

var statusText = []string{"continue", "round_end", "friendly_victory", "enemy_victory", "error", "unsupported"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusText) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusText[s]
}

// Terminal reports whether the battle cannot advance further.
func (s Status) Terminal() bool { return s >= StatusFriendlyVictory }

// Simulation drives one battle. It is single threaded; clone the state to
// explore in parallel.
type Simulation struct {
	State    *State
	Library  *config.Library
	Agents   map[string]Agent
	Rng      *rand.Rand
	Overflow pip.Overflow

	// Emit receives journal records. It may be nil.
	Emit func(Record)
}

// NewSimulation returns an empty battle over lib seeded with seed.
func NewSimulation(lib *config.Library, seed int64) *Simulation {
	return &Simulation{
		State:   NewState(),
		Library: lib,
		Agents:  make(map[string]Agent),
		Rng:     util.New(seed),
	}
}

// Reseed replaces the random source.
func (s *Simulation) Reseed(seed int64) { s.Rng = util.New(seed) }

func (s *Simulation) emit(r Record) {
	if s.Emit == nil {
		return
	}
	r.Round = s.State.Round
	s.Emit(r)
}

// AddMember creates a member record from stats and seats it. A position
// outside the circle leaves the member unseated.
func (s *Simulation) AddMember(id string, pos Position) (*Member, error) {
	if _, ok := s.State.Members[id]; ok {
		return nil, fmt.Errorf("add member %s: already in battle", id)
	}
	if pos.Valid() && s.State.Position[pos] != "" {
		return nil, fmt.Errorf("add member %s: %s is taken by %s", id, pos, s.State.Position[pos])
	}
	m := NewMember()
	s.State.Members[id] = m
	s.initMember(id, m)
	if !pos.Valid() {
		slog.Warn("member added without a seat", "member", id)
		return m, nil
	}
	s.State.Position[pos] = id
	return m, nil
}

func (s *Simulation) initMember(id string, m *Member) {
	m.fill(s.Library.Stats(id), s.Rng.Shuffle)
}

// SetAgent assigns the planning agent for a member.
func (s *Simulation) SetAgent(member string, a Agent) { s.Agents[member] = a }

// Load replaces the battle with st, fills unset member values from stats and
// builds the agents named in agents. Agents for members the battle does not
// know are skipped with a warning.
func (s *Simulation) Load(st *State, agents map[string]string, factory AgentFactory) {
	if st.Members == nil {
		st.Members = make(map[string]*Member)
	}
	s.State = st
	for _, id := range st.MemberIDs() {
		s.initMember(id, st.Members[id])
	}
	for pos, id := range st.Position {
		if id == "" {
			continue
		}
		if _, ok := st.Members[id]; ok {
			continue
		}
		slog.Warn("seated member has no state, creating one", "member", id, "position", Position(pos))
		m := NewMember()
		st.Members[id] = m
		s.initMember(id, m)
	}

	s.Agents = make(map[string]Agent, len(agents))
	for member, spec := range agents {
		if _, ok := st.Members[member]; !ok {
			slog.Warn("agent for unknown member, skipping", "member", member, "agent", spec)
			continue
		}
		a, err := factory(spec, member)
		if err != nil {
			slog.Warn("agent could not be built, skipping", "member", member, "agent", spec, "err", err)
			continue
		}
		s.Agents[member] = a
	}
}

// AgentSpecs returns the agent name for every member with an agent.
func (s *Simulation) AgentSpecs() map[string]string {
	out := make(map[string]string, len(s.Agents))
	for id, a := range s.Agents {
		out[id] = a.Name()
	}
	return out
}

// Advance resolves exactly one event, or one round boundary when the queue
// is exhausted. Victory is only decided at a boundary.
func (s *Simulation) Advance() (Status, error) {
	ev := s.State.NextEvent()
	if ev != nil {
		return s.resolve(ev)
	}

	eval := s.EvalState()
	s.advanceRound()
	s.emit(Record{Type: "round", Payload: map[string]any{"eval": eval}})
	switch {
	case eval >= 1:
		s.emit(Record{Type: "victory", Payload: map[string]any{"side": "friendly"}})
		return StatusFriendlyVictory, nil
	case eval <= -1:
		s.emit(Record{Type: "victory", Payload: map[string]any{"side": "enemy"}})
		return StatusEnemyVictory, nil
	}
	return StatusRoundEnd, nil
}

// Run advances until a terminal status or until maxRounds rounds have been
// played. A zero maxRounds means no limit.
func (s *Simulation) Run(maxRounds int) (Status, error) {
	for {
		status, err := s.Advance()
		if status.Terminal() {
			return status, err
		}
		if status == StatusRoundEnd {
			slog.Debug("round end", "round", s.State.Round, "eval", s.EvalState())
			if maxRounds > 0 && s.State.Round > maxRounds {
				return status, nil
			}
		}
	}
}

// EvalState scores the battle in [-1, 1] from the seated members' health.
// Mutual destruction counts as an enemy victory.
func (s *Simulation) EvalState() float64 {
	var totals [2]int
	for i, id := range s.State.Position {
		if id == "" {
			continue
		}
		h := s.State.Member(id).Health
		if h < 0 {
			panic(fmt.Sprintf("combat: seated member %q has negative health %d", id, h))
		}
		totals[Position(i).Side()] += h
	}
	total := totals[0] + totals[1]
	if total == 0 {
		return -1
	}
	return float64(totals[0]-totals[1]) / float64(total)
}

func MarshalPretty(v any) []byte {
	b, _ := json.MarshalIndent(v, "", "  ")
	return b
}
