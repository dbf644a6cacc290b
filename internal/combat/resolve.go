package combat

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"battlematus/internal/config"
	"battlematus/internal/pip"
)

var (
	errNoSpell   = errors.New("no spell selected")
	errBadSpell  = errors.New("spell is not in hand")
	errBadTarget = errors.New("invalid target")
)

// resolve runs one event through the cast pipeline. A plan event is planned
// and, when it becomes a cast, cast in the same call.
func (s *Simulation) resolve(ev *Event) (Status, error) {
	id := ev.Member
	m := s.State.Member(id)
	stats := s.Library.Stats(id)

	if m.Health <= 0 {
		s.pass(ev, id, "defeated")
		return StatusContinue, nil
	}

	switch ev.Kind {
	case EventPlan:
		s.tickTokens(id, m, stats)
		if m.Health <= 0 {
			s.pass(ev, id, "defeated")
			return StatusContinue, nil
		}
		s.plan(ev, id, m, stats)
		if ev.Kind != EventCast {
			return StatusContinue, nil
		}
		return s.cast(ev, id, m, stats)
	case EventPass:
		return StatusContinue, nil
	case EventCast:
		return s.cast(ev, id, m, stats)
	case EventPet, EventInterrupt, EventEffect:
		err := fmt.Errorf("%w: %s event for %s", ErrNotSupported, ev.Kind, id)
		slog.Error("unsupported event", "member", id, "event", ev.Kind)
		return StatusUnsupported, err
	}
	panic(fmt.Sprintf("combat: unknown event kind %d", int(ev.Kind)))
}

func (s *Simulation) pass(ev *Event, id, reason string) {
	ev.Kind = EventPass
	ev.Spell = ""
	ev.Targets = nil
	slog.Debug("pass", "member", id, "reason", reason)
	s.emit(Record{Type: "pass", Member: id, Payload: map[string]any{"reason": reason}})
}

// tickTokens resolves damage and healing over time at the start of the
// member's turn.
func (s *Simulation) tickTokens(id string, m *Member, stats *config.Stats) {
	if len(m.Tokens) == 0 {
		return
	}
	kept := m.Tokens[:0]
	for _, t := range m.Tokens {
		d := Delta{Kind: DeltaHealth, Member: id, Amount: -t.Magnitude, Cap: stats.Health}
		got := d.apply(s.State, s.Overflow)
		s.emit(Record{Type: "token", Member: id, Payload: map[string]any{"health": got, "rounds": t.Rounds - 1}})
		t.Rounds--
		if t.Rounds > 0 {
			kept = append(kept, t)
		}
	}
	m.Tokens = kept
}

// plan asks the member's agent for a choice and turns the event into a cast
// or a pass.
func (s *Simulation) plan(ev *Event, id string, m *Member, stats *config.Stats) {
	pos, seated := s.State.SeatOf(id)
	if !seated {
		s.pass(ev, id, "not seated")
		return
	}
	agent, ok := s.Agents[id]
	if !ok {
		slog.Warn("member has no agent, passing", "member", id)
		s.pass(ev, id, "no agent")
		return
	}

	choice := agent.Select(s.view(id, pos, stats))
	slog.Debug("selection", "member", id, "agent", agent.Name(), "spell", choice.Spell, "targets", choice.Targets)

	// hand manipulation is allowed while stunned, so stun wins after selection
	if m.Stunned() {
		s.pass(ev, id, "stunned")
		return
	}

	spell, targets, err := s.validate(pos, m, stats, choice)
	if err != nil {
		if !errors.Is(err, errNoSpell) {
			slog.Info("selection rejected", "member", id, "err", err)
		}
		s.pass(ev, id, err.Error())
		return
	}

	if stats.IsPlayer() {
		m.Deck = slices.Delete(m.Deck, choice.Spell, choice.Spell+1)
		m.Hand = max(0, m.Hand-1)
	}
	ev.Kind = EventCast
	ev.Spell = spell.ID
	ev.Targets = targets
	s.emit(Record{Type: "plan", Member: id, Payload: map[string]any{"spell": spell.ID, "targets": positionNamesOf(targets)}})
}

// validate checks a choice against the hand, the spell record, the pips held
// and the target rules.
func (s *Simulation) validate(pos Position, m *Member, stats *config.Stats, c Choice) (*config.Spell, []Position, error) {
	if c.Spell < 0 {
		return nil, nil, errNoSpell
	}
	hand := m.HandCards(stats.IsPlayer())
	if c.Spell >= len(hand) {
		return nil, nil, fmt.Errorf("%w: index %d, hand of %d", errBadSpell, c.Spell, len(hand))
	}
	spell, ok := s.Library.Spell(hand[c.Spell])
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is unusable", errBadSpell, hand[c.Spell])
	}
	if err := affordable(m, stats, spell); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", spell.ID, err)
	}
	targets, err := s.checkTargets(pos, m, spell, c.Targets)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", spell.ID, err)
	}
	return spell, targets, nil
}

func affordable(m *Member, stats *config.Stats, spell *config.Spell) error {
	if spell.Shadow > m.Shadows {
		return fmt.Errorf("%w: need %d shadow, have %d", pip.ErrInsufficientPips, spell.Shadow, m.Shadows)
	}
	_, err := m.Pips.Consume(spell.Cost(), mastery(stats, spell.School), false)
	return err
}

// checkTargets validates the chosen seat for spells that need one. Spells
// without a single target selector ignore the choice.
func (s *Simulation) checkTargets(pos Position, m *Member, spell *config.Spell, chosen []Position) ([]Position, error) {
	sel := spell.PrimaryTarget()
	if !sel.Single() {
		return nil, nil
	}
	if len(chosen) != 1 {
		return nil, fmt.Errorf("%w: %s needs exactly one target, got %d", errBadTarget, sel, len(chosen))
	}
	t := chosen[0]
	want := enemySide(pos, m.Beguiled())
	if sel == config.TargetFriend {
		want = friendSide(pos, m.Beguiled())
	}
	if !t.Valid() || t.Side() != want {
		return nil, fmt.Errorf("%w: %s is not a valid %s", errBadTarget, t, sel)
	}
	if err := s.checkOccupant(t, spell.Revives()); err != nil {
		return nil, err
	}
	return []Position{t}, nil
}

// checkOccupant requires a living member in the seat, or a defeated one for
// revives.
func (s *Simulation) checkOccupant(t Position, revive bool) error {
	id, _, alive := s.State.Occupant(t)
	switch {
	case revive && (id == "" || alive):
		return fmt.Errorf("%w: no defeated member at %s", errBadTarget, t)
	case !revive && !alive:
		return fmt.Errorf("%w: no living member at %s", errBadTarget, t)
	}
	return nil
}

// resolveTargets maps an action's selector to concrete seats at cast time.
func (s *Simulation) resolveTargets(pos Position, m *Member, a config.Action, chosen []Position) ([]Position, error) {
	switch sel := a.Target; sel {
	case config.TargetSelf:
		return []Position{pos}, nil
	case config.TargetFriend, config.TargetEnemy:
		if len(chosen) != 1 {
			return nil, fmt.Errorf("%w: %s without a chosen seat", errBadTarget, sel)
		}
		if err := s.checkOccupant(chosen[0], a.Kind == config.ActionRevive); err != nil {
			return nil, err
		}
		return chosen, nil
	case config.TargetAllFriends:
		if a.Kind == config.ActionRevive {
			return s.State.Fallen(friendSide(pos, m.Beguiled())), nil
		}
		return s.State.Living(friendSide(pos, m.Beguiled())), nil
	case config.TargetAllEnemies:
		return s.State.Living(enemySide(pos, m.Beguiled())), nil
	}
	panic(fmt.Sprintf("combat: unknown target selector %d", int(a.Target)))
}

// cast resolves a cast event: stun check, target resolution, outcome tree
// expansion, then one sampled path applied to the live state.
func (s *Simulation) cast(ev *Event, id string, m *Member, stats *config.Stats) (Status, error) {
	if m.Stunned() {
		s.pass(ev, id, "stunned")
		return StatusContinue, nil
	}
	pos, seated := s.State.SeatOf(id)
	if !seated {
		s.pass(ev, id, "not seated")
		return StatusContinue, nil
	}
	spell, ok := s.Library.Spell(ev.Spell)
	if !ok {
		slog.Warn("cast of unusable spell", "member", id, "spell", ev.Spell)
		s.pass(ev, id, "unusable spell")
		return StatusContinue, nil
	}

	targets := make([][]Position, len(spell.Actions))
	for i, a := range spell.Actions {
		t, err := s.resolveTargets(pos, m, a, ev.Targets)
		if err != nil {
			slog.Info("cast target no longer valid", "member", id, "spell", spell.ID, "err", err)
			s.pass(ev, id, err.Error())
			return StatusContinue, nil
		}
		targets[i] = t
	}
	if err := affordable(m, stats, spell); err != nil {
		slog.Info("cast no longer affordable", "member", id, "spell", spell.ID, "err", err)
		s.pass(ev, id, "insufficient pips")
		return StatusContinue, nil
	}

	root, err := s.expand(id, m, stats, spell, targets)
	if err != nil {
		slog.Error("cast aborted", "member", id, "spell", spell.ID, "err", err)
		if errors.Is(err, ErrNotSupported) {
			return StatusUnsupported, err
		}
		return StatusError, err
	}

	path := root.Sample(s.Rng)
	s.commit(id, spell, path)
	return StatusContinue, nil
}

// commit applies a sampled path to the live state and journals it.
func (s *Simulation) commit(id string, spell *config.Spell, path []*Node) {
	fizzled := false
	for _, n := range path {
		if n.Label == labelFizzle || n.Label == labelDispel {
			fizzled = true
			s.emit(Record{Type: "fizzle", Member: id, Payload: map[string]any{"spell": spell.ID, "dispel": n.Label == labelDispel}})
		}
		for _, d := range n.Deltas {
			got := d.apply(s.State, s.Overflow)
			if d.Kind == DeltaRevive && got > 0 {
				s.emit(Record{Type: "revive", Member: id, Payload: map[string]any{"spell": spell.ID, "target": d.Member, "health": got}})
				continue
			}
			if d.Kind != DeltaHealth || fizzled {
				continue
			}
			kind := "heal"
			if d.Amount < 0 {
				kind = "damage"
				got = -got
			}
			s.emit(Record{Type: kind, Member: id, Payload: map[string]any{"spell": spell.ID, "target": d.Member, "amount": got}})
		}
	}
}

func positionNamesOf(ps []Position) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}
