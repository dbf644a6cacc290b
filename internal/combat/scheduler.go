package combat

import (
	"log/slog"

	"battlematus/internal/pip"
)

// advanceRound starts a new round: it unseats defeated NPCs, resets
// defeated players, ticks status timers, queues a plan event and grants one
// pip per seated member, then carries delayed events into the new queue.
func (s *Simulation) advanceRound() {
	st := s.State
	st.Round++

	fresh := make([]Event, 0, Seats+len(st.Events))
	for i := 0; i < Seats; i++ {
		pos := Position((int(st.First) + i) % Seats)
		id := st.Position[pos]
		if id == "" {
			continue
		}
		m := st.Member(id)
		stats := s.Library.Stats(id)

		if m.Health <= 0 {
			if !stats.IsPlayer() {
				st.Position[pos] = ""
				slog.Debug("defeated member leaves the battle", "member", id, "position", pos)
				s.emit(Record{Type: "defeated", Member: id, Payload: map[string]any{"position": pos.String()}})
				continue
			}
			m.reset(0)
			continue
		}

		m.Status.tick()
		fresh = append(fresh, NewPlanEvent(id))

		gained := pip.Basic
		if stats.PowerPip > s.Rng.Float64() {
			gained = pip.Power
		}
		if dropped := m.Pips.GainWith(s.Overflow, gained); dropped > 0 {
			slog.Debug("pip overflow", "member", id, "pip", gained, "policy", s.Overflow)
		}

		if stats.IsPlayer() {
			m.Hand = HandSize
		}
	}

	st.Events = carryDelayed(st.Events, fresh)
	st.Cursor = 0
}

// carryDelayed merges events that still carry a delay into the new round's
// queue. Round events go to the front or back; local events sit directly
// before or after their member's turn entry and are dropped when the member
// has no turn. Events sharing an anchor keep their relative order.
func carryDelayed(old, fresh []Event) []Event {
	var head, tail []Event
	before := map[string][]Event{}
	after := map[string][]Event{}
	for _, ev := range old {
		if ev.Delay <= 0 {
			continue
		}
		ev.Delay--
		switch {
		case !ev.Local && ev.Before:
			head = append(head, ev)
		case !ev.Local:
			tail = append(tail, ev)
		case ev.Before:
			before[ev.Member] = append(before[ev.Member], ev)
		default:
			after[ev.Member] = append(after[ev.Member], ev)
		}
	}

	out := make([]Event, 0, len(old)+len(fresh))
	out = append(out, head...)
	anchored := make(map[string]bool, len(fresh))
	for _, ev := range fresh {
		anchor := ev.Kind.turn() && !anchored[ev.Member]
		if anchor {
			out = append(out, before[ev.Member]...)
		}
		out = append(out, ev)
		if anchor {
			out = append(out, after[ev.Member]...)
			anchored[ev.Member] = true
		}
	}
	out = append(out, tail...)

	for _, group := range []map[string][]Event{before, after} {
		for member, evs := range group {
			if !anchored[member] {
				slog.Debug("dropping delayed events for absent member", "member", member, "count", len(evs))
			}
		}
	}
	return out
}
