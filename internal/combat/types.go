package combat

import (
	"encoding/json"
	"fmt"
)

// Position is a seat in the battle circle. 0-3 are the friendly side and
// 4-7 the opposing side.
type Position int

const (
	Sun Position = iota
	Eye
	Star
	Moon
	Blade
	Key
	Gem
	Spiral

	Seats    = 8
	SideSize = 4
)

var positionNames = [Seats]string{"sun", "eye", "star", "moon", "blade", "key", "gem", "spiral"}

func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("position(%d)", int(p))
	}
	return positionNames[p]
}

func (p Position) Valid() bool { return p >= Sun && p <= Spiral }

// Side is 0 for friendly seats and 1 for opposing seats.
func (p Position) Side() int { return int(p) / SideSize }

// Phase tags where in a round a computation happens. Action through Effect
// repeat once per spell action.
type Phase int

const (
	PhaseRound    Phase = -1
	PhasePips     Phase = 0
	PhasePlanning Phase = 1
	PhaseToken    Phase = 2
	PhaseCast     Phase = 3
	PhaseAction   Phase = 5
	PhaseOutgoing Phase = 6
	PhaseBlock    Phase = 7
	PhaseIncoming Phase = 8
	PhaseEffect   Phase = 9
)

func (p Phase) String() string {
	switch p {
	case PhaseRound:
		return "round"
	case PhasePips:
		return "pips"
	case PhasePlanning:
		return "planning"
	case PhaseToken:
		return "token"
	case PhaseCast:
		return "cast"
	case PhaseAction:
		return "action"
	case PhaseOutgoing:
		return "outgoing"
	case PhaseBlock:
		return "block"
	case PhaseIncoming:
		return "incoming"
	case PhaseEffect:
		return "effect"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Status timer indexes.
const (
	Stunned = iota
	Beguiled
	Confused
)

var statusNames = [3]string{"stunned", "beguiled", "confused"}

// StatusTimers are round countdowns for stun, beguile and confusion.
type StatusTimers [3]int

func (s *StatusTimers) tick() {
	for i := range s {
		if s[i] > 0 {
			s[i]--
		}
	}
}

func parseStatus(name string) (int, bool) {
	for i, n := range statusNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// EventKind is the closed set of scheduled event kinds.
type EventKind int

const (
	EventPlan      EventKind = -1
	EventPass      EventKind = 0
	EventCast      EventKind = 1
	EventPet       EventKind = 2
	EventInterrupt EventKind = 3
	EventEffect    EventKind = 4
)

func (k EventKind) String() string {
	switch k {
	case EventPlan:
		return "plan"
	case EventPass:
		return "pass"
	case EventCast:
		return "cast"
	case EventPet:
		return "pet"
	case EventInterrupt:
		return "interrupt"
	case EventEffect:
		return "effect"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(b []byte) error {
	for _, c := range []EventKind{EventPlan, EventPass, EventCast, EventPet, EventInterrupt, EventEffect} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", b)
}

// turn reports whether the event is a member's own turn entry, the anchor
// for carried local events.
func (k EventKind) turn() bool {
	return k == EventPlan || k == EventPass || k == EventCast
}

// Event is one unit of scheduled work. Local events are ordered against
// their member's turn, others against the whole round. Before selects which
// side of that anchor they land on.
type Event struct {
	Kind    EventKind  `json:"type"`
	Member  string     `json:"member"`
	Spell   string     `json:"spell,omitempty"`
	Targets []Position `json:"target,omitempty"`
	Delay   int        `json:"delay"`
	Local   bool       `json:"local"`
	Before  bool       `json:"before"`
}

// NewPlanEvent is the planning entry a member gets every round.
func NewPlanEvent(member string) Event {
	return Event{Kind: EventPlan, Member: member, Local: true, Before: true}
}

func (e *Event) UnmarshalJSON(b []byte) error {
	type raw Event
	r := raw{Kind: EventPlan, Local: true, Before: true}
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	*e = Event(r)
	return nil
}

func (e Event) clone() Event {
	e.Targets = append([]Position(nil), e.Targets...)
	return e
}

// Record is one journal entry describing something that happened while the
// battle advanced.
type Record struct {
	Round   int            `json:"round"`
	Type    string         `json:"type"`
	Member  string         `json:"member,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}
