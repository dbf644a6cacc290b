package combat

import (
	"encoding/json"
	"fmt"
	"slices"

	"battlematus/internal/config"
)

// Seating maps each position to a member id. An empty id is an empty seat
// and encodes as null.
type Seating [Seats]string

func (s Seating) MarshalJSON() ([]byte, error) {
	out := make([]*string, Seats)
	for i := range s {
		if s[i] != "" {
			id := s[i]
			out[i] = &id
		}
	}
	return json.Marshal(out)
}

func (s *Seating) UnmarshalJSON(b []byte) error {
	var in []*string
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if in == nil {
		*s = Seating{}
		return nil
	}
	if len(in) != Seats {
		return fmt.Errorf("seating: want %d slots, got %d", Seats, len(in))
	}
	var out Seating
	seen := make(map[string]bool, Seats)
	for i, id := range in {
		if id == nil || *id == "" {
			continue
		}
		if seen[*id] {
			return fmt.Errorf("seating: member %q seated twice", *id)
		}
		seen[*id] = true
		out[i] = *id
	}
	*s = out
	return nil
}

// State is the whole mutable battle state.
type State struct {
	Round int      `json:"round"`
	First Position `json:"first"`

	Cursor int     `json:"eventidx"`
	Events []Event `json:"events"`

	Position Seating            `json:"position"`
	Bubble   *config.Modifier   `json:"bubble,omitempty"`
	Members  map[string]*Member `json:"members"`
}

// NewState returns an empty battle with the friendly side acting first.
func NewState() *State {
	return &State{Members: make(map[string]*Member)}
}

// NextEvent returns the next event eligible this round and advances the
// cursor past it. Events still carrying a delay are skipped but kept. It
// returns nil at the round boundary.
func (s *State) NextEvent() *Event {
	for s.Cursor < len(s.Events) {
		ev := &s.Events[s.Cursor]
		s.Cursor++
		if ev.Delay <= 0 {
			return ev
		}
	}
	return nil
}

// Member returns the record for a member id. A missing record for a member
// that is referenced by the battle is a programming error.
func (s *State) Member(id string) *Member {
	m, ok := s.Members[id]
	if !ok {
		panic(fmt.Sprintf("combat: member %q has no state", id))
	}
	return m
}

// SeatOf returns the position a member occupies.
func (s *State) SeatOf(id string) (Position, bool) {
	for i, seated := range s.Position {
		if seated == id {
			return Position(i), true
		}
	}
	return 0, false
}

// Occupant returns the living member in a seat, if any.
func (s *State) Occupant(p Position) (string, *Member, bool) {
	if !p.Valid() {
		return "", nil, false
	}
	id := s.Position[p]
	if id == "" {
		return "", nil, false
	}
	m := s.Member(id)
	return id, m, m.Health > 0
}

// Living lists the occupied seats with positive health on one side.
func (s *State) Living(side int) []Position {
	var out []Position
	for i := 0; i < SideSize; i++ {
		p := Position(side*SideSize + i)
		if _, _, alive := s.Occupant(p); alive {
			out = append(out, p)
		}
	}
	return out
}

// Fallen lists the occupied seats with no health left on one side. Only
// players stay seated once defeated.
func (s *State) Fallen(side int) []Position {
	var out []Position
	for i := 0; i < SideSize; i++ {
		p := Position(side*SideSize + i)
		if id, _, alive := s.Occupant(p); id != "" && !alive {
			out = append(out, p)
		}
	}
	return out
}

// Revive sets a defeated member's health. It fails for members that are
// still standing.
func (s *State) Revive(id string, health int) error {
	m, ok := s.Members[id]
	if !ok {
		return fmt.Errorf("revive %s: unknown member", id)
	}
	if m.Health > 0 {
		return fmt.Errorf("revive %s: member is not defeated", id)
	}
	if health <= 0 {
		return fmt.Errorf("revive %s: health must be positive", id)
	}
	m.Health = health
	return nil
}

// Clone deep copies the state for independent exploration.
func (s *State) Clone() *State {
	c := *s
	c.Events = make([]Event, len(s.Events))
	for i, ev := range s.Events {
		c.Events[i] = ev.clone()
	}
	if s.Bubble != nil {
		b := cloneModifier(*s.Bubble)
		c.Bubble = &b
	}
	c.Members = make(map[string]*Member, len(s.Members))
	for id, m := range s.Members {
		c.Members[id] = m.clone()
	}
	return &c
}

// MemberIDs returns the sorted ids of every member record.
func (s *State) MemberIDs() []string {
	ids := make([]string, 0, len(s.Members))
	for id := range s.Members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
