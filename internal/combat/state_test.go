package combat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battlematus/internal/config"
	"battlematus/internal/pip"
)

// --- Event Queue Tests ---

func TestNextEvent_SkipsDelayedEvents(t *testing.T) {
	st := NewState()
	st.Events = []Event{
		NewPlanEvent("a"),
		{Kind: EventEffect, Member: "b", Delay: 2},
		NewPlanEvent("c"),
	}

	first := st.NextEvent()
	require.NotNil(t, first)
	assert.Equal(t, "a", first.Member)
	assert.Equal(t, 1, st.Cursor)

	second := st.NextEvent()
	require.NotNil(t, second)
	assert.Equal(t, "c", second.Member)
	assert.Equal(t, 3, st.Cursor)

	assert.Nil(t, st.NextEvent())
	assert.Equal(t, 3, st.Cursor)
	assert.Len(t, st.Events, 3, "delayed events are kept")
}

func TestNextEvent_ReturnsPointerIntoQueue(t *testing.T) {
	st := NewState()
	st.Events = []Event{NewPlanEvent("a")}
	ev := st.NextEvent()
	ev.Kind = EventPass
	assert.Equal(t, EventPass, st.Events[0].Kind)
}

// --- Seating Tests ---

func TestSeating_JSON(t *testing.T) {
	var s Seating
	s[Sun] = "wizard"
	s[Blade] = "boss"

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["wizard",null,null,null,"boss",null,null,null]`, string(b))

	var back Seating
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s, back)
}

func TestSeating_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"short", `["a",null]`},
		{"duplicate", `["a",null,null,null,"a",null,null,null]`},
		{"not a list", `{"sun":"a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Seating
			assert.Error(t, json.Unmarshal([]byte(tt.in), &s))
		})
	}
}

// --- State Tests ---

func newTestState(t *testing.T) *State {
	t.Helper()
	sim, _ := duel(t, 1, strike("storm.bolt", 1.0, 100))
	target := sim.State.Members["target"]
	target.Wards = []config.Modifier{{Source: "ice.tower", Type: config.ModDamageMult, Value: -0.5, Schools: []pip.School{pip.SchoolStorm}}}
	target.Tokens = []Token{{Rounds: 2, Magnitude: 40}}
	target.Status[Confused] = 1
	sim.State.Events = []Event{NewPlanEvent("caster"), {Kind: EventCast, Member: "target", Spell: "x", Targets: []Position{Sun}, Delay: 1}}
	return sim.State
}

func TestState_CloneIsIndependent(t *testing.T) {
	st := newTestState(t)
	c := st.Clone()

	c.Members["target"].Wards[0].Schools[0] = pip.SchoolFire
	c.Members["target"].Tokens[0].Rounds = 9
	c.Members["caster"].Deck[0] = "other"
	c.Events[1].Targets[0] = Moon
	c.Position[Sun] = ""

	assert.Equal(t, pip.SchoolStorm, st.Members["target"].Wards[0].Schools[0])
	assert.Equal(t, 2, st.Members["target"].Tokens[0].Rounds)
	assert.Equal(t, "storm.bolt", st.Members["caster"].Deck[0])
	assert.Equal(t, Sun, st.Events[1].Targets[0])
	assert.Equal(t, "caster", st.Position[Sun])
}

func TestState_JSONRoundTrip(t *testing.T) {
	st := newTestState(t)
	b, err := json.Marshal(st)
	require.NoError(t, err)

	var back State
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, st, &back)
}

func TestState_Occupancy(t *testing.T) {
	st := newTestState(t)

	pos, ok := st.SeatOf("target")
	require.True(t, ok)
	assert.Equal(t, Blade, pos)
	_, ok = st.SeatOf("nobody")
	assert.False(t, ok)

	assert.Equal(t, []Position{Sun}, st.Living(0))
	assert.Equal(t, []Position{Blade}, st.Living(1))

	st.Members["target"].Health = 0
	id, _, alive := st.Occupant(Blade)
	assert.Equal(t, "target", id)
	assert.False(t, alive)
	assert.Empty(t, st.Living(1))

	_, _, alive = st.Occupant(Position(12))
	assert.False(t, alive)
}

func TestState_Revive(t *testing.T) {
	st := newTestState(t)
	assert.Error(t, st.Revive("caster", 100), "standing members cannot be revived")
	assert.Error(t, st.Revive("ghost", 100))

	st.Members["caster"].Health = 0
	assert.Error(t, st.Revive("caster", 0))
	require.NoError(t, st.Revive("caster", 120))
	assert.Equal(t, 120, st.Members["caster"].Health)
}

func TestState_MemberPanicsOnMissingRecord(t *testing.T) {
	st := NewState()
	assert.Panics(t, func() { st.Member("ghost") })
}

// --- Member Tests ---

func TestMember_UnmarshalFillsOnlyMissingValues(t *testing.T) {
	var m Member
	require.NoError(t, json.Unmarshal([]byte(`{"deck":["a","b"]}`), &m))
	assert.Equal(t, -1, m.Health)

	stats := config.DefaultStats()
	stats.Health = 800
	stats.Deck = []string{"x"}
	stats.Side = []string{"y"}
	stats.StartPips = []pip.Pip{pip.Power}
	m.fill(&stats, func(int, func(i, j int)) {})

	assert.Equal(t, 800, m.Health)
	assert.Equal(t, []string{"a", "b"}, m.Deck, "an explicit deck is kept")
	assert.Equal(t, []string{"y"}, m.Side)
	assert.Equal(t, pip.Of(pip.Power), m.Pips)
}

func TestMember_UnmarshalRejectsBadPips(t *testing.T) {
	var m Member
	assert.Error(t, json.Unmarshal([]byte(`{"pips":[42]}`), &m))
}

func TestMember_SpellDistribution(t *testing.T) {
	m := NewMember()
	m.Deck = []string{"a", "b", "a"}
	m.Side = []string{"c"}
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, m.SpellDistribution(false))
	assert.Equal(t, map[string]int{"c": 1}, m.SpellDistribution(true))
}

func TestMember_HandCards(t *testing.T) {
	m := NewMember()
	m.Deck = []string{"a", "b", "c"}
	m.Hand = 2
	assert.Equal(t, []string{"a", "b"}, m.HandCards(true))
	assert.Equal(t, []string{"a", "b", "c"}, m.HandCards(false))
}

func TestState_Fallen(t *testing.T) {
	st := newTestState(t)
	assert.Empty(t, st.Fallen(0))
	assert.Empty(t, st.Fallen(1))

	st.Members["target"].Health = 0
	assert.Equal(t, []Position{Blade}, st.Fallen(1))
	assert.Empty(t, st.Fallen(0))
}
