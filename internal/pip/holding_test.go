package pip

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicCost(basic, power int) Cost {
	var c Cost
	c.Pips[Basic] = basic
	c.Pips[Power] = power
	return c
}

func TestSort_RandomHoldings(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var h Holding
		for j := range h {
			h[j] = Pip(rng.Intn(Kinds))
		}
		h.Sort()
		require.True(t, h.Sorted(), "holding %v not sorted", h)

		seenNone := false
		for _, p := range h {
			if p == None {
				seenNone = true
				continue
			}
			assert.False(t, seenNone, "real pip after None in %v", h)
		}
	}
}

func TestGain(t *testing.T) {
	tests := []struct {
		name     string
		start    []Pip
		incoming []Pip
		policy   Overflow
		want     Holding
		dropped  int
	}{
		{
			name:     "empty holding",
			incoming: []Pip{Power, Basic},
			want:     Holding{Basic, Power, None, None, None, None, None},
		},
		{
			name:     "school pips sort after power",
			start:    []Pip{Storm, Basic},
			incoming: []Pip{Balance, Power},
			want:     Holding{Basic, Power, Balance, Storm, None, None, None},
		},
		{
			name:     "overflow dropped",
			start:    []Pip{Basic, Basic, Basic, Basic, Basic, Basic},
			incoming: []Pip{Power, Power},
			want:     Holding{Basic, Basic, Basic, Basic, Basic, Basic, Power},
			dropped:  1,
		},
		{
			name:     "overflow promotes basic",
			start:    []Pip{Basic, Basic, Basic, Basic, Basic, Basic, Basic},
			incoming: []Pip{Power},
			policy:   OverflowPromote,
			want:     Holding{Basic, Basic, Basic, Basic, Basic, Basic, Power},
			dropped:  1,
		},
		{
			name:     "basic overflow never promotes",
			start:    []Pip{Basic, Basic, Basic, Basic, Basic, Basic, Basic},
			incoming: []Pip{Basic},
			policy:   OverflowPromote,
			want:     Holding{Basic, Basic, Basic, Basic, Basic, Basic, Basic},
			dropped:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Of(tt.start...)
			dropped := h.GainWith(tt.policy, tt.incoming...)
			assert.Equal(t, tt.want, h)
			assert.Equal(t, tt.dropped, dropped)
		})
	}
}

func TestCount(t *testing.T) {
	h := Of(Basic, Basic, Power, Fire)
	mastery, plain := h.Count()
	assert.Equal(t, 6, mastery)
	assert.Equal(t, 4, plain)

	empty := Empty()
	mastery, plain = empty.Count()
	assert.Zero(t, mastery)
	assert.Zero(t, plain)
}

func TestConsume_PrefersBasic(t *testing.T) {
	h := Of(Basic, Basic, Power, Power)
	value, err := h.Consume(basicCost(3, 0), true, true)
	require.NoError(t, err)
	assert.Equal(t, 3, value)
	// two basics plus one power (worth two) would overpay; one basic is kept.
	assert.Equal(t, Of(Basic, Power), h)
}

func TestConsume_WithoutMasteryPowerIsOne(t *testing.T) {
	h := Of(Basic, Power, Power)
	_, err := h.Consume(basicCost(3, 0), false, true)
	require.NoError(t, err)
	assert.Equal(t, Empty(), h)
}

func TestConsume_InsufficientLeavesHoldingUntouched(t *testing.T) {
	h := Of(Basic, Power)
	before := h
	_, err := h.Consume(basicCost(4, 0), true, true)
	require.ErrorIs(t, err, ErrInsufficientPips)
	assert.Equal(t, before, h)

	_, err = h.Consume(basicCost(0, 2), true, true)
	require.ErrorIs(t, err, ErrInsufficientPips)
	assert.Equal(t, before, h)
}

func TestConsume_DryRun(t *testing.T) {
	h := Of(Basic, Basic)
	value, err := h.Consume(basicCost(2, 0), false, false)
	require.NoError(t, err)
	assert.Equal(t, 2, value)
	assert.Equal(t, Of(Basic, Basic), h)
}

func TestConsume_SchoolPipsOnlyPayTheirSchool(t *testing.T) {
	var c Cost
	c.Pips[Fire] = 1
	h := Of(Ice, Basic)
	_, err := h.Consume(c, true, false)
	require.ErrorIs(t, err, ErrInsufficientPips)

	h = Of(Fire, Basic)
	_, err = h.Consume(c, true, true)
	require.NoError(t, err)
	assert.Equal(t, Of(Basic), h)
}

func TestConsume_SchoolPipsPayTheirSpell(t *testing.T) {
	tests := []struct {
		name    string
		held    Holding
		basic   int
		school  Pip
		mastery bool
		left    Holding
		wantErr bool
	}{
		{name: "mastery pays two each", held: Of(Fire, Fire, Fire), basic: 2, school: Fire, mastery: true, left: Of(Fire, Fire)},
		{name: "plain pays one each", held: Of(Fire, Fire, Fire), basic: 2, school: Fire, left: Of(Fire)},
		{name: "power before school", held: Of(Power, Fire), basic: 2, school: Fire, mastery: true, left: Of(Fire)},
		{name: "basic first", held: Of(Basic, Fire), basic: 1, school: Fire, mastery: true, left: Of(Fire)},
		{name: "other school cannot pay", held: Of(Ice, Ice), basic: 1, school: Fire, mastery: true, wantErr: true},
		{name: "no school cannot pay", held: Of(Fire), basic: 1, school: None, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := basicCost(tt.basic, 0)
			c.School = tt.school
			h := tt.held
			value, err := h.Consume(c, tt.mastery, true)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInsufficientPips)
				assert.Equal(t, tt.held, h)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.basic, value)
			assert.Equal(t, tt.left, h)
		})
	}
}

func TestConsume_SchoolSlotBeforeGeneric(t *testing.T) {
	c := basicCost(2, 0)
	c.Pips[Fire] = 1
	c.School = Fire
	h := Of(Fire, Fire)
	_, err := h.Consume(c, true, true)
	require.NoError(t, err)
	assert.Equal(t, Empty(), h)

	h = Of(Fire)
	_, err = h.Consume(c, true, false)
	assert.ErrorIs(t, err, ErrInsufficientPips)
}

func TestConsume_XDrainsEverything(t *testing.T) {
	c := basicCost(1, 0)
	c.X = true
	h := Of(Basic, Basic, Power, Storm)
	value, err := h.Consume(c, true, true)
	require.NoError(t, err)
	assert.Equal(t, 4, value)
	assert.Equal(t, Of(Storm), h)
}

func TestConsume_ValueWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		var pips []Pip
		for j := 0; j < Capacity; j++ {
			switch r := rng.Intn(8); {
			case r < 2:
				pips = append(pips, Power)
			case r < 4:
				pips = append(pips, Storm)
			case r < 7:
				pips = append(pips, Basic)
			}
		}
		h := Of(pips...)
		held, _ := h.Count()
		cost := basicCost(rng.Intn(held+1), 0)
		cost.School = Storm

		value, err := h.Consume(cost, true, true)
		require.NoError(t, err, "holding %v cost %d", pips, cost.Pips[Basic])
		assert.GreaterOrEqual(t, value, cost.Pips[Basic])
		assert.LessOrEqual(t, value, cost.Total())
		assert.True(t, h.Sorted())
	}
}

func TestParse(t *testing.T) {
	p, err := ParsePip("Storm")
	require.NoError(t, err)
	assert.Equal(t, Storm, p)

	p, err = ParsePip("1")
	require.NoError(t, err)
	assert.Equal(t, Power, p)

	_, err = ParsePip("sparkle")
	assert.Error(t, err)

	s, err := ParseSchool("balance")
	require.NoError(t, err)
	assert.Equal(t, SchoolBalance, s)
	assert.Equal(t, Balance, SchoolPip(s))
	assert.Equal(t, None, SchoolPip(SchoolShadow))
}
