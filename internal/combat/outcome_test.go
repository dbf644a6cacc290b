package combat

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battlematus/internal/config"
	"battlematus/internal/pip"
)

func weighted(weights ...float64) *Node {
	root := newNode(PhaseCast, "root")
	for _, w := range weights {
		root.add(newNode(PhaseEffect, "child"), w)
	}
	return root
}

// --- Node Tests ---

func TestNode_Select(t *testing.T) {
	root := weighted(0.25, 0.5, 0.25)
	tests := []struct {
		variate float64
		want    int
	}{
		{0, 0},
		{0.25, 0},
		{0.26, 1},
		{0.75, 1},
		{0.9, 2},
		{1, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, root.Select(tt.variate), "variate %v", tt.variate)
	}
}

func TestNode_SelectShortfallPicksFirst(t *testing.T) {
	root := weighted(0.2, 0.3)
	assert.Equal(t, 0, root.Select(0.9))
}

func TestNode_LeavesSumToOne(t *testing.T) {
	sim, _ := duel(t, 1, strike("storm.bolt", 0.7, 10, 20, 20, 30))
	_, err := sim.Advance()
	require.NoError(t, err)

	caster := sim.State.Members["caster"]
	caster.Deck = []string{"a", "b"}
	stats := sim.Library.Stats("caster")
	sp, ok := sim.Library.Spell("storm.bolt")
	require.True(t, ok)

	root, err := sim.expand("caster", caster, stats, sp, [][]Position{{Blade}})
	require.NoError(t, err)

	leaves := root.Leaves()
	// three reinsert slots on a fizzle and three distinct rolls on a hit
	assert.Len(t, leaves, 6)
	total := 0.0
	for _, p := range leaves {
		total += p.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	assert.Equal(t, labelFizzle, root.Children[0].Node.Label)
	assert.InDelta(t, 0.3, root.Children[0].Weight, 1e-9)
	hit := root.Children[1].Node
	assert.Equal(t, labelHit, hit.Label)
	require.Len(t, hit.Children, 3)
	assert.InDelta(t, 0.5, hit.Children[1].Weight, 1e-9, "duplicate rolls share a branch")
}

func TestNode_DamagePathsFollowPhaseOrder(t *testing.T) {
	sim, _ := duel(t, 1, strike("storm.bolt", 1.0, 40))
	_, err := sim.Advance()
	require.NoError(t, err)
	caster := sim.State.Members["caster"]
	caster.Charms = []config.Modifier{{Source: "storm.blade", Type: config.ModDamageMult, Value: 0.5}}
	sim.State.Members["target"].Wards = []config.Modifier{{Source: "ice.tower", Type: config.ModDamageMult, Value: -0.5}}
	sp, ok := sim.Library.Spell("storm.bolt")
	require.True(t, ok)

	root, err := sim.expand("caster", caster, sim.Library.Stats("caster"), sp, [][]Position{{Blade}})
	require.NoError(t, err)
	leaves := root.Leaves()
	require.Len(t, leaves, 1)

	var phases []Phase
	for _, n := range leaves[0].Nodes {
		phases = append(phases, n.Phase)
	}
	assert.Equal(t, []Phase{PhaseCast, PhaseCast, PhaseAction, PhaseOutgoing, PhaseBlock, PhaseIncoming, PhaseEffect}, phases)
	assert.True(t, slices.IsSorted(phases))
}

func TestNode_SampleFollowsChildren(t *testing.T) {
	sim, _ := duel(t, 1, strike("storm.bolt", 1.0, 40))
	root := weighted(1)
	root.Children[0].Node.add(newNode(PhaseEffect, "leaf"), 1)
	path := root.Sample(sim.Rng)
	require.Len(t, path, 3)
	assert.Equal(t, "leaf", path[2].Label)
}

// --- Tree Tests ---

func TestTree_ApplyLeavesSourceUntouched(t *testing.T) {
	sim, _ := duel(t, 1, strike("storm.bolt", 1.0, 40))
	st := sim.State

	root := newNode(PhaseCast, "root", Delta{Kind: DeltaShadow, Member: "caster", Amount: 1})
	hit := newNode(PhaseEffect, "hit", Delta{Kind: DeltaHealth, Member: "target", Amount: -40})
	miss := newNode(PhaseEffect, "miss")
	root.add(hit, 0.5)
	root.add(miss, 0.5)

	tree := NewTree(st, root, pip.OverflowDrop)
	assert.Equal(t, 1, tree.State().Members["caster"].Shadows)
	assert.False(t, tree.Done())

	sel := tree.Select(0.1)
	require.Equal(t, 0, sel)
	got := tree.Apply(sel)
	assert.True(t, tree.Done())
	assert.Equal(t, 460, got.Members["target"].Health)

	assert.Equal(t, 500, st.Members["target"].Health)
	assert.Zero(t, st.Members["caster"].Shadows)
	assert.Panics(t, func() { tree.Apply(0) })
}

// --- Delta Tests ---

func TestDelta_Apply(t *testing.T) {
	sim, _ := duel(t, 1, strike("storm.bolt", 1.0, 40))
	st := sim.State
	target := st.Members["target"]

	tests := []struct {
		name  string
		delta Delta
		want  int
		check func(t *testing.T)
	}{
		{
			name:  "damage floors at zero",
			delta: Delta{Kind: DeltaHealth, Member: "target", Amount: -900},
			want:  -500,
			check: func(t *testing.T) { assert.Zero(t, target.Health) },
		},
		{
			name:  "heal is capped",
			delta: Delta{Kind: DeltaHealth, Member: "target", Amount: 900, Cap: 500},
			want:  500,
			check: func(t *testing.T) { assert.Equal(t, 500, target.Health) },
		},
		{
			name:  "status keeps the longer timer",
			delta: Delta{Kind: DeltaStatus, Member: "target", Index: Stunned, Amount: 2},
			check: func(t *testing.T) { assert.Equal(t, 2, target.Status[Stunned]) },
		},
		{
			name:  "shorter status does not shorten",
			delta: Delta{Kind: DeltaStatus, Member: "target", Index: Stunned, Amount: 1},
			check: func(t *testing.T) { assert.Equal(t, 2, target.Status[Stunned]) },
		},
		{
			name:  "gain pips",
			delta: Delta{Kind: DeltaGainPips, Member: "target", Pips: []pip.Pip{pip.Power, pip.Fire}},
			check: func(t *testing.T) { assert.Equal(t, 2, target.Pips.Len()) },
		},
		{
			name:  "shadows never go negative",
			delta: Delta{Kind: DeltaShadow, Member: "target", Amount: -3},
			check: func(t *testing.T) { assert.Zero(t, target.Shadows) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.delta.apply(st, pip.OverflowDrop))
			tt.check(t)
		})
	}
}

func TestDelta_PayPipsPanicsWhenUnaffordable(t *testing.T) {
	sim, _ := duel(t, 1, strike("storm.bolt", 1.0, 40))
	d := Delta{Kind: DeltaPayPips, Member: "caster", Spell: "x", Cost: pip.Cost{Pips: basicCost(6)}}
	assert.Panics(t, func() { d.apply(sim.State, pip.OverflowDrop) })
}
