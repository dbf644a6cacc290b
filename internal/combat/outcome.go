package combat

import (
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"battlematus/internal/config"
	"battlematus/internal/pip"
)

// DeltaKind is the closed set of state changes an outcome branch carries.
type DeltaKind int

const (
	DeltaHealth DeltaKind = iota
	DeltaPayPips
	DeltaReinsert
	DeltaConsumeCharm
	DeltaConsumeWard
	DeltaAddCharm
	DeltaAddWard
	DeltaSetAura
	DeltaSetGlobal
	DeltaStatus
	DeltaGainPips
	DeltaShadow
	DeltaToken
	DeltaRevive
)

var deltaNames = []string{"health", "pay_pips", "reinsert", "consume_charm", "consume_ward", "add_charm", "add_ward", "set_aura", "set_global", "status", "gain_pips", "shadow", "token", "revive"}

func (k DeltaKind) String() string {
	if k < 0 || int(k) >= len(deltaNames) {
		return fmt.Sprintf("delta(%d)", int(k))
	}
	return deltaNames[k]
}

// Delta is one change to one member (or to the battle for globals).
type Delta struct {
	Kind   DeltaKind
	Member string

	// Amount is a health change (negative for damage), status rounds or a
	// shadow pip count. Cap bounds healing at max health.
	Amount int
	Cap    int
	Index  int

	Spell   string
	Mod     config.Modifier
	Pips    []pip.Pip
	Cost    pip.Cost
	Mastery bool
	Token   Token
}

// apply commits the delta and returns the realised amount: actual health
// change, or pip value paid.
func (d Delta) apply(st *State, overflow pip.Overflow) int {
	if d.Kind == DeltaSetGlobal {
		m := cloneModifier(d.Mod)
		st.Bubble = &m
		return 0
	}
	m := st.Member(d.Member)
	switch d.Kind {
	case DeltaHealth:
		before := m.Health
		next := before + d.Amount
		if d.Amount > 0 && d.Cap > 0 {
			next = min(next, max(d.Cap, before))
		}
		m.Health = max(0, next)
		return m.Health - before
	case DeltaPayPips:
		value, err := m.Pips.Consume(d.Cost, d.Mastery, true)
		if err != nil {
			panic(fmt.Sprintf("combat: %s cannot pay for %s after validation: %v", d.Member, d.Spell, err))
		}
		m.Shadows = max(0, m.Shadows-d.Cost.Shadow)
		return value
	case DeltaReinsert:
		i := min(max(d.Index, 0), len(m.Deck))
		m.Deck = slices.Insert(m.Deck, i, d.Spell)
	case DeltaConsumeCharm:
		m.Charms = removeModifier(m.Charms, d.Mod)
	case DeltaConsumeWard:
		m.Wards = removeModifier(m.Wards, d.Mod)
	case DeltaAddCharm:
		m.Charms = append(m.Charms, cloneModifier(d.Mod))
	case DeltaAddWard:
		m.Wards = append(m.Wards, cloneModifier(d.Mod))
	case DeltaSetAura:
		a := cloneModifier(d.Mod)
		m.Aura = &a
	case DeltaStatus:
		m.Status[d.Index] = max(m.Status[d.Index], d.Amount)
	case DeltaGainPips:
		m.Pips.GainWith(overflow, d.Pips...)
	case DeltaShadow:
		m.Shadows = max(0, m.Shadows+d.Amount)
	case DeltaToken:
		m.Tokens = append(m.Tokens, d.Token)
	case DeltaRevive:
		if err := st.Revive(d.Member, d.Amount); err != nil {
			slog.Warn("revive skipped", "member", d.Member, "err", err)
			return 0
		}
		return d.Amount
	default:
		panic(fmt.Sprintf("combat: unknown delta kind %d", int(d.Kind)))
	}
	return 0
}

func removeModifier(mods []config.Modifier, target config.Modifier) []config.Modifier {
	for i, m := range mods {
		if sameModifier(m, target) {
			return slices.Delete(mods, i, i+1)
		}
	}
	return mods
}

func sameModifier(a, b config.Modifier) bool {
	return a.Source == b.Source && a.Type == b.Type && a.Value == b.Value && slices.Equal(a.Schools, b.Schools)
}

// Node is one point of an outcome tree. Children are the stochastic
// continuations and their weights sum to 1.
type Node struct {
	Phase    Phase
	Label    string
	Deltas   []Delta
	Children []Branch
}

// Branch is a weighted child of a Node.
type Branch struct {
	Node   *Node
	Weight float64
}

func newNode(phase Phase, label string, deltas ...Delta) *Node {
	return &Node{Phase: phase, Label: label, Deltas: deltas}
}

func (n *Node) add(child *Node, weight float64) {
	n.Children = append(n.Children, Branch{Node: child, Weight: weight})
}

// Select walks the children accumulating weight until it reaches variate
// and returns that child's index. A shortfall logs a warning and picks the
// first child.
func (n *Node) Select(variate float64) int {
	total := 0.0
	for i, c := range n.Children {
		total += c.Weight
		if total >= variate {
			return i
		}
	}
	slog.Warn("outcome weights sum below variate", "phase", n.Phase, "label", n.Label, "total", total, "variate", variate)
	return 0
}

// Sample draws one root-to-leaf path.
func (n *Node) Sample(rng *rand.Rand) []*Node {
	path := []*Node{n}
	for cur := n; len(cur.Children) > 0; {
		cur = cur.Children[cur.Select(rng.Float64())].Node
		path = append(path, cur)
	}
	return path
}

// Path is one complete outcome and its probability.
type Path struct {
	Nodes  []*Node
	Weight float64
}

// Leaves enumerates every root-to-leaf path.
func (n *Node) Leaves() []Path {
	var out []Path
	var walk func(cur *Node, prefix []*Node, w float64)
	walk = func(cur *Node, prefix []*Node, w float64) {
		prefix = append(slices.Clip(prefix), cur)
		if len(cur.Children) == 0 {
			out = append(out, Path{Nodes: prefix, Weight: w})
			return
		}
		for _, c := range cur.Children {
			walk(c.Node, prefix, w*c.Weight)
		}
	}
	walk(n, nil, 1)
	return out
}

// Tree pairs an outcome tree with the state it transforms. The tree works on
// its own copy; the source state is never touched.
type Tree struct {
	Root     *Node
	work     *State
	overflow pip.Overflow
}

// NewTree copies st and applies the root's deltas to the copy.
func NewTree(st *State, root *Node, overflow pip.Overflow) *Tree {
	t := &Tree{Root: root, work: st.Clone(), overflow: overflow}
	for _, d := range root.Deltas {
		d.apply(t.work, overflow)
	}
	return t
}

// Select picks a child of the current root.
func (t *Tree) Select(variate float64) int { return t.Root.Select(variate) }

// Apply commits the selected child's deltas to the working copy and makes
// it the new root, discarding its siblings.
func (t *Tree) Apply(selection int) *State {
	if selection < 0 || selection >= len(t.Root.Children) {
		panic(fmt.Sprintf("combat: outcome selection %d out of range (%d children)", selection, len(t.Root.Children)))
	}
	child := t.Root.Children[selection].Node
	for _, d := range child.Deltas {
		d.apply(t.work, t.overflow)
	}
	t.Root = child
	return t.work
}

// Done reports whether the current root is a leaf.
func (t *Tree) Done() bool { return len(t.Root.Children) == 0 }

// State is the working copy with every applied branch committed.
func (t *Tree) State() *State { return t.work }
