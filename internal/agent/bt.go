package agent

import "battlematus/internal/combat"

// BTStatus is the result of ticking a behaviour tree node.
type BTStatus int

const (
	BTSuccess BTStatus = iota
	BTFailure
)

type BTNode interface{ Tick(*Blackboard) BTStatus }

// Blackboard is the shared scratch space of one planning decision. Action
// nodes write the decision into Choice.
type Blackboard struct {
	View        combat.View
	Personality Personality
	Choice      combat.Choice
	Decided     bool
}

// Selector succeeds with the first child that succeeds.
type Selector struct{ Children []BTNode }

func (s *Selector) Tick(bb *Blackboard) BTStatus {
	for _, ch := range s.Children {
		if ch.Tick(bb) == BTSuccess {
			return BTSuccess
		}
	}
	return BTFailure
}

// Sequence succeeds when every child succeeds in order.
type Sequence struct{ Children []BTNode }

func (s *Sequence) Tick(bb *Blackboard) BTStatus {
	for _, ch := range s.Children {
		if ch.Tick(bb) != BTSuccess {
			return BTFailure
		}
	}
	return BTSuccess
}

type Condition func(*Blackboard) bool
type CondNode struct{ Fn Condition }

func (c *CondNode) Tick(bb *Blackboard) BTStatus {
	if c.Fn(bb) {
		return BTSuccess
	}
	return BTFailure
}

type Action func(*Blackboard) bool
type ActionNode struct{ Fn Action }

func (a *ActionNode) Tick(bb *Blackboard) BTStatus {
	if a.Fn(bb) {
		return BTSuccess
	}
	return BTFailure
}
