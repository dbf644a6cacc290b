package pip

import (
	"errors"
	"fmt"
)

// Capacity is the number of slots in a holding.
const Capacity = 7

// ErrInsufficientPips is returned by Consume when the holding cannot cover a cost.
var ErrInsufficientPips = errors.New("insufficient pips")

// Overflow selects what happens to pips gained while the holding is full.
type Overflow int

const (
	// OverflowDrop discards pips beyond capacity.
	OverflowDrop Overflow = iota
	// OverflowPromote turns the lowest basic pip into a power pip for every
	// non-basic pip gained past capacity. Basic overflow is still dropped.
	OverflowPromote
)

// ParseOverflow maps a settings value to an Overflow policy.
func ParseOverflow(s string) (Overflow, error) {
	switch s {
	case "", "drop":
		return OverflowDrop, nil
	case "promote":
		return OverflowPromote, nil
	}
	return OverflowDrop, fmt.Errorf("unknown overflow policy %q", s)
}

func (o Overflow) String() string {
	if o == OverflowPromote {
		return "promote"
	}
	return "drop"
}

// Cost is the pip price of a spell. Pips is indexed by Pip: the Basic entry
// may be paid by basic, power or School pips, the Power entry only by power
// pips, and each school entry only by that school's pips. School is the
// spell's school pip, None for schools without one. Shadow is carried for
// the member level check; Holding.Consume ignores it.
type Cost struct {
	Pips   [CostSlots]int
	School Pip
	Shadow int
	X      bool
}

// Total is the stated pip value of the cost.
func (c Cost) Total() int {
	total := 0
	for _, n := range c.Pips {
		total += n
	}
	return total
}

// Holding is a member's pip holding. It is always sorted by precedence with
// None slots trailing.
type Holding [Capacity]Pip

// Empty returns a holding with every slot set to None.
func Empty() Holding {
	var h Holding
	for i := range h {
		h[i] = None
	}
	return h
}

// Of builds a sorted holding from pips, dropping anything past capacity.
func Of(pips ...Pip) Holding {
	h := Empty()
	h.Gain(pips...)
	return h
}

func (h *Holding) counts() [Kinds]int {
	var n [Kinds]int
	for _, p := range h {
		if !p.Valid() {
			panic(fmt.Sprintf("pip: invalid pip value %d in holding", int(p)))
		}
		n[p]++
	}
	return n
}

func (h *Holding) fill(n [Kinds]int) {
	i := 0
	for kind := 0; kind < Kinds && i < Capacity; kind++ {
		for ; n[kind] > 0 && i < Capacity; n[kind]-- {
			h[i] = Pip(kind)
			i++
		}
	}
	for ; i < Capacity; i++ {
		h[i] = None
	}
}

// Sort orders the holding by precedence using a counting sort.
func (h *Holding) Sort() {
	h.fill(h.counts())
}

// Sorted reports whether the holding satisfies the ordering invariant.
func (h *Holding) Sorted() bool {
	for i := 1; i < Capacity; i++ {
		if h[i] < h[i-1] {
			return false
		}
	}
	return true
}

// Len is the number of real (non-None) pips held.
func (h *Holding) Len() int {
	n := 0
	for _, p := range h {
		if p != None {
			n++
		}
	}
	return n
}

// Gain adds pips with the drop overflow policy.
func (h *Holding) Gain(incoming ...Pip) {
	h.GainWith(OverflowDrop, incoming...)
}

// GainWith adds pips after the existing ones up to capacity and re-sorts.
// It returns how many incoming pips did not fit.
func (h *Holding) GainWith(policy Overflow, incoming ...Pip) int {
	idx := h.Len()
	h.Sort()
	overflow := 0
	for _, p := range incoming {
		if p == None {
			continue
		}
		if idx < Capacity {
			h[idx] = p
			idx++
			continue
		}
		overflow++
		if policy == OverflowPromote && p != Basic {
			for i := range h {
				if h[i] == Basic {
					h[i] = Power
					break
				}
			}
		}
	}
	h.Sort()
	return overflow
}

// Count returns the casting potential with and without mastery, scanning
// until the first None slot.
func (h *Holding) Count() (mastery, plain int) {
	for _, p := range h {
		if p == None {
			break
		}
		if p == Basic {
			mastery++
			plain++
			continue
		}
		mastery += 2
		plain++
	}
	return mastery, plain
}

// Consume checks whether the holding can pay cost and, when apply is set,
// deducts the pips. Basic pips pay the generic part first and the remainder
// overflows into power pips, then pips of the cost's school, each worth two
// units with mastery. A basic pip is handed back when an odd remainder would
// otherwise overpay. The holding is left untouched on failure. The returned value is the pip value consumed:
// the stated total for fixed costs, plus everything drained for X costs.
func (h *Holding) Consume(cost Cost, mastery, apply bool) (int, error) {
	n := h.counts()
	for p := Balance; p <= Storm; p++ {
		if n[p] < cost.Pips[p] {
			return 0, fmt.Errorf("%w: need %d %s, have %d", ErrInsufficientPips, cost.Pips[p], p, n[p])
		}
	}
	powerNeed := cost.Pips[Power]
	if n[Power] < powerNeed {
		return 0, fmt.Errorf("%w: need %d power, have %d", ErrInsufficientPips, powerNeed, n[Power])
	}
	spare := n[Power] - powerNeed
	spareSchool := 0
	if cost.School.IsSchool() {
		spareSchool = n[cost.School] - cost.Pips[cost.School]
	}

	unit := 1
	if mastery {
		unit = 2
	}
	need := cost.Pips[Basic]
	useBasic := min(n[Basic], need)
	rem := need - useBasic
	useHigh := (rem + unit - 1) / unit
	if useHigh > spare+spareSchool {
		return 0, fmt.Errorf("%w: need %d power or school pips for %d remaining, have %d", ErrInsufficientPips, useHigh, rem, spare+spareSchool)
	}
	usePower := min(useHigh, spare)
	useSchool := useHigh - usePower
	if unit == 2 && rem%2 == 1 && useBasic > 0 {
		useBasic--
	}

	value := cost.Total()
	n[Basic] -= useBasic
	n[Power] -= powerNeed + usePower
	for p := Balance; p <= Storm; p++ {
		n[p] -= cost.Pips[p]
	}
	if useSchool > 0 {
		n[cost.School] -= useSchool
	}
	if cost.X {
		value += n[Basic] + n[Power]*unit
		n[Basic] = 0
		n[Power] = 0
	}
	if apply {
		h.fill(n)
	}
	return value, nil
}
