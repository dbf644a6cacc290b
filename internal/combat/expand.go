package combat

import (
	"fmt"
	"math"
	"strconv"

	"battlematus/internal/config"
	"battlematus/internal/pip"
)

// Node labels the resolver looks for when journaling a path.
const (
	labelFizzle = "fizzle"
	labelDispel = "dispel"
	labelHit    = "hit"
)

// actionPlan is a spell action with its payload read and checked.
type actionPlan struct {
	config.Action
	school  pip.School
	values  []float64
	rounds  int
	ratio   float64
	mod     config.Modifier
	status  int
	length  int
	pips    []pip.Pip
	shadows int
}

// alt is one weighted continuation: a chain of nodes from head to tail.
type alt struct {
	head, tail *Node
	weight     float64
}

type stage func() []alt

func single(n *Node) []alt { return []alt{{head: n, tail: n, weight: 1}} }

func chain(nodes ...*Node) (head, tail *Node) {
	var live []*Node
	for _, n := range nodes {
		if n != nil {
			live = append(live, n)
		}
	}
	for i := 1; i < len(live); i++ {
		live[i-1].add(live[i], 1)
	}
	return live[0], live[len(live)-1]
}

func grow(parent *Node, stages []stage) {
	if len(stages) == 0 {
		return
	}
	for _, a := range stages[0]() {
		parent.add(a.head, a.weight)
		grow(a.tail, stages[1:])
	}
}

// expand builds the outcome tree of a cast: dispel, or fizzle against hit,
// and under a hit one stage per action. Nothing is applied here, so a bad
// payload aborts the cast before any state changes.
func (s *Simulation) expand(id string, m *Member, stats *config.Stats, spell *config.Spell, targets [][]Position) (*Node, error) {
	plans := make([]actionPlan, len(spell.Actions))
	for i, a := range spell.Actions {
		p, err := readAction(spell, a)
		if err != nil {
			return nil, err
		}
		plans[i] = p
	}

	master := mastery(stats, spell.School)
	pay := Delta{Kind: DeltaPayPips, Member: id, Spell: spell.ID, Cost: spell.Cost(), Mastery: master}
	root := newNode(PhaseCast, spell.ID)

	if j, ok := firstModifier(m.Charms, config.ModDispel, spell.School); ok {
		n := newNode(PhaseCast, labelDispel, pay, Delta{Kind: DeltaConsumeCharm, Member: id, Mod: m.Charms[j]})
		s.reinsert(n, id, spell.ID, m, stats)
		root.add(n, 1)
		return root, nil
	}

	rate := spell.Rate
	if spell.School.Valid() {
		rate += stats.Accuracy[spell.School]
	}
	var accuracy []Delta
	if j, ok := firstModifier(m.Charms, config.ModAccuracy, spell.School); ok {
		rate += m.Charms[j].Value
		accuracy = append(accuracy, Delta{Kind: DeltaConsumeCharm, Member: id, Mod: m.Charms[j]})
	}
	hit := math.Min(math.Max(rate, 0), 1)

	if hit < 1 {
		n := newNode(PhaseCast, labelFizzle, accuracy...)
		s.reinsert(n, id, spell.ID, m, stats)
		root.add(n, 1-hit)
	}
	if hit > 0 {
		xValue, _ := m.Pips.Consume(spell.Cost(), master, false)
		n := newNode(PhaseCast, labelHit, append([]Delta{pay}, accuracy...)...)
		b := &builder{sim: s, caster: id, member: m, stats: stats, spell: spell, xValue: xValue}
		var stages []stage
		for i, p := range plans {
			stages = append(stages, b.stages(p, targets[i])...)
		}
		grow(n, stages)
		root.add(n, hit)
	}
	return root, nil
}

// reinsert branches a fizzle into every deck position a player's card can
// return to, each equally likely.
func (s *Simulation) reinsert(n *Node, id, spell string, m *Member, stats *config.Stats) {
	if !stats.IsPlayer() {
		return
	}
	slots := len(m.Deck) + 1
	for i := 0; i < slots; i++ {
		n.add(newNode(PhaseCast, "reinsert "+strconv.Itoa(i), Delta{Kind: DeltaReinsert, Member: id, Spell: spell, Index: i}), 1/float64(slots))
	}
}

func firstModifier(mods []config.Modifier, t config.ModType, school pip.School) (int, bool) {
	for i, m := range mods {
		if m.Type == t && m.Matches(school) {
			return i, true
		}
	}
	return 0, false
}

// builder turns action plans into tree stages for one cast. It tracks which
// charms and wards the cast has already claimed so each is consumed once.
type builder struct {
	sim    *Simulation
	caster string
	member *Member
	stats  *config.Stats
	spell  *config.Spell
	xValue int

	outgoing    *config.Modifier
	outgoingSet bool
	healCharm   *config.Modifier
	healSet     bool
	wards       map[string]wardSet
}

type wardSet struct {
	mult, absorb *config.Modifier
	capValue     float64
	capped       bool
}

func (b *builder) stages(p actionPlan, targets []Position) []stage {
	ids := make([]string, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, b.sim.State.Position[t])
	}

	switch p.Kind {
	case config.ActionDamage, config.ActionLifesteal:
		return []stage{b.damage(p, ids)}
	case config.ActionHeal:
		return []stage{b.heal(p, ids)}
	case config.ActionRevive:
		return []stage{b.revive(p, ids)}
	case config.ActionManipulate:
		var out []stage
		for _, id := range ids {
			out = append(out, b.manipulate(p, id))
		}
		return out
	case config.ActionCharm, config.ActionWard, config.ActionAura, config.ActionGlobal, config.ActionModify:
		return []stage{b.effect(p, ids)}
	}
	panic(fmt.Sprintf("combat: unknown action kind %d", int(p.Kind)))
}

// buckets groups equal roll values so each distinct value is one branch.
func buckets(values []float64) ([]float64, []float64) {
	var keys []float64
	counts := map[float64]int{}
	for _, v := range values {
		if counts[v] == 0 {
			keys = append(keys, v)
		}
		counts[v]++
	}
	weights := make([]float64, len(keys))
	for i, k := range keys {
		weights[i] = float64(counts[k]) / float64(len(values))
	}
	return keys, weights
}

func (b *builder) rolls(p actionPlan) []float64 {
	if p.Kind == config.ActionDamage && b.spell.X && len(p.values) == 1 {
		return []float64{p.values[0] * float64(b.xValue)}
	}
	return p.values
}

func (b *builder) damage(p actionPlan, ids []string) stage {
	// claim modifiers now so every branch consumes the same ones
	var claimCharm []Delta
	if !b.outgoingSet {
		b.outgoingSet = true
		if j, ok := firstModifier(b.member.Charms, config.ModDamageMult, p.school); ok {
			c := b.member.Charms[j]
			b.outgoing = &c
			claimCharm = append(claimCharm, Delta{Kind: DeltaConsumeCharm, Member: b.caster, Mod: c})
		}
	}
	var claimWards []Delta
	for _, id := range ids {
		claimWards = append(claimWards, b.claimWards(id, p.school)...)
	}

	values, weights := buckets(b.rolls(p))
	return func() []alt {
		var out []alt
		for i, v := range values {
			roll := newNode(PhaseAction, "roll "+strconv.FormatFloat(v, 'f', -1, 64))
			var outNode, inNode *Node
			if len(claimCharm) > 0 {
				outNode = newNode(PhaseOutgoing, "charms", claimCharm...)
			}
			// critical and block are not rolled yet
			block := newNode(PhaseBlock, "unblocked")
			if len(claimWards) > 0 {
				inNode = newNode(PhaseIncoming, "wards", claimWards...)
			}
			effect := newNode(PhaseEffect, p.Kind.String())
			dealt := 0
			for _, id := range ids {
				dmg := b.incoming(id, p.school, b.outgoingDamage(v, p.school))
				dealt += dmg
				if p.rounds > 0 {
					effect.Deltas = append(effect.Deltas, overTime(id, dmg, p.rounds)...)
					continue
				}
				effect.Deltas = append(effect.Deltas, Delta{Kind: DeltaHealth, Member: id, Amount: -dmg})
			}
			if p.Kind == config.ActionLifesteal {
				drained := int(math.Floor(float64(dealt) * p.ratio))
				if p.rounds > 0 {
					effect.Deltas = append(effect.Deltas, overTime(b.caster, -drained, p.rounds)...)
				} else {
					effect.Deltas = append(effect.Deltas, Delta{Kind: DeltaHealth, Member: b.caster, Amount: drained, Cap: b.stats.Health})
				}
			}
			head, tail := chain(roll, outNode, block, inNode, effect)
			out = append(out, alt{head: head, tail: tail, weight: weights[i]})
		}
		return out
	}
}

// outgoingDamage is the caster side of the damage formula. With no bonuses
// it is floor(roll * (1 + damage multiplier)).
func (b *builder) outgoingDamage(roll float64, school pip.School) float64 {
	var pair config.Pair
	if school.Valid() {
		pair = b.stats.Damage[school]
	}
	dmg := math.Floor(roll*(1+pair.Mult())) + pair.Flat()
	if b.outgoing != nil {
		dmg *= 1 + b.outgoing.Value
	}
	if a := b.member.Aura; a != nil && a.Type == config.ModDamageMult && a.Matches(school) {
		dmg *= 1 + a.Value
	}
	if g := b.sim.State.Bubble; g != nil && g.Type == config.ModDamageMult && g.Matches(school) {
		dmg *= 1 + g.Value
	}
	return dmg
}

func (b *builder) claimWards(id string, school pip.School) []Delta {
	if b.wards == nil {
		b.wards = map[string]wardSet{}
	}
	if _, ok := b.wards[id]; ok {
		return nil
	}
	var ws wardSet
	var claims []Delta
	target := b.sim.State.Member(id)
	if j, ok := firstModifier(target.Wards, config.ModDamageMult, school); ok {
		w := target.Wards[j]
		ws.mult = &w
		claims = append(claims, Delta{Kind: DeltaConsumeWard, Member: id, Mod: w})
	}
	if j, ok := firstModifier(target.Wards, config.ModAbsorb, school); ok {
		w := target.Wards[j]
		ws.absorb = &w
		claims = append(claims, Delta{Kind: DeltaConsumeWard, Member: id, Mod: w})
	}
	if j, ok := firstModifier(target.Wards, config.ModDamageCap, school); ok {
		ws.capValue = target.Wards[j].Value
		ws.capped = true
	}
	b.wards[id] = ws
	return claims
}

// incoming applies the target side: wards, resist less pierce, flat resist,
// absorbs and caps.
func (b *builder) incoming(id string, school pip.School, dmg float64) int {
	ws := b.wards[id]
	if ws.mult != nil {
		dmg *= 1 + ws.mult.Value
	}
	if school.Valid() {
		ts := b.sim.Library.Stats(id)
		resist := math.Max(0, ts.Resist[school].Mult()-b.stats.Pierce[school])
		dmg = dmg*(1-resist) - ts.Resist[school].Flat()
	}
	if ws.absorb != nil {
		dmg -= ws.absorb.Value
	}
	if ws.capped {
		dmg = math.Min(dmg, ws.capValue)
	}
	return int(math.Max(0, math.Floor(dmg)))
}

func (b *builder) heal(p actionPlan, ids []string) stage {
	var claim []Delta
	if !b.healSet {
		b.healSet = true
		if j, ok := firstModifier(b.member.Charms, config.ModHealingMult, p.school); ok {
			c := b.member.Charms[j]
			b.healCharm = &c
			claim = append(claim, Delta{Kind: DeltaConsumeCharm, Member: b.caster, Mod: c})
		}
	}
	values, weights := buckets(p.values)
	return func() []alt {
		var out []alt
		for i, v := range values {
			roll := newNode(PhaseAction, "roll "+strconv.FormatFloat(v, 'f', -1, 64))
			var outNode *Node
			if len(claim) > 0 {
				outNode = newNode(PhaseOutgoing, "charms", claim...)
			}
			effect := newNode(PhaseEffect, "heal")
			for _, id := range ids {
				ts := b.sim.Library.Stats(id)
				amount := v * (1 + b.stats.Healing[config.HealingOut]) * (1 + ts.Healing[config.HealingIn])
				if b.healCharm != nil {
					amount *= 1 + b.healCharm.Value
				}
				n := int(math.Floor(amount))
				if p.rounds > 0 {
					effect.Deltas = append(effect.Deltas, overTime(id, -n, p.rounds)...)
					continue
				}
				effect.Deltas = append(effect.Deltas, Delta{Kind: DeltaHealth, Member: id, Amount: n, Cap: ts.Health})
			}
			head, tail := chain(roll, outNode, effect)
			out = append(out, alt{head: head, tail: tail, weight: weights[i]})
		}
		return out
	}
}

// overTime spreads a health loss (negative for healing) over rounds turns
// as tokens. Whatever does not divide evenly lands on the first tick.
func overTime(id string, total, rounds int) []Delta {
	per := total / rounds
	var out []Delta
	if per != 0 {
		out = append(out, Delta{Kind: DeltaToken, Member: id, Token: Token{Rounds: rounds, Magnitude: per}})
	}
	if rest := total - per*rounds; rest != 0 {
		out = append(out, Delta{Kind: DeltaToken, Member: id, Token: Token{Rounds: 1, Magnitude: rest}})
	}
	return out
}

// revive brings defeated members back with the rolled health.
func (b *builder) revive(p actionPlan, ids []string) stage {
	values, weights := buckets(p.values)
	return func() []alt {
		var out []alt
		for i, v := range values {
			n := newNode(PhaseEffect, "revive "+strconv.FormatFloat(v, 'f', -1, 64))
			for _, id := range ids {
				health := min(int(v), b.sim.Library.Stats(id).Health)
				n.Deltas = append(n.Deltas, Delta{Kind: DeltaRevive, Member: id, Amount: health})
			}
			out = append(out, alt{head: n, tail: n, weight: weights[i]})
		}
		return out
	}
}

// manipulate sets a status timer on one target. Stuns may be resisted.
func (b *builder) manipulate(p actionPlan, id string) stage {
	resist := 0.0
	if p.status == Stunned {
		resist = math.Min(math.Max(b.sim.Library.Stats(id).StunResist, 0), 1)
	}
	return func() []alt {
		var out []alt
		if resist < 1 {
			n := newNode(PhaseEffect, statusNames[p.status], Delta{Kind: DeltaStatus, Member: id, Index: p.status, Amount: p.length})
			out = append(out, alt{head: n, tail: n, weight: 1 - resist})
		}
		if resist > 0 {
			n := newNode(PhaseEffect, "resisted")
			out = append(out, alt{head: n, tail: n, weight: resist})
		}
		return out
	}
}

func (b *builder) effect(p actionPlan, ids []string) stage {
	return func() []alt {
		n := newNode(PhaseEffect, p.Kind.String())
		if p.Kind == config.ActionGlobal {
			n.Deltas = append(n.Deltas, Delta{Kind: DeltaSetGlobal, Mod: p.mod})
			return single(n)
		}
		for _, id := range ids {
			switch p.Kind {
			case config.ActionCharm:
				n.Deltas = append(n.Deltas, Delta{Kind: DeltaAddCharm, Member: id, Mod: p.mod})
			case config.ActionWard:
				n.Deltas = append(n.Deltas, Delta{Kind: DeltaAddWard, Member: id, Mod: p.mod})
			case config.ActionAura:
				n.Deltas = append(n.Deltas, Delta{Kind: DeltaSetAura, Member: id, Mod: p.mod})
			case config.ActionModify:
				if len(p.pips) > 0 {
					n.Deltas = append(n.Deltas, Delta{Kind: DeltaGainPips, Member: id, Pips: p.pips})
				}
				if p.shadows != 0 {
					n.Deltas = append(n.Deltas, Delta{Kind: DeltaShadow, Member: id, Amount: p.shadows})
				}
			}
		}
		return single(n)
	}
}
