package agent

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"battlematus/internal/combat"
	"battlematus/internal/config"
)

// Personality tunes the tactician's scoring.
type Personality struct {
	Aggression       float64 `yaml:"aggression"`
	Cautious         float64 `yaml:"cautious"`
	LowHealthPercent int     `yaml:"low_health_percent"`
}

func DefaultPersonality() Personality {
	return Personality{Aggression: 0.5, Cautious: 0.5, LowHealthPercent: 30}
}

// LoadPersonality reads a personality file on top of the defaults.
func LoadPersonality(path string) (Personality, error) {
	p := DefaultPersonality()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("personality %s: %w", path, err)
	}
	return p, nil
}

// Tactician heals when low and otherwise casts the best scored card.
//
//	Selector
//	├── Sequence: low health → heal
//	└── best scored cast
type Tactician struct {
	arg         string
	personality Personality
	root        BTNode
}

func NewTactician(arg, _ string) (combat.Agent, error) {
	p := DefaultPersonality()
	if arg != "" {
		var err error
		if p, err = LoadPersonality(arg); err != nil {
			return nil, err
		}
	}
	root := &Selector{Children: []BTNode{
		&Sequence{Children: []BTNode{&CondNode{Fn: condLowHealth}, &ActionNode{Fn: doHeal}}},
		&ActionNode{Fn: doBest},
	}}
	return &Tactician{arg: arg, personality: p, root: root}, nil
}

func (t *Tactician) Name() string { return spec("tactician", t.arg) }

func (t *Tactician) Select(v combat.View) combat.Choice {
	bb := &Blackboard{View: v, Personality: t.personality, Choice: combat.Pass()}
	_ = t.root.Tick(bb)
	return bb.Choice
}

// Decision is a scored candidate choice.
type Decision struct {
	Choice combat.Choice
	Score  float64
	Valid  bool
}

func better(a, c Decision) Decision {
	if c.Valid && (!a.Valid || c.Score > a.Score) {
		return c
	}
	return a
}

func isLowHealth(health, maxHealth, pct int) float64 {
	if health*100 <= maxHealth*pct {
		return 1
	}
	return 0
}

func condLowHealth(bb *Blackboard) bool {
	v := bb.View
	return isLowHealth(v.Self.Health, v.Stats.Health, bb.Personality.LowHealthPercent) == 1
}

// hitChance is the cast success chance before charms.
func hitChance(v combat.View, sp *config.Spell) float64 {
	rate := sp.Rate
	if sp.School.Valid() {
		rate += v.Stats.Accuracy[sp.School]
	}
	return math.Min(math.Max(rate, 0), 1)
}

func scoreDamage(p Personality, expected float64, targetHealth int, low float64) float64 {
	kill := 0.0
	if float64(targetHealth) <= expected {
		kill = 1
	}
	return (100*kill+expected/10)*(1+0.15*p.Aggression) - 10*p.Cautious*low
}

func scoreHeal(p Personality, expected float64, missing int) float64 {
	useful := math.Min(expected, float64(missing))
	return useful / 10 * (1 + 0.15*p.Cautious)
}

func memberHealth(v combat.View, seat combat.Position) (health, maxHealth int) {
	id, m, _ := v.State.Occupant(seat)
	return m.Health, v.Library.Stats(id).Health
}

// doHeal picks the strongest castable heal for the most hurt ally.
func doHeal(bb *Blackboard) bool {
	v := bb.View
	var best Decision
	for i := range v.Hand() {
		if !v.Castable(i) {
			continue
		}
		sp, _ := v.Spell(i)
		_, heal := combat.Estimate(sp, pipValue(v))
		if heal <= 0 {
			continue
		}
		expected := heal * hitChance(v, sp)
		switch {
		case sp.PrimaryTarget() == config.TargetFriend:
			for _, seat := range v.Allies() {
				h, hmax := memberHealth(v, seat)
				best = better(best, Decision{Choice: combat.Choice{Spell: i, Targets: []combat.Position{seat}}, Score: scoreHeal(bb.Personality, expected, hmax-h), Valid: true})
			}
		case sp.Reaches(config.TargetAllFriends):
			score := 0.0
			for _, seat := range v.Allies() {
				h, hmax := memberHealth(v, seat)
				score += scoreHeal(bb.Personality, expected, hmax-h)
			}
			best = better(best, Decision{Choice: combat.Choice{Spell: i}, Score: score, Valid: true})
		case sp.PrimaryTarget() == config.TargetSelf && sp.Reaches(config.TargetSelf):
			best = better(best, Decision{Choice: combat.Choice{Spell: i}, Score: scoreHeal(bb.Personality, expected, v.Stats.Health-v.Self.Health), Valid: true})
		}
	}
	if !best.Valid || best.Score <= 0 {
		return false
	}
	bb.Choice = best.Choice
	bb.Decided = true
	return true
}

// doBest scores every castable card on every legal target and takes the
// best. Non-damage cards get a small flat score so a cautious tactician
// prepares instead of passing.
func doBest(bb *Blackboard) bool {
	v := bb.View
	p := bb.Personality
	low := isLowHealth(v.Self.Health, v.Stats.Health, p.LowHealthPercent)
	var best Decision
	for i := range v.Hand() {
		if !v.Castable(i) {
			continue
		}
		sp, _ := v.Spell(i)
		dmg, _ := combat.Estimate(sp, pipValue(v))
		expected := dmg * hitChance(v, sp)

		switch target := sp.PrimaryTarget(); {
		case dmg > 0 && target == config.TargetEnemy:
			for _, seat := range v.Opponents() {
				h, _ := memberHealth(v, seat)
				best = better(best, Decision{Choice: combat.Choice{Spell: i, Targets: []combat.Position{seat}}, Score: scoreDamage(p, expected, h, low), Valid: true})
			}
		case dmg > 0 && sp.Reaches(config.TargetAllEnemies):
			score := 0.0
			for _, seat := range v.Opponents() {
				h, _ := memberHealth(v, seat)
				score += scoreDamage(p, expected, h, low)
			}
			best = better(best, Decision{Choice: combat.Choice{Spell: i}, Score: score, Valid: true})
		default:
			targets, ok := firstTargets(v, sp)
			if !ok {
				continue
			}
			best = better(best, Decision{Choice: combat.Choice{Spell: i, Targets: targets}, Score: 2 * (1 + p.Cautious - p.Aggression), Valid: true})
		}
	}
	if !best.Valid || best.Score <= 0 {
		return false
	}
	bb.Choice = best.Choice
	bb.Decided = true
	return true
}
