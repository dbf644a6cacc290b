package agent

import (
	"battlematus/internal/combat"
	"battlematus/internal/config"
)

// First casts the first castable hand card on the first living opponent, or
// on the first living ally for friendly spells.
type First struct{}

func (First) Name() string { return "first" }

func (First) Select(v combat.View) combat.Choice {
	for i := range v.Hand() {
		if !v.Castable(i) {
			continue
		}
		sp, _ := v.Spell(i)
		if targets, ok := firstTargets(v, sp); ok {
			return combat.Choice{Spell: i, Targets: targets}
		}
	}
	return combat.Pass()
}

// firstTargets fills the target list a spell needs with the first living
// seat on the right side, or the first fallen ally for a revive. It fails
// when no such seat exists.
func firstTargets(v combat.View, sp *config.Spell) ([]combat.Position, bool) {
	if sp.Revives() {
		fallen := v.Fallen()
		if len(fallen) == 0 {
			return nil, false
		}
		if sp.PrimaryTarget() == config.TargetFriend {
			return []combat.Position{fallen[0]}, true
		}
		return nil, true
	}
	switch sp.PrimaryTarget() {
	case config.TargetEnemy:
		opp := v.Opponents()
		if len(opp) == 0 {
			return nil, false
		}
		return []combat.Position{opp[0]}, true
	case config.TargetFriend:
		allies := v.Allies()
		if len(allies) == 0 {
			return nil, false
		}
		return []combat.Position{allies[0]}, true
	}
	return nil, true
}
