package agent

import (
	"fmt"
	"strconv"
	"strings"

	"battlematus/internal/combat"
)

// DefaultWeights picks hand card 0, 1 or 2 with 0.2, 0.2 and 0.3 and passes
// with the remaining 0.3.
var DefaultWeights = []float64{0.2, 0.2, 0.3}

// Weighted picks a hand index at random by fixed weights. Probability left
// over after the weights is the chance to pass. Targets are the first
// living seat the picked spell needs; the validator rejects anything else.
type Weighted struct {
	arg     string
	weights []float64
}

// NewWeighted parses a comma separated weight list; an empty arg uses
// DefaultWeights.
func NewWeighted(arg, _ string) (combat.Agent, error) {
	if arg == "" {
		return &Weighted{weights: DefaultWeights}, nil
	}
	var weights []float64
	total := 0.0
	for _, f := range strings.Split(arg, ",") {
		w, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("bad weight %q", f)
		}
		weights = append(weights, w)
		total += w
	}
	if total > 1+1e-9 {
		return nil, fmt.Errorf("weights sum to %v, above 1", total)
	}
	return &Weighted{arg: arg, weights: weights}, nil
}

func (w *Weighted) Name() string { return spec("weighted", w.arg) }

func (w *Weighted) Select(v combat.View) combat.Choice {
	r := v.Rng.Float64()
	cum := 0.0
	idx := combat.PassChoice
	for i, x := range w.weights {
		cum += x
		if cum > r {
			idx = i
			break
		}
	}
	if idx == combat.PassChoice {
		return combat.Pass()
	}
	sp, ok := v.Spell(idx)
	if !ok {
		return combat.Choice{Spell: idx}
	}
	targets, _ := firstTargets(v, sp)
	return combat.Choice{Spell: idx, Targets: targets}
}
