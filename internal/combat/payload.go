package combat

import (
	"fmt"
	"strings"

	"battlematus/internal/config"
	"battlematus/internal/pip"
)

// readAction checks an action payload and extracts what its kind needs.
func readAction(spell *config.Spell, a config.Action) (actionPlan, error) {
	p := actionPlan{Action: a, school: spell.School}
	if strings.TrimSpace(a.Condition) != "" {
		return p, fmt.Errorf("%w: %s action condition %q in %s", ErrNotSupported, a.Kind, a.Condition, spell.ID)
	}
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s action in %s: %s", ErrMalformedAction, a.Kind, spell.ID, fmt.Sprintf(format, args...))
	}

	if raw, ok := a.Data["school"]; ok {
		school, err := pip.ParseSchool(fmt.Sprint(raw))
		if err != nil {
			return p, bad("%v", err)
		}
		p.school = school
	}

	switch a.Kind {
	case config.ActionDamage, config.ActionHeal, config.ActionLifesteal:
		values, err := readValues(a.Data, spell.X && a.Kind == config.ActionDamage)
		if err != nil {
			return p, bad("%v", err)
		}
		p.values = values
		if raw, ok := a.Data["rounds"]; ok {
			n, ok := number(raw)
			if !ok || n < 1 {
				return p, bad("rounds must be a positive number")
			}
			p.rounds = int(n)
		}
		if a.Kind == config.ActionLifesteal {
			ratio, ok := number(a.Data["ratio"])
			if !ok {
				return p, bad("missing ratio")
			}
			p.ratio = ratio
		}

	case config.ActionRevive:
		values, err := readValues(a.Data, false)
		if err != nil {
			return p, bad("%v", err)
		}
		for _, v := range values {
			if v < 1 {
				return p, bad("revived health must be positive")
			}
		}
		p.values = values

	case config.ActionCharm, config.ActionWard, config.ActionAura, config.ActionGlobal:
		name, ok := a.Data["modifier"].(string)
		if !ok {
			return p, bad("missing modifier name")
		}
		mod, ok := spell.Modifier(name)
		if !ok {
			return p, bad("unknown modifier %q", name)
		}
		p.mod = mod

	case config.ActionManipulate:
		name, _ := a.Data["status"].(string)
		status, ok := parseStatus(name)
		if !ok {
			return p, bad("unknown status %q", name)
		}
		n, ok := number(a.Data["rounds"])
		if !ok || n < 1 {
			return p, bad("rounds must be a positive number")
		}
		p.status = status
		p.length = int(n)

	case config.ActionModify:
		if raw, ok := a.Data["pips"]; ok {
			list, ok := raw.([]any)
			if !ok {
				return p, bad("pips must be a list")
			}
			for _, v := range list {
				pp, err := pip.ParsePip(fmt.Sprint(v))
				if err != nil || pp == pip.None {
					return p, bad("bad pip %v", v)
				}
				p.pips = append(p.pips, pp)
			}
		}
		if raw, ok := a.Data["shadow"]; ok {
			n, ok := number(raw)
			if !ok {
				return p, bad("shadow must be a number")
			}
			p.shadows = int(n)
		}
		if len(p.pips) == 0 && p.shadows == 0 {
			return p, bad("nothing to modify")
		}

	default:
		return p, bad("unknown kind")
	}
	return p, nil
}

// readValues reads the roll values of a damage or heal: a list under
// "range", a fixed "value", or "per_pip" for X spells.
func readValues(data map[string]any, x bool) ([]float64, error) {
	if x {
		if v, ok := number(data["per_pip"]); ok {
			return []float64{v}, nil
		}
	}
	if raw, ok := data["range"]; ok {
		list, ok := raw.([]any)
		if !ok || len(list) == 0 {
			return nil, fmt.Errorf("range must be a non-empty list")
		}
		out := make([]float64, len(list))
		for i, v := range list {
			n, ok := number(v)
			if !ok {
				return nil, fmt.Errorf("range entry %v is not a number", v)
			}
			out[i] = n
		}
		return out, nil
	}
	if v, ok := number(data["value"]); ok {
		return []float64{v}, nil
	}
	return nil, fmt.Errorf("missing range or value")
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// Estimate returns the mean damage and healing a spell's actions roll
// before any stats or modifiers. X spells count pips as the value held.
// Unreadable actions contribute nothing.
func Estimate(spell *config.Spell, pips int) (damage, heal float64) {
	for _, a := range spell.Actions {
		p, err := readAction(spell, a)
		if err != nil || len(p.values) == 0 {
			continue
		}
		mean := 0.0
		for _, v := range p.values {
			mean += v
		}
		mean /= float64(len(p.values))
		if spell.X && p.Kind == config.ActionDamage {
			mean *= float64(pips)
		}
		switch p.Kind {
		case config.ActionDamage:
			damage += mean
		case config.ActionLifesteal:
			damage += mean
			heal += mean * p.ratio
		case config.ActionHeal:
			heal += mean
		}
	}
	return damage, heal
}
