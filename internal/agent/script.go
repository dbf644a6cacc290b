package agent

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shopify/go-lua"

	"battlematus/internal/combat"
	"battlematus/internal/pip"
)

// Script drives a member from a Lua file defining a global
//
//	function select(view) return index, target end
//
// index is the 1-based hand card (0 or nil passes) and target a seat name
// such as "blade" or a seat number 0-7 (nil for untargeted spells). The view
// table carries member, position, round, health, pips, hand, opponents and
// allies. The builtin select is not available to the script.
type Script struct {
	path  string
	state *lua.State
}

func NewScript(path, member string) (combat.Agent, error) {
	if path == "" {
		return nil, errors.New("script agent needs a file")
	}
	l := lua.NewState()
	lua.OpenLibraries(l)
	// the script's own select replaces the builtin
	l.PushNil()
	l.SetGlobal("select")
	if err := lua.DoFile(l, path); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	l.Global("select")
	ok := l.IsFunction(-1)
	l.Pop(1)
	if !ok {
		return nil, fmt.Errorf("%s does not define select(view)", path)
	}
	slog.Debug("script agent loaded", "member", member, "path", path)
	return &Script{path: path, state: l}, nil
}

func (s *Script) Name() string { return spec("script", s.path) }

func (s *Script) Select(v combat.View) combat.Choice {
	l := s.state
	top := l.Top()
	defer l.SetTop(top)

	l.Global("select")
	pushView(l, v)
	if err := l.ProtectedCall(1, 2, 0); err != nil {
		slog.Warn("script select failed, passing", "member", v.Member, "path", s.path, "err", err)
		return combat.Pass()
	}

	idx, _ := l.ToInteger(-2)
	if idx <= 0 {
		return combat.Pass()
	}
	c := combat.Choice{Spell: idx - 1}
	if t, ok := readSeat(l, -1); ok {
		c.Targets = []combat.Position{t}
	}
	return c
}

func readSeat(l *lua.State, index int) (combat.Position, bool) {
	switch l.TypeOf(index) {
	case lua.TypeNumber:
		n, _ := l.ToInteger(index)
		return combat.Position(n), true
	case lua.TypeString:
		name, _ := l.ToString(index)
		for p := combat.Sun; p <= combat.Spiral; p++ {
			if p.String() == name {
				return p, true
			}
		}
	}
	return 0, false
}

func pushView(l *lua.State, v combat.View) {
	l.NewTable()
	setString(l, "member", v.Member)
	setString(l, "position", v.Position.String())
	setInt(l, "round", v.State.Round)
	setInt(l, "health", v.Self.Health)
	setInt(l, "max_health", v.Stats.Health)
	setInt(l, "pips", v.Self.Pips.Len())

	l.NewTable()
	for i, id := range v.Hand() {
		l.NewTable()
		setString(l, "id", id)
		l.PushBoolean(v.Castable(i))
		l.SetField(-2, "castable")
		if sp, ok := v.Spell(i); ok {
			setString(l, "name", sp.Name)
			setString(l, "school", sp.School.String())
			setString(l, "target", sp.PrimaryTarget().String())
			dmg, heal := combat.Estimate(sp, pipValue(v))
			l.PushNumber(dmg)
			l.SetField(-2, "damage")
			l.PushNumber(heal)
			l.SetField(-2, "heal")
		}
		l.RawSetInt(-2, i+1)
	}
	l.SetField(-2, "hand")

	pushSeats(l, v, v.Opponents())
	l.SetField(-2, "opponents")
	pushSeats(l, v, v.Allies())
	l.SetField(-2, "allies")
}

// pushSeats pushes a list of {seat, id, health} tables.
func pushSeats(l *lua.State, v combat.View, seats []combat.Position) {
	l.NewTable()
	for i, p := range seats {
		id, m, _ := v.State.Occupant(p)
		l.NewTable()
		setString(l, "seat", p.String())
		setString(l, "id", id)
		setInt(l, "health", m.Health)
		l.RawSetInt(-2, i+1)
	}
}

func setString(l *lua.State, key, value string) {
	l.PushString(value)
	l.SetField(-2, key)
}

func setInt(l *lua.State, key string, value int) {
	l.PushInteger(value)
	l.SetField(-2, key)
}

// pipValue is the pip value an X spell would drain right now.
func pipValue(v combat.View) int {
	h := v.Self.Pips
	value, err := h.Consume(pip.Cost{X: true}, false, false)
	if err != nil {
		return 0
	}
	return value
}
