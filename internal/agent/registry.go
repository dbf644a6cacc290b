// Package agent holds the spell selection strategies a battle member can be
// driven by. Strategies are named by a spec string: the strategy name,
// optionally followed by ":" and an argument, e.g. "weighted:0.3,0.2,0.2" or
// "script:agents/aggro.lua".
package agent

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"battlematus/internal/combat"
)

// ErrUnknownAgent is returned for specs naming no registered strategy.
var ErrUnknownAgent = errors.New("unknown agent")

// Builder creates a strategy instance for one member from the spec argument.
type Builder func(arg, member string) (combat.Agent, error)

// registry maps strategy name → builder. Populated by init().
var registry = map[string]Builder{}

// Register adds a strategy under name, replacing any earlier one.
func Register(name string, b Builder) {
	registry[name] = b
}

// New builds the agent a spec names for member. It satisfies
// combat.AgentFactory.
func New(spec, member string) (combat.Agent, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(spec), ":")
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, spec)
	}
	a, err := b(arg, member)
	if err != nil {
		return nil, fmt.Errorf("agent %s for %s: %w", spec, member, err)
	}
	return a, nil
}

// Names lists the registered strategies.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

func init() {
	Register("first", func(string, string) (combat.Agent, error) { return First{}, nil })
	Register("weighted", NewWeighted)
	Register("history", NewHistory)
	Register("script", NewScript)
	Register("tactician", NewTactician)
}

var _ combat.AgentFactory = New

func spec(name, arg string) string {
	if arg == "" {
		return name
	}
	return name + ":" + arg
}
