package combat

import (
	"encoding/json"
	"fmt"
	"slices"

	"battlematus/internal/config"
	"battlematus/internal/pip"
)

// HandSize is the number of deck cards a player can choose from each round.
const HandSize = 7

// Token is a damage (positive magnitude) or healing (negative magnitude)
// over time effect.
type Token struct {
	Rounds    int
	Magnitude int
}

func (t Token) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{t.Rounds, t.Magnitude})
}

func (t *Token) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("token: %w", err)
	}
	t.Rounds, t.Magnitude = pair[0], pair[1]
	return nil
}

// Member is the mutable combat record of one participant. Static values
// live in config.Stats and are looked up by member id.
type Member struct {
	// Health is -1 until filled from stats.
	Health int         `json:"health"`
	Pips   pip.Holding `json:"pips"`

	Shadows        int     `json:"shads"`
	ShadowProgress float64 `json:"shadprog"`

	Status StatusTimers `json:"status"`

	Aura   *config.Modifier  `json:"aura,omitempty"`
	Charms []config.Modifier `json:"charms"`
	Wards  []config.Modifier `json:"wards"`
	Tokens []Token           `json:"tokens"`

	// The first Hand cards of Deck are a player's hand.
	Deck []string `json:"deck"`
	Side []string `json:"side"`
	Hand int      `json:"hand"`

	ArchSchool   pip.Pip `json:"amschool"`
	ArchProgress float64 `json:"amprog"`

	Threat       float64 `json:"threat"`
	Resurrection float64 `json:"resurrection"`

	needsPips bool
	needsDeck bool
	needsSide bool
}

// NewMember returns a record whose health, pips, decks and archmastery
// school are filled from stats when the member is initialized.
func NewMember() *Member {
	return &Member{
		Health:     -1,
		Pips:       pip.Empty(),
		ArchSchool: pip.None,
		needsPips:  true,
		needsDeck:  true,
		needsSide:  true,
	}
}

func (m *Member) UnmarshalJSON(b []byte) error {
	type raw struct {
		Health         *int              `json:"health"`
		Pips           []pip.Pip         `json:"pips"`
		Shadows        int               `json:"shads"`
		ShadowProgress float64           `json:"shadprog"`
		Status         StatusTimers      `json:"status"`
		Aura           *config.Modifier  `json:"aura"`
		Charms         []config.Modifier `json:"charms"`
		Wards          []config.Modifier `json:"wards"`
		Tokens         []Token           `json:"tokens"`
		Deck           []string          `json:"deck"`
		Side           []string          `json:"side"`
		Hand           int               `json:"hand"`
		ArchSchool     *pip.Pip          `json:"amschool"`
		ArchProgress   float64           `json:"amprog"`
		Threat         float64           `json:"threat"`
		Resurrection   float64           `json:"resurrection"`
	}
	var r raw
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}

	*m = *NewMember()
	if r.Health != nil {
		m.Health = *r.Health
	}
	var real []pip.Pip
	for _, p := range r.Pips {
		if !p.Valid() {
			return fmt.Errorf("member: invalid pip %d", int(p))
		}
		if p != pip.None {
			real = append(real, p)
		}
	}
	if len(real) > pip.Capacity {
		return fmt.Errorf("member: %d pips exceed capacity", len(real))
	}
	if len(r.Pips) > 0 {
		m.Pips = pip.Of(real...)
		m.needsPips = false
	}
	if r.Deck != nil {
		m.Deck = r.Deck
		m.needsDeck = false
	}
	if r.Side != nil {
		m.Side = r.Side
		m.needsSide = false
	}
	if r.ArchSchool != nil {
		m.ArchSchool = *r.ArchSchool
	}

	m.Shadows = r.Shadows
	m.ShadowProgress = r.ShadowProgress
	m.Status = r.Status
	m.Aura = r.Aura
	m.Charms = r.Charms
	m.Wards = r.Wards
	m.Tokens = r.Tokens
	m.Hand = r.Hand
	m.ArchProgress = r.ArchProgress
	m.Threat = r.Threat
	m.Resurrection = r.Resurrection
	return nil
}

// fill populates unset values from stats. Player decks are shuffled.
func (m *Member) fill(stats *config.Stats, shuffle func(n int, swap func(i, j int))) {
	if m.Health < 0 {
		m.Health = stats.Health
	}
	if m.ArchSchool == pip.None {
		m.ArchSchool = stats.ArchSchool
	}
	if m.needsDeck {
		m.Deck = copyDeck(stats.Deck, stats.IsPlayer(), shuffle)
		m.needsDeck = false
	}
	if m.needsSide {
		m.Side = copyDeck(stats.Side, stats.IsPlayer(), shuffle)
		m.needsSide = false
	}
	if m.needsPips {
		m.Pips = pip.Empty()
		m.Pips.Gain(stats.StartPips...)
		m.needsPips = false
	}
}

func copyDeck(src []string, shuffled bool, shuffle func(n int, swap func(i, j int))) []string {
	deck := make([]string, len(src))
	copy(deck, src)
	if shuffled {
		shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	}
	return deck
}

// reset clears a defeated member in place. Decks and archmastery school
// carry over.
func (m *Member) reset(health int) {
	m.Health = health
	m.Pips = pip.Empty()
	m.Shadows = 0
	m.ShadowProgress = 0
	m.Status = StatusTimers{}
	m.Aura = nil
	m.Charms = nil
	m.Wards = nil
	m.Tokens = nil
	m.ArchProgress = 0
}

func (m *Member) Stunned() bool  { return m.Status[Stunned] > 0 }
func (m *Member) Beguiled() bool { return m.Status[Beguiled] > 0 }

// HandCards is the part of the deck the member may cast from this round.
func (m *Member) HandCards(player bool) []string {
	if !player {
		return m.Deck
	}
	return m.Deck[:min(m.Hand, len(m.Deck))]
}

// SpellDistribution counts the remaining copies of each spell in the main
// deck, or in the side deck when side is set.
func (m *Member) SpellDistribution(side bool) map[string]int {
	deck := m.Deck
	if side {
		deck = m.Side
	}
	dist := make(map[string]int, len(deck))
	for _, id := range deck {
		dist[id]++
	}
	return dist
}

func (m *Member) clone() *Member {
	c := *m
	if m.Aura != nil {
		a := cloneModifier(*m.Aura)
		c.Aura = &a
	}
	c.Charms = cloneModifiers(m.Charms)
	c.Wards = cloneModifiers(m.Wards)
	c.Tokens = append([]Token(nil), m.Tokens...)
	c.Deck = slices.Clone(m.Deck)
	c.Side = slices.Clone(m.Side)
	return &c
}

func cloneModifier(m config.Modifier) config.Modifier {
	m.Schools = append([]pip.School(nil), m.Schools...)
	return m
}

func cloneModifiers(in []config.Modifier) []config.Modifier {
	if in == nil {
		return nil
	}
	out := make([]config.Modifier, len(in))
	for i, m := range in {
		out[i] = cloneModifier(m)
	}
	return out
}
