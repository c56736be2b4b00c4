// Package game implements the caravan trading game: a small turn-based race
// where players roll for resources, trade them during a blocking negotiation
// sub-phase, and spend them on builds worth points.
package game

import "encoding/json"

type Color string

const (
	Red    Color = "RED"
	Blue   Color = "BLUE"
	White  Color = "WHITE"
	Orange Color = "ORANGE"
)

// SeatOrder is the canonical seat order. The first color is the room host.
var SeatOrder = []Color{Red, Blue, White, Orange}

func ParseColor(s string) (Color, bool) {
	switch Color(s) {
	case Red, Blue, White, Orange:
		return Color(s), true
	default:
		return "", false
	}
}

type Resource string

const (
	Timber Resource = "TIMBER"
	Clay   Resource = "CLAY"
	Wool   Resource = "WOOL"
	Grain  Resource = "GRAIN"
	Ore    Resource = "ORE"
)

var ResourceOrder = []Resource{Timber, Clay, Wool, Grain, Ore}

func ParseResource(s string) (Resource, bool) {
	switch Resource(s) {
	case Timber, Clay, Wool, Grain, Ore:
		return Resource(s), true
	default:
		return "", false
	}
}

// Hand counts resources held by a seat. Zero entries are omitted.
type Hand map[Resource]int

func (h Hand) Clone() Hand {
	c := make(Hand, len(h))
	for r, n := range h {
		if n != 0 {
			c[r] = n
		}
	}
	return c
}

func (h Hand) Total() int {
	t := 0
	for _, n := range h {
		t += n
	}
	return t
}

// Covers reports whether h holds at least every count in other.
func (h Hand) Covers(other Hand) bool {
	for r, n := range other {
		if h[r] < n {
			return false
		}
	}
	return true
}

func (h Hand) Add(other Hand) {
	for r, n := range other {
		h[r] += n
	}
}

func (h Hand) Sub(other Hand) {
	for r, n := range other {
		h[r] -= n
		if h[r] == 0 {
			delete(h, r)
		}
	}
}

// Kind selects the decision capability bound to a participant.
type Kind string

const (
	KindHuman  Kind = "HUMAN"
	KindRandom Kind = "RANDOM"
	KindGreedy Kind = "GREEDY"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindHuman, KindRandom, KindGreedy:
		return Kind(s), true
	default:
		return "", false
	}
}

type Participant struct {
	Color Color `json:"color"`
	Kind  Kind  `json:"kind"`
}

func (p Participant) Bot() bool { return p.Kind != KindHuman }

type Prompt string

const (
	PromptPlay        Prompt = "PLAY"
	PromptDecideTrade Prompt = "DECIDE_TRADE"
)

// Negotiation is present on a State only while Prompt is DECIDE_TRADE.
type Negotiation struct {
	OffererSeat int    `json:"offerer_seat"`
	Offer       Hand   `json:"offer"`
	Request     Hand   `json:"request"`
	Responses   []bool `json:"responses"`
}

func (n *Negotiation) clone() *Negotiation {
	c := &Negotiation{
		OffererSeat: n.OffererSeat,
		Offer:       n.Offer.Clone(),
		Request:     n.Request.Clone(),
		Responses:   make([]bool, len(n.Responses)),
	}
	copy(c.Responses, n.Responses)
	return c
}

// Settled reports whether every non-offerer seat has responded.
func (n *Negotiation) Settled() bool {
	for i, r := range n.Responses {
		if i != n.OffererSeat && !r {
			return false
		}
	}
	return true
}

type State struct {
	Colors []Color      `json:"colors"`
	Turn   int          `json:"turn"`   // seat holding the turn
	Acting int          `json:"acting"` // seat whose input is awaited
	Prompt Prompt       `json:"prompt"`
	Rolled bool         `json:"rolled"`
	Hands  []Hand       `json:"hands"`
	Points []int        `json:"points"`
	Trade  *Negotiation `json:"trade,omitempty"`
	Winner *Color       `json:"winner,omitempty"`
	Seed   int64        `json:"seed"`
	Step   int          `json:"step"` // count of applied actions
}

func (s State) Clone() State {
	c := s
	c.Colors = append([]Color(nil), s.Colors...)
	c.Hands = make([]Hand, len(s.Hands))
	for i, h := range s.Hands {
		c.Hands[i] = h.Clone()
	}
	c.Points = append([]int(nil), s.Points...)
	if s.Trade != nil {
		c.Trade = s.Trade.clone()
	}
	if s.Winner != nil {
		w := *s.Winner
		c.Winner = &w
	}
	return c
}

func (s State) Seat(c Color) int {
	for i, sc := range s.Colors {
		if sc == c {
			return i
		}
	}
	return -1
}

func (s State) CurrentColor() Color { return s.Colors[s.Turn] }

type Game struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	State        State         `json:"state"`
}

// New builds a fresh game. The seed determines every future resource draw, so
// the same seed and action sequence replay to the same state.
func New(id string, participants []Participant, seed int64) *Game {
	n := len(participants)
	colors := make([]Color, n)
	hands := make([]Hand, n)
	for i, p := range participants {
		colors[i] = p.Color
		hands[i] = Hand{}
	}
	return &Game{
		ID:           id,
		Participants: participants,
		State: State{
			Colors: colors,
			Prompt: PromptPlay,
			Hands:  hands,
			Points: make([]int, n),
			Seed:   seed,
		},
	}
}

func (g *Game) Seat(c Color) int { return g.State.Seat(c) }

// Encode and Decode round-trip the full game, participants included.
func Encode(g *Game) ([]byte, error) { return json.Marshal(g) }

func Decode(b []byte) (*Game, error) {
	var g Game
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
