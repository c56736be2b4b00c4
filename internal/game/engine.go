package game

import (
	"errors"
	"math/rand"
)

var ErrWrongTurn = errors.New("not this seat's turn")
var ErrWrongPhase = errors.New("action not allowed in this phase")
var ErrUnknownSeat = errors.New("color has no seat in this game")
var ErrAlreadyRolled = errors.New("already rolled this turn")
var ErrNotRolled = errors.New("must roll before acting")
var ErrCannotAfford = errors.New("not enough resources")
var ErrEmptyTrade = errors.New("trade must both give and request resources")
var ErrAlreadyResponded = errors.New("seat already responded to the offer")
var ErrNotOfferer = errors.New("only the offerer may cancel")
var ErrOffererResponse = errors.New("offerer cannot respond to own offer")
var ErrGameCompleted = errors.New("game already has a winner")

// Engine evaluates actions against game states. Apply never mutates its
// input; a rejected action returns the state unchanged.
type Engine interface {
	Apply(s State, a Action) (State, error)
	LegalActions(s State) []Action
	// ForceReject records a reject for seat without validation. It exists so
	// negotiation auto-resolution can never stall on a misbehaving automated
	// participant.
	ForceReject(s State, seat int) State
}

type Rules struct {
	BuildCost    Hand
	TargetPoints int
}

func StandardRules() Rules {
	return Rules{
		BuildCost:    Hand{Timber: 1, Clay: 1, Grain: 1},
		TargetPoints: 6,
	}
}

type caravan struct {
	rules Rules
}

func NewEngine() Engine { return &caravan{rules: StandardRules()} }

func NewEngineWithRules(r Rules) Engine { return &caravan{rules: r} }

func (e *caravan) Apply(s State, a Action) (State, error) {
	if s.Winner != nil {
		return s, ErrGameCompleted
	}
	seat := s.Seat(a.Actor())
	if seat < 0 {
		return s, ErrUnknownSeat
	}

	ns := s.Clone()
	switch act := a.(type) {
	case Roll:
		if err := requireTurn(ns, seat); err != nil {
			return s, err
		}
		if ns.Rolled {
			return s, ErrAlreadyRolled
		}
		e.deal(&ns)
		ns.Rolled = true

	case Build:
		if err := requireTurn(ns, seat); err != nil {
			return s, err
		}
		if !ns.Rolled {
			return s, ErrNotRolled
		}
		if !ns.Hands[seat].Covers(e.rules.BuildCost) {
			return s, ErrCannotAfford
		}
		ns.Hands[seat].Sub(e.rules.BuildCost)
		ns.Points[seat]++
		if ns.Points[seat] >= e.rules.TargetPoints {
			w := ns.Colors[seat]
			ns.Winner = &w
		}

	case OfferTrade:
		if err := requireTurn(ns, seat); err != nil {
			return s, err
		}
		if !ns.Rolled {
			return s, ErrNotRolled
		}
		if act.Give.Total() == 0 || act.Take.Total() == 0 {
			return s, ErrEmptyTrade
		}
		if !ns.Hands[seat].Covers(act.Give) {
			return s, ErrCannotAfford
		}
		responses := make([]bool, len(ns.Colors))
		responses[seat] = true
		ns.Trade = &Negotiation{
			OffererSeat: seat,
			Offer:       act.Give.Clone(),
			Request:     act.Take.Clone(),
			Responses:   responses,
		}
		ns.Prompt = PromptDecideTrade

	case CancelTrade:
		if ns.Prompt != PromptDecideTrade {
			return s, ErrWrongPhase
		}
		if seat != ns.Trade.OffererSeat {
			return s, ErrNotOfferer
		}
		closeNegotiation(&ns)

	case AcceptTrade:
		if err := requireResponder(ns, seat); err != nil {
			return s, err
		}
		offerer := ns.Trade.OffererSeat
		if !ns.Hands[seat].Covers(ns.Trade.Request) {
			return s, ErrCannotAfford
		}
		if !ns.Hands[offerer].Covers(ns.Trade.Offer) {
			return s, ErrCannotAfford
		}
		ns.Hands[offerer].Sub(ns.Trade.Offer)
		ns.Hands[offerer].Add(ns.Trade.Request)
		ns.Hands[seat].Sub(ns.Trade.Request)
		ns.Hands[seat].Add(ns.Trade.Offer)
		closeNegotiation(&ns)

	case RejectTrade:
		if err := requireResponder(ns, seat); err != nil {
			return s, err
		}
		ns.Trade.Responses[seat] = true
		if ns.Trade.Settled() {
			closeNegotiation(&ns)
		}

	case EndTurn:
		if err := requireTurn(ns, seat); err != nil {
			return s, err
		}
		if !ns.Rolled {
			return s, ErrNotRolled
		}
		ns.Turn = (ns.Turn + 1) % len(ns.Colors)
		ns.Acting = ns.Turn
		ns.Rolled = false

	default:
		return s, ErrWrongPhase
	}

	ns.Step++
	return ns, nil
}

func requireTurn(s State, seat int) error {
	if s.Prompt != PromptPlay {
		return ErrWrongPhase
	}
	if seat != s.Turn {
		return ErrWrongTurn
	}
	return nil
}

func requireResponder(s State, seat int) error {
	if s.Prompt != PromptDecideTrade {
		return ErrWrongPhase
	}
	if seat == s.Trade.OffererSeat {
		return ErrOffererResponse
	}
	if s.Trade.Responses[seat] {
		return ErrAlreadyResponded
	}
	return nil
}

func closeNegotiation(s *State) {
	s.Trade = nil
	s.Prompt = PromptPlay
	s.Acting = s.Turn
}

// deal hands out one resource per seat and a second to the roller. Draws are
// a pure function of seed and step.
func (e *caravan) deal(s *State) {
	mix := uint64(s.Seed) ^ (uint64(s.Step)+1)*0x9E3779B97F4A7C15
	rng := rand.New(rand.NewSource(int64(mix)))
	for i := range s.Hands {
		s.Hands[i][ResourceOrder[rng.Intn(len(ResourceOrder))]]++
	}
	s.Hands[s.Turn][ResourceOrder[rng.Intn(len(ResourceOrder))]]++
}

// LegalActions enumerates the discrete actions open to the acting seat.
// OfferTrade is parameterized and therefore not enumerated; it is validated
// on submission instead.
func (e *caravan) LegalActions(s State) []Action {
	if s.Winner != nil {
		return nil
	}
	if s.Prompt == PromptDecideTrade {
		seat := s.Acting
		color := s.Colors[seat]
		if seat == s.Trade.OffererSeat {
			return []Action{CancelTrade{Color: color}}
		}
		if s.Trade.Responses[seat] {
			return nil
		}
		actions := []Action{RejectTrade{Color: color}}
		if s.Hands[seat].Covers(s.Trade.Request) && s.Hands[s.Trade.OffererSeat].Covers(s.Trade.Offer) {
			actions = append(actions, AcceptTrade{Color: color})
		}
		return actions
	}

	color := s.Colors[s.Turn]
	if !s.Rolled {
		return []Action{Roll{Color: color}}
	}
	actions := []Action{EndTurn{Color: color}}
	if s.Hands[s.Turn].Covers(e.rules.BuildCost) {
		actions = append(actions, Build{Color: color})
	}
	return actions
}

func (e *caravan) ForceReject(s State, seat int) State {
	if s.Prompt != PromptDecideTrade || s.Trade == nil {
		return s
	}
	ns := s.Clone()
	ns.Trade.Responses[seat] = true
	if ns.Trade.Settled() {
		closeNegotiation(&ns)
	}
	ns.Step++
	return ns
}
