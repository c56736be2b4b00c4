package game

import (
	"context"
	"errors"
	"math/rand"
)

var ErrNoLegalAction = errors.New("no legal action available")

// Agent is the decision capability of an automated participant.
type Agent interface {
	Decide(ctx context.Context, g *Game, legal []Action) (Action, error)
}

// AgentFor returns the agent for a participant, or nil for humans.
func AgentFor(p Participant, seed int64) Agent {
	switch p.Kind {
	case KindRandom:
		return NewRandomAgent(seed)
	case KindGreedy:
		return GreedyAgent{}
	default:
		return nil
	}
}

type RandomAgent struct {
	rng *rand.Rand
}

func NewRandomAgent(seed int64) *RandomAgent {
	return &RandomAgent{rng: rand.New(rand.NewSource(seed))}
}

func (a *RandomAgent) Decide(_ context.Context, _ *Game, legal []Action) (Action, error) {
	if len(legal) == 0 {
		return nil, ErrNoLegalAction
	}
	return legal[a.rng.Intn(len(legal))], nil
}

// GreedyAgent accepts trades that grow its hand and otherwise prefers
// building over ending the turn.
type GreedyAgent struct{}

func (GreedyAgent) Decide(_ context.Context, g *Game, legal []Action) (Action, error) {
	if len(legal) == 0 {
		return nil, ErrNoLegalAction
	}
	if trade := g.State.Trade; trade != nil {
		if trade.Offer.Total() > trade.Request.Total() {
			for _, a := range legal {
				if a.Type() == TypeAcceptTrade {
					return a, nil
				}
			}
		}
		for _, a := range legal {
			if a.Type() == TypeRejectTrade {
				return a, nil
			}
		}
		return legal[0], nil
	}
	for _, want := range []ActionType{TypeBuild, TypeRoll, TypeEndTurn} {
		for _, a := range legal {
			if a.Type() == want {
				return a, nil
			}
		}
	}
	return legal[0], nil
}
