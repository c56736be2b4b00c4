package play

import (
	"context"

	"go.uber.org/zap"

	"github.com/caravangame/caravan-server/internal/game"
)

// AgentResolver returns the decision capability for a seat, nil for humans.
type AgentResolver func(g *game.Game, seat int) game.Agent

func defaultAgents(g *game.Game, seat int) game.Agent {
	p := g.Participants[seat]
	return game.AgentFor(p, g.State.Seed^int64(seat))
}

// Advancer drives automated participants through an open negotiation
// sub-phase so play never stalls waiting on an absent automated actor.
type Advancer struct {
	eng    game.Engine
	agents AgentResolver
	log    *zap.Logger
}

func NewAdvancer(eng game.Engine, log *zap.Logger) *Advancer {
	return &Advancer{eng: eng, agents: defaultAgents, log: log}
}

// Drive resolves pending automated accept/reject responses in canonical seat
// order, stopping at the first unresponded human. It mutates g and reports
// whether anything was processed, which callers use to decide whether a new
// snapshot needs persisting.
//
// Liveness: a failing or off-script automated decision becomes a forced
// reject, and a reject the engine refuses is recorded while bypassing
// validation, so the sub-phase can never block on an automated seat.
func (a *Advancer) Drive(ctx context.Context, g *game.Game) bool {
	if g.State.Prompt != game.PromptDecideTrade || g.State.Trade == nil {
		return false
	}
	offerer := g.State.Trade.OffererSeat
	if offerer < 0 || offerer >= len(g.Participants) {
		offerer = g.State.Turn
	}

	processed := false
	for seat, p := range g.Participants {
		if seat == offerer || g.State.Trade.Responses[seat] {
			continue
		}
		if !p.Bot() {
			break
		}

		// switch control to the responding seat before recomputing legality
		g.State.Acting = seat
		legal := a.eng.LegalActions(g.State)

		var act game.Action
		agent := a.agents(g, seat)
		if agent != nil {
			decided, err := agent.Decide(ctx, g, legal)
			if err != nil {
				a.log.Warn("automated trade decision failed",
					zap.String("game_id", g.ID),
					zap.String("color", string(p.Color)),
					zap.Error(err))
			} else {
				act = decided
			}
		}
		if act == nil || !game.IsTradeResponse(act.Type()) || act.Actor() != p.Color {
			act = game.RejectTrade{Color: p.Color}
		}

		next, err := a.eng.Apply(g.State, act)
		if err != nil {
			a.log.Warn("automated trade response rejected, forcing reject",
				zap.String("game_id", g.ID),
				zap.String("color", string(p.Color)),
				zap.Error(err))
			next = a.eng.ForceReject(g.State, seat)
		}
		g.State = next
		processed = true

		if g.State.Prompt != game.PromptDecideTrade {
			break
		}
	}

	if g.State.Prompt == game.PromptDecideTrade && g.State.Trade != nil {
		// hand control to the first seat still owing a response
		for seat, r := range g.State.Trade.Responses {
			if seat != g.State.Trade.OffererSeat && !r {
				g.State.Acting = seat
				break
			}
		}
	}
	return processed
}
