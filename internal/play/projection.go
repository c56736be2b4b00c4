package play

import (
	"github.com/caravangame/caravan-server/internal/game"
	"github.com/caravangame/caravan-server/internal/store"
	"github.com/caravangame/caravan-server/pkg/types"
)

// ProjectGame builds the display projection stored with every snapshot.
func ProjectGame(g *game.Game) *types.GameView {
	s := g.State
	v := &types.GameView{
		GameID:       g.ID,
		Colors:       colorStrings(s.Colors),
		CurrentColor: string(s.CurrentColor()),
		ActingColor:  string(s.Colors[s.Acting]),
		Prompt:       string(s.Prompt),
		Rolled:       s.Rolled,
		Points:       append([]int(nil), s.Points...),
	}
	for _, p := range g.Participants {
		if p.Bot() {
			v.BotColors = append(v.BotColors, string(p.Color))
		}
	}
	v.Hands = make([]map[string]int, len(s.Hands))
	for i, h := range s.Hands {
		v.Hands[i] = handCounts(h)
	}
	if s.Trade != nil {
		v.Trade = &types.NegotiationView{
			OffererSeat: s.Trade.OffererSeat,
			Offer:       handCounts(s.Trade.Offer),
			Request:     handCounts(s.Trade.Request),
			Responses:   append([]bool(nil), s.Trade.Responses...),
		}
	}
	if s.Winner != nil {
		w := string(*s.Winner)
		v.WinningColor = &w
	}
	return v
}

// SummaryOf derives the denormalized summary row from the game. The version
// is filled in by the store at append time.
func SummaryOf(g *game.Game) *store.Summary {
	s := g.State
	current := string(s.CurrentColor())
	sum := &store.Summary{
		GameID:       g.ID,
		SeatColors:   colorStrings(s.Colors),
		CurrentColor: &current,
	}
	if s.Winner != nil {
		w := string(*s.Winner)
		sum.WinningColor = &w
	}
	return sum
}

func colorStrings(colors []game.Color) []string {
	out := make([]string, len(colors))
	for i, c := range colors {
		out[i] = string(c)
	}
	return out
}

func handCounts(h game.Hand) map[string]int {
	m := make(map[string]int, len(h))
	for r, n := range h {
		m[string(r)] = n
	}
	return m
}
