package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testState builds a three-seat game state at the start of Red's turn.
func testState() State {
	return State{
		Colors: []Color{Red, Blue, White},
		Prompt: PromptPlay,
		Hands:  []Hand{{}, {}, {}},
		Points: []int{0, 0, 0},
		Seed:   42,
	}
}

func rolledState() State {
	s := testState()
	s.Rolled = true
	return s
}

// negotiationState opens an offer from Red: one timber for one grain.
func negotiationState(t *testing.T) State {
	t.Helper()
	s := rolledState()
	s.Hands[0] = Hand{Timber: 2}
	s.Hands[1] = Hand{Grain: 1}
	s.Hands[2] = Hand{Grain: 1}
	ns, err := NewEngine().Apply(s, OfferTrade{Color: Red, Give: Hand{Timber: 1}, Take: Hand{Grain: 1}})
	require.NoError(t, err)
	return ns
}

func TestApply_RollDealsDeterministically(t *testing.T) {
	eng := NewEngine()
	s := testState()

	a, err := eng.Apply(s, Roll{Color: Red})
	require.NoError(t, err)
	b, err := eng.Apply(s, Roll{Color: Red})
	require.NoError(t, err)

	require.Equal(t, a.Hands, b.Hands, "same seed and step must deal the same draw")
	require.True(t, a.Rolled)
	require.Equal(t, 1, a.Step)

	total := 0
	for _, h := range a.Hands {
		total += h.Total()
	}
	require.Equal(t, len(s.Colors)+1, total, "one card per seat plus one extra for the roller")
	require.GreaterOrEqual(t, a.Hands[0].Total(), 1)
}

func TestApply_Rejections(t *testing.T) {
	eng := NewEngine()
	cases := []struct {
		name    string
		setup   State
		act     Action
		wantErr error
	}{
		{"roll out of turn", testState(), Roll{Color: Blue}, ErrWrongTurn},
		{"roll twice", rolledState(), Roll{Color: Red}, ErrAlreadyRolled},
		{"build before rolling", testState(), Build{Color: Red}, ErrNotRolled},
		{"build without resources", rolledState(), Build{Color: Red}, ErrCannotAfford},
		{"end turn before rolling", testState(), EndTurn{Color: Red}, ErrNotRolled},
		{"unseated color", testState(), Roll{Color: Orange}, ErrUnknownSeat},
		{"empty trade", rolledState(), OfferTrade{Color: Red, Give: Hand{}, Take: Hand{Grain: 1}}, ErrEmptyTrade},
		{"trade beyond hand", rolledState(), OfferTrade{Color: Red, Give: Hand{Timber: 1}, Take: Hand{Grain: 1}}, ErrCannotAfford},
		{"cancel outside negotiation", rolledState(), CancelTrade{Color: Red}, ErrWrongPhase},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.Apply(tc.setup, tc.act)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestApply_BuildSpendsAndScores(t *testing.T) {
	eng := NewEngine()
	s := rolledState()
	s.Hands[0] = Hand{Timber: 1, Clay: 1, Grain: 1, Ore: 2}

	ns, err := eng.Apply(s, Build{Color: Red})
	require.NoError(t, err)
	require.Equal(t, 1, ns.Points[0])
	require.Equal(t, Hand{Ore: 2}, ns.Hands[0], "build cost must be deducted")
	require.Nil(t, ns.Winner)
}

func TestApply_BuildReachingTargetWins(t *testing.T) {
	eng := NewEngineWithRules(Rules{BuildCost: Hand{Timber: 1}, TargetPoints: 2})
	s := rolledState()
	s.Hands[0] = Hand{Timber: 2}
	s.Points[0] = 1

	ns, err := eng.Apply(s, Build{Color: Red})
	require.NoError(t, err)
	require.NotNil(t, ns.Winner)
	require.Equal(t, Red, *ns.Winner)

	_, err = eng.Apply(ns, Roll{Color: Red})
	require.ErrorIs(t, err, ErrGameCompleted)
}

func TestApply_OfferTradeOpensNegotiation(t *testing.T) {
	ns := negotiationState(t)

	require.Equal(t, PromptDecideTrade, ns.Prompt)
	require.NotNil(t, ns.Trade)
	require.Equal(t, 0, ns.Trade.OffererSeat)
	require.Equal(t, []bool{true, false, false}, ns.Trade.Responses,
		"the offerer counts as having responded")
	require.False(t, ns.Trade.Settled())
}

func TestApply_AcceptTradeSwapsHands(t *testing.T) {
	eng := NewEngine()
	ns, err := eng.Apply(negotiationState(t), AcceptTrade{Color: Blue})
	require.NoError(t, err)

	require.Equal(t, Hand{Timber: 1, Grain: 1}, ns.Hands[0])
	require.Equal(t, Hand{Timber: 1}, ns.Hands[1])
	require.Equal(t, PromptPlay, ns.Prompt)
	require.Nil(t, ns.Trade)
	require.Equal(t, ns.Turn, ns.Acting)
}

func TestApply_RejectsSettleNegotiation(t *testing.T) {
	eng := NewEngine()
	s := negotiationState(t)

	mid, err := eng.Apply(s, RejectTrade{Color: Blue})
	require.NoError(t, err)
	require.Equal(t, PromptDecideTrade, mid.Prompt, "one outstanding responder keeps the offer open")

	done, err := eng.Apply(mid, RejectTrade{Color: White})
	require.NoError(t, err)
	require.Equal(t, PromptPlay, done.Prompt)
	require.Nil(t, done.Trade)
	require.Equal(t, Hand{Timber: 2}, done.Hands[0], "a fully rejected offer moves nothing")
}

func TestApply_NegotiationRoleErrors(t *testing.T) {
	eng := NewEngine()
	s := negotiationState(t)

	_, err := eng.Apply(s, AcceptTrade{Color: Red})
	require.ErrorIs(t, err, ErrOffererResponse)

	_, err = eng.Apply(s, CancelTrade{Color: Blue})
	require.ErrorIs(t, err, ErrNotOfferer)

	mid, err := eng.Apply(s, RejectTrade{Color: Blue})
	require.NoError(t, err)
	_, err = eng.Apply(mid, RejectTrade{Color: Blue})
	require.ErrorIs(t, err, ErrAlreadyResponded)
}

func TestApply_CancelClosesNegotiation(t *testing.T) {
	eng := NewEngine()
	ns, err := eng.Apply(negotiationState(t), CancelTrade{Color: Red})
	require.NoError(t, err)
	require.Equal(t, PromptPlay, ns.Prompt)
	require.Nil(t, ns.Trade)
}

func TestApply_EndTurnAdvancesAndWraps(t *testing.T) {
	eng := NewEngine()
	s := rolledState()
	s.Turn = 2
	s.Acting = 2

	ns, err := eng.Apply(s, EndTurn{Color: White})
	require.NoError(t, err)
	require.Equal(t, 0, ns.Turn)
	require.Equal(t, 0, ns.Acting)
	require.False(t, ns.Rolled)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	eng := NewEngine()
	s := rolledState()
	s.Hands[0] = Hand{Timber: 1, Clay: 1, Grain: 1}

	_, err := eng.Apply(s, Build{Color: Red})
	require.NoError(t, err)
	require.Equal(t, Hand{Timber: 1, Clay: 1, Grain: 1}, s.Hands[0])
	require.Equal(t, 0, s.Points[0])
	require.Equal(t, 0, s.Step)
}

func TestLegalActions(t *testing.T) {
	eng := NewEngine()

	t.Run("before rolling", func(t *testing.T) {
		legal := eng.LegalActions(testState())
		require.Equal(t, []Action{Roll{Color: Red}}, legal)
	})

	t.Run("after rolling without resources", func(t *testing.T) {
		legal := eng.LegalActions(rolledState())
		require.Equal(t, []Action{EndTurn{Color: Red}}, legal)
	})

	t.Run("after rolling with build cost covered", func(t *testing.T) {
		s := rolledState()
		s.Hands[0] = Hand{Timber: 1, Clay: 1, Grain: 1}
		legal := eng.LegalActions(s)
		require.Contains(t, legal, Build{Color: Red})
	})

	t.Run("offerer may only cancel", func(t *testing.T) {
		s := negotiationState(t)
		require.Equal(t, []Action{CancelTrade{Color: Red}}, eng.LegalActions(s))
	})

	t.Run("responder may reject and accept when affordable", func(t *testing.T) {
		s := negotiationState(t)
		s.Acting = 1
		legal := eng.LegalActions(s)
		require.Equal(t, []Action{RejectTrade{Color: Blue}, AcceptTrade{Color: Blue}}, legal)
	})

	t.Run("responder without the requested cards may only reject", func(t *testing.T) {
		s := negotiationState(t)
		s.Acting = 1
		s.Hands[1] = Hand{}
		require.Equal(t, []Action{RejectTrade{Color: Blue}}, eng.LegalActions(s))
	})

	t.Run("decided game has no actions", func(t *testing.T) {
		s := testState()
		w := Red
		s.Winner = &w
		require.Nil(t, eng.LegalActions(s))
	})
}

func TestForceReject(t *testing.T) {
	eng := NewEngine()
	s := negotiationState(t)

	mid := eng.ForceReject(s, 1)
	require.True(t, mid.Trade.Responses[1])
	require.Equal(t, PromptDecideTrade, mid.Prompt)

	done := eng.ForceReject(mid, 2)
	require.Equal(t, PromptPlay, done.Prompt)
	require.Nil(t, done.Trade)

	// Outside a negotiation it is a no-op.
	same := eng.ForceReject(testState(), 1)
	require.Equal(t, testState(), same)
}
