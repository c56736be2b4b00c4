package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeAction(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Action
	}{
		{"roll", `{"type":"ROLL","color":"RED"}`, Roll{Color: Red}},
		{"build", `{"type":"BUILD","color":"BLUE"}`, Build{Color: Blue}},
		{"end turn", `{"type":"END_TURN","color":"WHITE"}`, EndTurn{Color: White}},
		{"accept", `{"type":"ACCEPT_TRADE","color":"ORANGE"}`, AcceptTrade{Color: Orange}},
		{"reject", `{"type":"REJECT_TRADE","color":"BLUE"}`, RejectTrade{Color: Blue}},
		{"cancel", `{"type":"CANCEL_TRADE","color":"RED"}`, CancelTrade{Color: Red}},
		{
			"offer with hands",
			`{"type":"OFFER_TRADE","color":"RED","give":{"TIMBER":2},"take":{"GRAIN":1,"ORE":0}}`,
			OfferTrade{Color: Red, Give: Hand{Timber: 2}, Take: Hand{Grain: 1}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tc.raw))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeAction_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `roll please`},
		{"unknown type", `{"type":"STEAL","color":"RED"}`},
		{"unknown color", `{"type":"ROLL","color":"GREEN"}`},
		{"unknown resource", `{"type":"OFFER_TRADE","color":"RED","give":{"GOLD":1},"take":{"ORE":1}}`},
		{"negative count", `{"type":"OFFER_TRADE","color":"RED","give":{"TIMBER":-1},"take":{"ORE":1}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeAction([]byte(tc.raw))
			require.Error(t, err)
		})
	}
}

func TestEncodeActionRoundTrip(t *testing.T) {
	offer := OfferTrade{Color: Blue, Give: Hand{Wool: 1}, Take: Hand{Clay: 2}}
	raw, err := EncodeAction(offer)
	require.NoError(t, err)

	back, err := DecodeAction(raw)
	require.NoError(t, err)
	require.Equal(t, offer, back)
}

func TestIsTradeResponse(t *testing.T) {
	require.True(t, IsTradeResponse(TypeAcceptTrade))
	require.True(t, IsTradeResponse(TypeRejectTrade))
	require.False(t, IsTradeResponse(TypeCancelTrade))
	require.False(t, IsTradeResponse(TypeRoll))
}
