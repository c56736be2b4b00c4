package game

import (
	"encoding/json"
	"fmt"
)

type ActionType string

const (
	TypeRoll        ActionType = "ROLL"
	TypeBuild       ActionType = "BUILD"
	TypeOfferTrade  ActionType = "OFFER_TRADE"
	TypeCancelTrade ActionType = "CANCEL_TRADE"
	TypeAcceptTrade ActionType = "ACCEPT_TRADE"
	TypeRejectTrade ActionType = "REJECT_TRADE"
	TypeEndTurn     ActionType = "END_TURN"
)

// Action is one variant of the closed action union. Payloads are decoded at
// the boundary, one routine per variant.
type Action interface {
	Actor() Color
	Type() ActionType
}

type Roll struct{ Color Color }

func (a Roll) Actor() Color     { return a.Color }
func (a Roll) Type() ActionType { return TypeRoll }

type Build struct{ Color Color }

func (a Build) Actor() Color     { return a.Color }
func (a Build) Type() ActionType { return TypeBuild }

type OfferTrade struct {
	Color Color
	Give  Hand
	Take  Hand
}

func (a OfferTrade) Actor() Color     { return a.Color }
func (a OfferTrade) Type() ActionType { return TypeOfferTrade }

type CancelTrade struct{ Color Color }

func (a CancelTrade) Actor() Color     { return a.Color }
func (a CancelTrade) Type() ActionType { return TypeCancelTrade }

type AcceptTrade struct{ Color Color }

func (a AcceptTrade) Actor() Color     { return a.Color }
func (a AcceptTrade) Type() ActionType { return TypeAcceptTrade }

type RejectTrade struct{ Color Color }

func (a RejectTrade) Actor() Color     { return a.Color }
func (a RejectTrade) Type() ActionType { return TypeRejectTrade }

type EndTurn struct{ Color Color }

func (a EndTurn) Actor() Color     { return a.Color }
func (a EndTurn) Type() ActionType { return TypeEndTurn }

// IsTradeResponse reports whether t is an accept or reject of an open offer.
func IsTradeResponse(t ActionType) bool {
	return t == TypeAcceptTrade || t == TypeRejectTrade
}

type wireAction struct {
	Type  ActionType     `json:"type"`
	Color string         `json:"color"`
	Give  map[string]int `json:"give,omitempty"`
	Take  map[string]int `json:"take,omitempty"`
}

// DecodeAction parses a wire action payload into its typed variant.
func DecodeAction(raw []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("malformed action payload: %w", err)
	}
	color, ok := ParseColor(w.Color)
	if !ok {
		return nil, fmt.Errorf("unknown color %q", w.Color)
	}
	switch w.Type {
	case TypeRoll:
		return Roll{Color: color}, nil
	case TypeBuild:
		return Build{Color: color}, nil
	case TypeOfferTrade:
		return decodeOfferTrade(color, w)
	case TypeCancelTrade:
		return CancelTrade{Color: color}, nil
	case TypeAcceptTrade:
		return AcceptTrade{Color: color}, nil
	case TypeRejectTrade:
		return RejectTrade{Color: color}, nil
	case TypeEndTurn:
		return EndTurn{Color: color}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", w.Type)
	}
}

func decodeOfferTrade(color Color, w wireAction) (Action, error) {
	give, err := decodeHand(w.Give)
	if err != nil {
		return nil, fmt.Errorf("give: %w", err)
	}
	take, err := decodeHand(w.Take)
	if err != nil {
		return nil, fmt.Errorf("take: %w", err)
	}
	return OfferTrade{Color: color, Give: give, Take: take}, nil
}

func decodeHand(m map[string]int) (Hand, error) {
	h := Hand{}
	for k, n := range m {
		r, ok := ParseResource(k)
		if !ok {
			return nil, fmt.Errorf("unknown resource %q", k)
		}
		if n < 0 {
			return nil, fmt.Errorf("negative count for %s", k)
		}
		if n > 0 {
			h[r] = n
		}
	}
	return h, nil
}

// EncodeAction renders an action back to its wire form, used when recording
// automated responses in the event log.
func EncodeAction(a Action) ([]byte, error) {
	w := wireAction{Type: a.Type(), Color: string(a.Actor())}
	if offer, ok := a.(OfferTrade); ok {
		w.Give = encodeHand(offer.Give)
		w.Take = encodeHand(offer.Take)
	}
	return json.Marshal(w)
}

func encodeHand(h Hand) map[string]int {
	m := make(map[string]int, len(h))
	for r, n := range h {
		m[string(r)] = n
	}
	return m
}
