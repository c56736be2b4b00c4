// Package types holds the wire views the HTTP and websocket surfaces expose.
package types

import (
	"encoding/json"
	"time"
)

type SeatView struct {
	Color    string  `json:"color"`
	Occupant *string `json:"occupant"`
	IsYou    bool    `json:"is_you"`
}

type RoomView struct {
	RoomID        string     `json:"room_id"`
	Name          string     `json:"name"`
	Seats         []SeatView `json:"seats"`
	Started       bool       `json:"started"`
	GameID        *string    `json:"game_id"`
	LatestVersion *int       `json:"latest_version"`
	BoardSeed     int64      `json:"board_seed"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type JoinView struct {
	Token       string   `json:"token"`
	UserName    string   `json:"user_name"`
	SeatColor   *string  `json:"seat_color"`
	IsSpectator bool     `json:"is_spectator"`
	Room        RoomView `json:"room"`
}

type NegotiationView struct {
	OffererSeat int            `json:"offerer_seat"`
	Offer       map[string]int `json:"offer"`
	Request     map[string]int `json:"request"`
	Responses   []bool         `json:"responses"`
}

// GameView is the display projection stored alongside every snapshot.
type GameView struct {
	GameID       string           `json:"game_id"`
	Colors       []string         `json:"colors"`
	BotColors    []string         `json:"bot_colors"`
	CurrentColor string           `json:"current_color"`
	ActingColor  string           `json:"acting_color"`
	Prompt       string           `json:"prompt"`
	Rolled       bool             `json:"rolled"`
	Hands        []map[string]int `json:"hands"`
	Points       []int            `json:"points"`
	Trade        *NegotiationView `json:"trade,omitempty"`
	WinningColor *string          `json:"winning_color,omitempty"`
}

// SnapshotView wraps a stored projection with its ledger coordinates.
type SnapshotView struct {
	GameID  string          `json:"game_id"`
	Version int             `json:"version"`
	Game    json.RawMessage `json:"game"`
}

type GameSummaryView struct {
	GameID       string   `json:"game_id"`
	Version      int      `json:"version"`
	SeatColors   []string `json:"player_colors"`
	CurrentColor *string  `json:"current_color"`
	WinningColor *string  `json:"winning_color"`
	UpdatedAt    string   `json:"updated_at"`
}

type EventView struct {
	EventID   int64           `json:"event_id"`
	GameID    string          `json:"game_id"`
	Version   *int            `json:"version"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

// RoomUpdate is pushed to websocket subscribers when a room changes.
type RoomUpdate struct {
	Type          string  `json:"type"` // always "RoomUpdate"
	RoomID        string  `json:"room_id"`
	Started       bool    `json:"started"`
	GameID        *string `json:"game_id,omitempty"`
	LatestVersion *int    `json:"latest_version,omitempty"`
}
