// Package store is the durable ledger of versioned game snapshots, their
// denormalized summaries, the audit event log, and room rows.
//
// The store assigns versions: each successful append for a game id gets the
// next integer, starting at 0, and updates the summary in the same
// transaction. The store does not serialize concurrent appends for the same
// game across calls; callers own that (the room manager's per-room lock for
// multiplayer games — standalone games run unserialized, a known gap carried
// over from the original design).
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: not found")

// Latest selects the newest snapshot version in GetSnapshot.
const Latest = -1

type Snapshot struct {
	GameID     string
	Version    int
	State      []byte // full-fidelity game blob
	Projection []byte // client-facing view
	CreatedAt  time.Time
}

type Summary struct {
	GameID        string
	LatestVersion int
	SeatColors    []string
	CurrentColor  *string
	WinningColor  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Event struct {
	ID        int64
	GameID    string
	Version   *int
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

type Seat struct {
	Color    string  `json:"color"`
	Occupant *string `json:"occupant"`
}

func (s Seat) Empty() bool { return s.Occupant == nil }

type Room struct {
	RoomID        string
	Name          string
	Seats         []Seat
	Started       bool
	GameID        *string
	LatestVersion *int
	BoardSeed     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Store interface {
	// AppendSnapshot writes snap as the next version of its game and updates
	// the summary atomically. The assigned version is returned and also set
	// on snap.
	AppendSnapshot(ctx context.Context, snap *Snapshot, sum *Summary) (int, error)
	// GetSnapshot returns the given version, or the newest one for Latest.
	GetSnapshot(ctx context.Context, gameID string, version int) (*Snapshot, error)
	GetSummary(ctx context.Context, gameID string) (*Summary, error)
	ListSummaries(ctx context.Context, limit int) ([]Summary, error)
	// DeleteGame removes all snapshots, the summary and all events for the
	// game id. Idempotent; returns the number of rows removed.
	DeleteGame(ctx context.Context, gameID string) (int64, error)

	AppendEvent(ctx context.Context, ev *Event) error
	// ListEvents returns a game's events oldest first, optionally filtered
	// by event type.
	ListEvents(ctx context.Context, gameID, eventType string) ([]Event, error)

	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, roomID string) (*Room, error)
	SaveRoom(ctx context.Context, room *Room) error
	ListRooms(ctx context.Context, limit int) ([]Room, error)
}
