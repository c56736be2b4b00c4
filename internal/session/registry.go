// Package session issues and validates the ephemeral tokens binding a
// participant to a room and an optional seat. Sessions live only for the
// process lifetime: a restart invalidates every token while rooms persist.
// That limitation is deliberate; reconnect-after-restart is out of scope.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/caravangame/caravan-server/internal/game"
)

type Session struct {
	Token     string
	Name      string
	RoomID    string
	SeatColor *game.Color // nil for spectators
}

func (s Session) Spectator() bool { return s.SeatColor == nil }

// Registry is the process-wide token map. One mutex guards every operation
// since issue, lookup and revoke race across request workers.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Issue binds name to roomID and, if seat is non-nil, to that seat. The seat
// binding never changes for the lifetime of the token.
func (r *Registry) Issue(name, roomID string, seat *game.Color) Session {
	s := Session{
		Token:  uuid.NewString(),
		Name:   name,
		RoomID: roomID,
	}
	if seat != nil {
		c := *seat
		s.SeatColor = &c
	}
	r.mu.Lock()
	r.sessions[s.Token] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Lookup(token string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	return s, ok
}

func (r *Registry) Revoke(token string) {
	r.mu.Lock()
	delete(r.sessions, token)
	r.mu.Unlock()
}
