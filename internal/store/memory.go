package store

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and as the dev fallback when
// no database is configured. Each call is internally consistent; like the
// Postgres store it offers no cross-call serialization.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string][]Snapshot
	summaries map[string]Summary
	events    []Event
	nextEvent int64
	rooms     map[string]Room
	roomOrder []string
}

func NewMemory() *Memory {
	return &Memory{
		snapshots: make(map[string][]Snapshot),
		summaries: make(map[string]Summary),
		nextEvent: 1,
		rooms:     make(map[string]Room),
	}
}

func (m *Memory) AppendSnapshot(_ context.Context, snap *Snapshot, sum *Summary) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	version := len(m.snapshots[snap.GameID])
	snap.Version = version
	snap.CreatedAt = now
	m.snapshots[snap.GameID] = append(m.snapshots[snap.GameID], cloneSnapshot(*snap))

	s := *sum
	s.GameID = snap.GameID
	s.LatestVersion = version
	s.UpdatedAt = now
	if prev, ok := m.summaries[snap.GameID]; ok {
		s.CreatedAt = prev.CreatedAt
	} else {
		s.CreatedAt = now
	}
	m.summaries[snap.GameID] = cloneSummary(s)
	return version, nil
}

func (m *Memory) GetSnapshot(_ context.Context, gameID string, version int) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snaps := m.snapshots[gameID]
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	if version == Latest {
		version = len(snaps) - 1
	}
	if version < 0 || version >= len(snaps) {
		return nil, ErrNotFound
	}
	s := cloneSnapshot(snaps[version])
	return &s, nil
}

func (m *Memory) GetSummary(_ context.Context, gameID string) (*Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.summaries[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneSummary(s)
	return &c, nil
}

func (m *Memory) ListSummaries(_ context.Context, limit int) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Summary, 0, len(m.summaries))
	for _, s := range m.summaries {
		out = append(out, cloneSummary(s))
	}
	// newest first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].UpdatedAt.After(out[i].UpdatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) DeleteGame(_ context.Context, gameID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	removed += int64(len(m.snapshots[gameID]))
	delete(m.snapshots, gameID)
	if _, ok := m.summaries[gameID]; ok {
		removed++
		delete(m.summaries, gameID)
	}
	kept := m.events[:0]
	for _, ev := range m.events {
		if ev.GameID == gameID {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	m.events = kept
	return removed, nil
}

func (m *Memory) AppendEvent(_ context.Context, ev *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev.ID = m.nextEvent
	m.nextEvent++
	ev.CreatedAt = time.Now().UTC()
	m.events = append(m.events, cloneEvent(*ev))
	return nil
}

func (m *Memory) ListEvents(_ context.Context, gameID, eventType string) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, ev := range m.events {
		if ev.GameID != gameID {
			continue
		}
		if eventType != "" && !strings.EqualFold(ev.Type, eventType) {
			continue
		}
		out = append(out, cloneEvent(ev))
	}
	return out, nil
}

func (m *Memory) CreateRoom(_ context.Context, room *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now
	m.rooms[room.RoomID] = cloneRoom(*room)
	m.roomOrder = append(m.roomOrder, room.RoomID)
	return nil
}

func (m *Memory) GetRoom(_ context.Context, roomID string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneRoom(r)
	return &c, nil
}

func (m *Memory) SaveRoom(_ context.Context, room *Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[room.RoomID]; !ok {
		return ErrNotFound
	}
	room.UpdatedAt = time.Now().UTC()
	m.rooms[room.RoomID] = cloneRoom(*room)
	return nil
}

func (m *Memory) ListRooms(_ context.Context, limit int) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Room, 0, len(m.rooms))
	// newest first
	for i := len(m.roomOrder) - 1; i >= 0; i-- {
		if r, ok := m.rooms[m.roomOrder[i]]; ok {
			out = append(out, cloneRoom(r))
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	s.State = append([]byte(nil), s.State...)
	s.Projection = append([]byte(nil), s.Projection...)
	return s
}

func cloneSummary(s Summary) Summary {
	s.SeatColors = append([]string(nil), s.SeatColors...)
	s.CurrentColor = cloneStr(s.CurrentColor)
	s.WinningColor = cloneStr(s.WinningColor)
	return s
}

func cloneEvent(e Event) Event {
	e.Payload = append([]byte(nil), e.Payload...)
	if e.Version != nil {
		v := *e.Version
		e.Version = &v
	}
	return e
}

func cloneRoom(r Room) Room {
	seats := make([]Seat, len(r.Seats))
	for i, s := range r.Seats {
		s.Occupant = cloneStr(s.Occupant)
		seats[i] = s
	}
	r.Seats = seats
	r.GameID = cloneStr(r.GameID)
	if r.LatestVersion != nil {
		v := *r.LatestVersion
		r.LatestVersion = &v
	}
	return r
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
