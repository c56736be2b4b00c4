// Package room owns room creation, seat assignment, board-seed selection and
// start gating. Every mutating operation runs under an exclusive per-room
// lock for its full read-modify-write; that lock is the serialization point
// that keeps concurrent join/leave/start/action calls from corrupting the
// seat list, double-starting a game, or interleaving snapshot appends.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caravangame/caravan-server/internal/apperr"
	"github.com/caravangame/caravan-server/internal/game"
	"github.com/caravangame/caravan-server/internal/play"
	"github.com/caravangame/caravan-server/internal/session"
	"github.com/caravangame/caravan-server/internal/store"
)

const MinPlayersToStart = 2

// Publisher receives room change notifications. May be nil.
type Publisher interface {
	PublishRoom(room *store.Room)
}

type Manager struct {
	store    store.Store
	sessions *session.Registry
	gateway  *play.Gateway
	pub      Publisher
	log      *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(st store.Store, reg *session.Registry, gw *play.Gateway, log *zap.Logger) *Manager {
	return &Manager{
		store:    st,
		sessions: reg,
		gateway:  gw,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *Manager) SetPublisher(p Publisher) { m.pub = p }

// lock returns the room's exclusive lock, creating it on first use.
func (m *Manager) lock(roomID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lk, ok := m.locks[roomID]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[roomID] = lk
	}
	return lk
}

func (m *Manager) publish(room *store.Room) {
	if m.pub != nil {
		m.pub.PublishRoom(room)
	}
}

func defaultSeats() []store.Seat {
	seats := make([]store.Seat, len(game.SeatOrder))
	for i, c := range game.SeatOrder {
		seats[i] = store.Seat{Color: string(c)}
	}
	return seats
}

func (m *Manager) Create(ctx context.Context, name string) (*store.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Room"
	}
	seed, err := play.RandomSeed()
	if err != nil {
		return nil, err
	}
	room := &store.Room{
		RoomID:    uuid.NewString(),
		Name:      name,
		Seats:     defaultSeats(),
		BoardSeed: seed,
	}
	if err := m.store.CreateRoom(ctx, room); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create room", err)
	}
	m.log.Info("room created", zap.String("room_id", room.RoomID), zap.String("name", room.Name))
	return room, nil
}

func (m *Manager) List(ctx context.Context) ([]store.Room, error) {
	rooms, err := m.store.ListRooms(ctx, 100)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list rooms", err)
	}
	return rooms, nil
}

func (m *Manager) get(ctx context.Context, roomID string) (*store.Room, error) {
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Newf(apperr.NotFound, "room %s not found", roomID)
		}
		return nil, apperr.Wrap(apperr.Internal, "load room", err)
	}
	return room, nil
}

type JoinResult struct {
	Session     session.Session
	IsSpectator bool
	Room        *store.Room
}

// Join seats name in the room, or reconnects it to the seat it already
// holds, or falls back to a spectator token once the room has started or
// filled up.
func (m *Manager) Join(ctx context.Context, roomID, name string) (*JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.New(apperr.Validation, "user name is required")
	}

	lk := m.lock(roomID)
	lk.Lock()
	defer lk.Unlock()

	room, err := m.get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// Reconnect: the seat keeps its occupant, only the token is fresh.
	for _, seat := range room.Seats {
		if !seat.Empty() && *seat.Occupant == name {
			color := game.Color(seat.Color)
			sess := m.sessions.Issue(name, roomID, &color)
			return &JoinResult{Session: sess, Room: room}, nil
		}
	}

	if room.Started {
		return m.joinAsSpectator(name, room), nil
	}

	for i, seat := range room.Seats {
		if seat.Empty() {
			occupant := name
			room.Seats[i].Occupant = &occupant
			if err := m.store.SaveRoom(ctx, room); err != nil {
				return nil, apperr.Wrap(apperr.Internal, "save room", err)
			}
			color := game.Color(seat.Color)
			sess := m.sessions.Issue(name, roomID, &color)
			m.publish(room)
			return &JoinResult{Session: sess, Room: room}, nil
		}
	}

	// Full but unstarted; should not normally occur with a fixed seat list.
	return m.joinAsSpectator(name, room), nil
}

func (m *Manager) joinAsSpectator(name string, room *store.Room) *JoinResult {
	sess := m.sessions.Issue(name, room.RoomID, nil)
	return &JoinResult{Session: sess, IsSpectator: true, Room: room}
}

// Leave frees the session's seat and revokes its token. A seated session
// cannot leave once the game has started.
func (m *Manager) Leave(ctx context.Context, sess session.Session) (*store.Room, error) {
	lk := m.lock(sess.RoomID)
	lk.Lock()
	defer lk.Unlock()

	room, err := m.get(ctx, sess.RoomID)
	if err != nil {
		return nil, err
	}
	if room.Started && sess.SeatColor != nil {
		return nil, apperr.New(apperr.Validation, "cannot leave while the game is in progress")
	}

	if sess.SeatColor != nil {
		for i, seat := range room.Seats {
			if seat.Color == string(*sess.SeatColor) {
				room.Seats[i].Occupant = nil
			}
		}
		if err := m.store.SaveRoom(ctx, room); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "save room", err)
		}
		m.publish(room)
	}
	m.sessions.Revoke(sess.Token)
	return room, nil
}

// RefreshBoard rerolls the board seed. Host only, and only before start.
func (m *Manager) RefreshBoard(ctx context.Context, sess session.Session) (*store.Room, error) {
	lk := m.lock(sess.RoomID)
	lk.Lock()
	defer lk.Unlock()

	room, err := m.get(ctx, sess.RoomID)
	if err != nil {
		return nil, err
	}
	if !isHost(sess) {
		return nil, apperr.New(apperr.Forbidden, "only the host may change the board")
	}
	if room.Started {
		return nil, apperr.New(apperr.Validation, "board cannot change after the game has started")
	}
	seed, err := play.RandomSeed()
	if err != nil {
		return nil, err
	}
	room.BoardSeed = seed
	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "save room", err)
	}
	m.publish(room)
	return room, nil
}

// Start builds the game from the stored board seed and the occupied seats,
// writes its version-0 snapshot, and binds it to the room. Idempotent once
// the room is started with a bound game.
func (m *Manager) Start(ctx context.Context, sess session.Session) (string, error) {
	lk := m.lock(sess.RoomID)
	lk.Lock()
	defer lk.Unlock()

	room, err := m.get(ctx, sess.RoomID)
	if err != nil {
		return "", err
	}
	if !isHost(sess) {
		return "", apperr.New(apperr.Forbidden, "only the host may start the game")
	}
	if room.Started && room.GameID != nil {
		return *room.GameID, nil
	}

	var participants []game.Participant
	for _, seat := range room.Seats {
		if !seat.Empty() {
			participants = append(participants, game.Participant{
				Color: game.Color(seat.Color),
				Kind:  game.KindHuman,
			})
		}
	}
	if len(participants) < MinPlayersToStart {
		return "", apperr.Newf(apperr.Validation, "at least %d players are required", MinPlayersToStart)
	}

	g, snap, err := m.gateway.CreateGame(ctx, participants, room.BoardSeed)
	if err != nil {
		return "", err
	}
	room.GameID = &g.ID
	room.Started = true
	version := snap.Version
	room.LatestVersion = &version
	if err := m.store.SaveRoom(ctx, room); err != nil {
		return "", apperr.Wrap(apperr.Internal, "save room", err)
	}
	m.log.Info("room started",
		zap.String("room_id", room.RoomID),
		zap.String("game_id", g.ID),
		zap.Int("players", len(participants)))
	m.publish(room)
	return g.ID, nil
}

// Status returns the room and, when a valid token for it is presented, the
// viewer's session.
func (m *Manager) Status(ctx context.Context, roomID, token string) (*store.Room, *session.Session, error) {
	room, err := m.get(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	if token == "" {
		return room, nil, nil
	}
	sess, ok := m.sessions.Lookup(token)
	if !ok {
		return nil, nil, apperr.New(apperr.Auth, "invalid session token")
	}
	if sess.RoomID != roomID {
		return nil, nil, apperr.New(apperr.Forbidden, "token belongs to another room")
	}
	return room, &sess, nil
}

// Game returns the snapshot at version (store.Latest for newest) of the
// room's bound game.
func (m *Manager) Game(ctx context.Context, sess session.Session, version int) (*store.Snapshot, error) {
	room, err := m.get(ctx, sess.RoomID)
	if err != nil {
		return nil, err
	}
	if room.GameID == nil {
		return nil, apperr.New(apperr.Validation, "the game has not started")
	}
	_, snap, err := m.gateway.Load(ctx, *room.GameID, version)
	return snap, err
}

// SubmitAction applies one action to the room's game under the room lock,
// then refreshes the room's cached latest version.
func (m *Manager) SubmitAction(ctx context.Context, sess session.Session, raw json.RawMessage, expected *int) (*store.Snapshot, error) {
	lk := m.lock(sess.RoomID)
	lk.Lock()
	defer lk.Unlock()

	room, err := m.get(ctx, sess.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.Started || room.GameID == nil {
		return nil, apperr.New(apperr.Validation, "the game has not started")
	}

	snap, err := m.gateway.Submit(ctx, *room.GameID, sess.SeatColor, raw, expected)
	if err != nil {
		return nil, err
	}
	version := snap.Version
	room.LatestVersion = &version
	if err := m.store.SaveRoom(ctx, room); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "save room", err)
	}
	m.publish(room)
	return snap, nil
}

func isHost(sess session.Session) bool {
	return sess.SeatColor != nil && *sess.SeatColor == game.SeatOrder[0]
}
