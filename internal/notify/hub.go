// Package notify fans room change notifications out to websocket
// subscribers. A single actor loop owns the subscription table, so no lock
// is needed; slow subscribers are dropped rather than allowed to block a
// publish.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/caravangame/caravan-server/internal/store"
	"github.com/caravangame/caravan-server/pkg/types"
)

type Msg interface{ isHubMsg() }

type Subscribe struct {
	RoomID   string
	ClientID string
	Outbox   chan types.RoomUpdate
}

func (Subscribe) isHubMsg() {}

type Unsubscribe struct {
	RoomID   string
	ClientID string
}

func (Unsubscribe) isHubMsg() {}

type Publish struct {
	Update types.RoomUpdate
}

func (Publish) isHubMsg() {}

type Shutdown struct{}

func (Shutdown) isHubMsg() {}

type Hub struct {
	inbox  chan Msg
	rooms  map[string]map[string]chan types.RoomUpdate
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]map[string]chan types.RoomUpdate),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

// PublishRoom satisfies room.Publisher. It never blocks a request worker:
// if the hub is saturated the notification is dropped, clients resync on
// their next poll.
func (h *Hub) PublishRoom(room *store.Room) {
	update := types.RoomUpdate{
		Type:          "RoomUpdate",
		RoomID:        room.RoomID,
		Started:       room.Started,
		GameID:        room.GameID,
		LatestVersion: room.LatestVersion,
	}
	select {
	case h.inbox <- Publish{Update: update}:
	default:
		h.log.Warn("notify hub saturated, dropping update", zap.String("room_id", room.RoomID))
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Subscribe:
				subs, ok := h.rooms[msg.RoomID]
				if !ok {
					subs = make(map[string]chan types.RoomUpdate)
					h.rooms[msg.RoomID] = subs
				}
				subs[msg.ClientID] = msg.Outbox

			case Unsubscribe:
				if subs, ok := h.rooms[msg.RoomID]; ok {
					if ch, ok := subs[msg.ClientID]; ok {
						close(ch)
						delete(subs, msg.ClientID)
					}
					if len(subs) == 0 {
						delete(h.rooms, msg.RoomID)
					}
				}

			case Publish:
				h.broadcast(msg.Update)

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) broadcast(update types.RoomUpdate) {
	subs := h.rooms[update.RoomID]
	for id, ch := range subs {
		select {
		case ch <- update:
		default:
			// Subscriber is slow or full; drop it.
			close(ch)
			delete(subs, id)
		}
	}
}

func (h *Hub) shutdown() {
	for roomID, subs := range h.rooms {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(h.rooms, roomID)
	}
	h.cancel()
}
