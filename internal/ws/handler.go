// Package ws bridges websocket connections to the notify hub so clients can
// watch a room for seat and version changes without polling.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caravangame/caravan-server/internal/apperr"
	"github.com/caravangame/caravan-server/internal/notify"
	"github.com/caravangame/caravan-server/internal/room"
	"github.com/caravangame/caravan-server/pkg/types"
)

func Handler(hub *notify.Hub, rooms *room.Manager, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			http.Error(w, "missing room", http.StatusBadRequest)
			return
		}
		if _, _, err := rooms.Status(r.Context(), roomID, ""); err != nil {
			http.Error(w, err.Error(), apperr.HTTPStatus(err))
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.RoomUpdate, 8)
		clientID := uuid.NewString()
		hub.Inbox() <- notify.Subscribe{RoomID: roomID, ClientID: clientID, Outbox: out}
		defer func() {
			hub.Inbox() <- notify.Unsubscribe{RoomID: roomID, ClientID: clientID}
		}()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for update := range out {
				payload, err := json.Marshal(update)
				if err != nil {
					log.Warn("encode room update", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Clients only listen on this socket; the read loop exists to notice
		// the close.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}
}
