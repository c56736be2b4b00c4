package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes builds the router. The websocket handler is injected so this
// package does not depend on the ws package.
func (s *Server) SetupRoutes(wsHandler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.healthz)
	r.Get("/ws", wsHandler)

	r.Route("/api/games", func(r chi.Router) {
		r.Post("/", s.createGame)
		r.Get("/", s.listGames)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Delete("/", s.deleteGame)
			r.Post("/actions", s.postGameAction)
			r.Get("/events", s.listGameEvents)
			r.Get("/states/{version}", s.getGameState)
			r.Post("/states/{version}/negotiation-advice", s.negotiationAdvice)
		})
	})

	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", s.listRooms)
		r.Post("/", s.createRoom)
		r.Route("/{roomID}", func(r chi.Router) {
			r.Get("/", s.roomStatus)
			r.Post("/join", s.joinRoom)
			r.Post("/leave", s.leaveRoom)
			r.Post("/refresh-board", s.refreshBoard)
			r.Post("/start", s.startRoom)
			r.Get("/game", s.roomGame)
			r.Post("/game/actions", s.roomAction)
		})
	})

	return r
}
