// Package httpapi exposes the room and game operations over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/caravangame/caravan-server/internal/advice"
	"github.com/caravangame/caravan-server/internal/apperr"
	"github.com/caravangame/caravan-server/internal/play"
	"github.com/caravangame/caravan-server/internal/room"
	"github.com/caravangame/caravan-server/internal/session"
	"github.com/caravangame/caravan-server/internal/store"
)

// TokenHeader carries the session token issued on join.
const TokenHeader = "X-Session-Token"

type Server struct {
	rooms    *room.Manager
	games    *play.Gateway
	store    store.Store
	sessions *session.Registry
	advisor  *advice.Advisor
	log      *zap.Logger
}

func NewServer(rooms *room.Manager, games *play.Gateway, st store.Store, sessions *session.Registry, advisor *advice.Advisor, log *zap.Logger) *Server {
	return &Server{
		rooms:    rooms,
		games:    games,
		store:    st,
		sessions: sessions,
		advisor:  advisor,
		log:      log,
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", zap.Error(err))
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("internal error", zap.Error(err))
		msg = "internal error"
	}
	s.respond(w, status, errorBody{Error: errorDetail{Code: apperr.Code(err), Message: msg}})
}

func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid JSON body", err)
	}
	return nil
}

// requireSession resolves the token header into a session, optionally bound
// to a specific room.
func (s *Server) requireSession(r *http.Request, roomID string) (session.Session, error) {
	token := r.Header.Get(TokenHeader)
	if token == "" {
		return session.Session{}, apperr.New(apperr.Auth, "session token required")
	}
	sess, ok := s.sessions.Lookup(token)
	if !ok {
		return session.Session{}, apperr.New(apperr.Auth, "invalid session token")
	}
	if roomID != "" && sess.RoomID != roomID {
		return session.Session{}, apperr.New(apperr.Forbidden, "token belongs to another room")
	}
	return sess, nil
}

// parseVersion maps "latest" (or empty) to store.Latest, otherwise a
// non-negative integer.
func parseVersion(s string) (int, error) {
	if s == "" || s == "latest" {
		return store.Latest, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, apperr.Newf(apperr.Validation, "version must be a non-negative integer or %q", "latest")
	}
	return v, nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
