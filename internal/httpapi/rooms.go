package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caravangame/caravan-server/internal/session"
	"github.com/caravangame/caravan-server/internal/store"
	"github.com/caravangame/caravan-server/pkg/types"
)

func roomView(r *store.Room, sess *session.Session) types.RoomView {
	seats := make([]types.SeatView, len(r.Seats))
	for i, seat := range r.Seats {
		isYou := sess != nil &&
			sess.RoomID == r.RoomID &&
			sess.SeatColor != nil &&
			string(*sess.SeatColor) == seat.Color
		seats[i] = types.SeatView{Color: seat.Color, Occupant: seat.Occupant, IsYou: isYou}
	}
	return types.RoomView{
		RoomID:        r.RoomID,
		Name:          r.Name,
		Seats:         seats,
		Started:       r.Started,
		GameID:        r.GameID,
		LatestVersion: r.LatestVersion,
		BoardSeed:     r.BoardSeed,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.List(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}
	views := make([]types.RoomView, len(rooms))
	for i := range rooms {
		views[i] = roomView(&rooms[i], nil)
	}
	s.respond(w, http.StatusOK, map[string]any{"rooms": views})
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RoomName string `json:"room_name"`
	}
	if r.ContentLength != 0 {
		if err := s.decode(r, &body); err != nil {
			s.renderError(w, err)
			return
		}
	}
	created, err := s.rooms.Create(r.Context(), body.RoomName)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusCreated, roomView(created, nil))
}

func (s *Server) roomStatus(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	rm, sess, err := s.rooms.Status(r.Context(), roomID, r.Header.Get(TokenHeader))
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, roomView(rm, sess))
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserName string `json:"user_name"`
	}
	if err := s.decode(r, &body); err != nil {
		s.renderError(w, err)
		return
	}
	res, err := s.rooms.Join(r.Context(), chi.URLParam(r, "roomID"), body.UserName)
	if err != nil {
		s.renderError(w, err)
		return
	}
	view := types.JoinView{
		Token:       res.Session.Token,
		UserName:    res.Session.Name,
		IsSpectator: res.IsSpectator,
		Room:        roomView(res.Room, &res.Session),
	}
	if res.Session.SeatColor != nil {
		c := string(*res.Session.SeatColor)
		view.SeatColor = &c
	}
	s.respond(w, http.StatusOK, view)
}

func (s *Server) leaveRoom(w http.ResponseWriter, r *http.Request) {
	sess, err := s.requireSession(r, chi.URLParam(r, "roomID"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	rm, err := s.rooms.Leave(r.Context(), sess)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"room": roomView(rm, nil)})
}

func (s *Server) refreshBoard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.requireSession(r, chi.URLParam(r, "roomID"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	rm, err := s.rooms.RefreshBoard(r.Context(), sess)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"room": roomView(rm, &sess)})
}

func (s *Server) startRoom(w http.ResponseWriter, r *http.Request) {
	sess, err := s.requireSession(r, chi.URLParam(r, "roomID"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	gameID, err := s.rooms.Start(r.Context(), sess)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"game_id": gameID})
}

func (s *Server) roomGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.requireSession(r, chi.URLParam(r, "roomID"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	version, err := parseVersion(r.URL.Query().Get("version"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	snap, err := s.rooms.Game(r.Context(), sess, version)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, snapshotView(snap))
}

func (s *Server) roomAction(w http.ResponseWriter, r *http.Request) {
	sess, err := s.requireSession(r, chi.URLParam(r, "roomID"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	var body struct {
		Action          json.RawMessage `json:"action"`
		ExpectedVersion *int            `json:"expected_version"`
	}
	if err := s.decode(r, &body); err != nil {
		s.renderError(w, err)
		return
	}
	if len(body.Action) == 0 {
		s.renderError(w, errActionRequired)
		return
	}
	snap, err := s.rooms.SubmitAction(r.Context(), sess, body.Action, body.ExpectedVersion)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, snapshotView(snap))
}

func snapshotView(snap *store.Snapshot) types.SnapshotView {
	return types.SnapshotView{
		GameID:  snap.GameID,
		Version: snap.Version,
		Game:    json.RawMessage(snap.Projection),
	}
}
