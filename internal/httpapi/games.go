package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/caravangame/caravan-server/internal/advice"
	"github.com/caravangame/caravan-server/internal/apperr"
	"github.com/caravangame/caravan-server/internal/game"
	"github.com/caravangame/caravan-server/internal/play"
	"github.com/caravangame/caravan-server/internal/store"
	"github.com/caravangame/caravan-server/pkg/types"
)

var errActionRequired = apperr.New(apperr.Validation, "action field is required")

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Players []string `json:"players"`
	}
	if err := s.decode(r, &body); err != nil {
		s.renderError(w, err)
		return
	}
	if len(body.Players) == 0 {
		s.renderError(w, apperr.New(apperr.Validation, "players is required"))
		return
	}
	participants, err := play.ParticipantsFromKeys(body.Players)
	if err != nil {
		s.renderError(w, err)
		return
	}
	seed, err := play.RandomSeed()
	if err != nil {
		s.renderError(w, err)
		return
	}
	g, _, err := s.games.CreateGame(r.Context(), participants, seed)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"game_id": g.ID})
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListSummaries(r.Context(), 200)
	if err != nil {
		s.renderError(w, apperr.Wrap(apperr.Internal, "list games", err))
		return
	}
	views := make([]types.GameSummaryView, len(summaries))
	for i, sum := range summaries {
		views[i] = types.GameSummaryView{
			GameID:       sum.GameID,
			Version:      sum.LatestVersion,
			SeatColors:   sum.SeatColors,
			CurrentColor: sum.CurrentColor,
			WinningColor: sum.WinningColor,
			UpdatedAt:    sum.UpdatedAt.Format(time.RFC3339),
		}
	}
	s.respond(w, http.StatusOK, map[string]any{"games": views})
}

func (s *Server) deleteGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	removed, err := s.store.DeleteGame(r.Context(), gameID)
	if err != nil {
		s.renderError(w, apperr.Wrap(apperr.Internal, "delete game", err))
		return
	}
	if removed == 0 {
		s.renderError(w, apperr.Newf(apperr.NotFound, "game %s not found", gameID))
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"deleted": true, "game_id": gameID})
}

func (s *Server) getGameState(w http.ResponseWriter, r *http.Request) {
	version, err := parseVersion(chi.URLParam(r, "version"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	gameID := chi.URLParam(r, "gameID")
	snap, err := s.store.GetSnapshot(r.Context(), gameID, version)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.renderError(w, apperr.Newf(apperr.NotFound, "game %s not found", gameID))
			return
		}
		s.renderError(w, apperr.Wrap(apperr.Internal, "load snapshot", err))
		return
	}
	s.respond(w, http.StatusOK, snapshotView(snap))
}

func (s *Server) listGameEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListEvents(r.Context(), chi.URLParam(r, "gameID"), r.URL.Query().Get("event_type"))
	if err != nil {
		s.renderError(w, apperr.Wrap(apperr.Internal, "list events", err))
		return
	}
	views := make([]types.EventView, len(events))
	for i, ev := range events {
		views[i] = types.EventView{
			EventID:   ev.ID,
			GameID:    ev.GameID,
			Version:   ev.Version,
			EventType: ev.Type,
			Payload:   json.RawMessage(ev.Payload),
			CreatedAt: ev.CreatedAt.Format(time.RFC3339),
		}
	}
	s.respond(w, http.StatusOK, map[string]any{"events": views})
}

// postGameAction is the standalone game path: a non-empty body is applied as
// a direct action; an empty body ticks the current automated participant or
// absorbs pending automated negotiation responses.
func (s *Server) postGameAction(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.renderError(w, apperr.Wrap(apperr.Validation, "read body", err))
		return
	}

	var snap *store.Snapshot
	if emptyBody(body) {
		snap, err = s.games.Tick(r.Context(), gameID)
	} else {
		snap, err = s.games.Apply(r.Context(), gameID, body)
	}
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.respond(w, http.StatusOK, snapshotView(snap))
}

func emptyBody(b []byte) bool {
	var v any
	if len(b) == 0 {
		return true
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

func (s *Server) negotiationAdvice(w http.ResponseWriter, r *http.Request) {
	version, err := parseVersion(chi.URLParam(r, "version"))
	if err != nil {
		s.renderError(w, err)
		return
	}
	gameID := chi.URLParam(r, "gameID")
	g, snap, err := s.games.Load(r.Context(), gameID, version)
	if err != nil {
		s.renderError(w, err)
		return
	}

	var body struct {
		RequesterColor string `json:"requester_color"`
	}
	if r.ContentLength != 0 {
		if err := s.decode(r, &body); err != nil {
			s.renderError(w, err)
			return
		}
	}
	requester := resolveRequester(g, body.RequesterColor)

	payload, _ := json.Marshal(map[string]any{
		"requester_color": requester,
		"current_color":   g.State.CurrentColor(),
	})
	ev := &store.Event{GameID: gameID, Version: &snap.Version, Type: play.EventAdviceRequested, Payload: payload}
	if err := s.store.AppendEvent(r.Context(), ev); err != nil {
		s.log.Warn("append advice event", zap.String("game_id", gameID), zap.Error(err))
	}

	text, err := s.advisor.Advise(r.Context(), g, requester)
	if err != nil {
		if errors.Is(err, advice.ErrUnavailable) {
			s.respond(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": err.Error()})
			return
		}
		s.log.Error("negotiation advice failed", zap.String("game_id", gameID), zap.Error(err))
		s.respond(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"success": true, "advice": text})
}

// resolveRequester prefers an explicitly requested seated color, then the
// current actor when human, then a sole human participant.
func resolveRequester(g *game.Game, requested string) *game.Color {
	if c, ok := game.ParseColor(requested); ok && g.Seat(c) >= 0 {
		return &c
	}
	current := g.State.CurrentColor()
	if seat := g.Seat(current); seat >= 0 && !g.Participants[seat].Bot() {
		return &current
	}
	var humans []game.Color
	for _, p := range g.Participants {
		if !p.Bot() {
			humans = append(humans, p.Color)
		}
	}
	if len(humans) == 1 {
		return &humans[0]
	}
	return nil
}
