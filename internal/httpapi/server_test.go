package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/caravangame/caravan-server/internal/advice"
	"github.com/caravangame/caravan-server/internal/game"
	"github.com/caravangame/caravan-server/internal/play"
	"github.com/caravangame/caravan-server/internal/room"
	"github.com/caravangame/caravan-server/internal/session"
	"github.com/caravangame/caravan-server/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zap.NewNop()
	st := store.NewMemory()
	gw := play.NewGateway(st, game.NewEngine(), log)
	reg := session.NewRegistry()
	rooms := room.NewManager(st, reg, gw, log)
	advisor := advice.New("", "gpt-4o-mini", "", log)

	api := NewServer(rooms, gw, st, reg, advisor, log)
	srv := httptest.NewServer(api.SetupRoutes(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotImplemented)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// call sends a JSON request and decodes the JSON response into a generic map.
func call(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	return e["code"].(string)
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, created := call(t, http.MethodPost, srv.URL+"/api/rooms", "", map[string]any{"room_name": "Friday"})
	require.Equal(t, http.StatusCreated, status)
	roomID := created["room_id"].(string)
	require.Equal(t, "Friday", created["name"])

	status, joined := call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/join", "", map[string]any{"user_name": "ada"})
	require.Equal(t, http.StatusOK, status)
	hostToken := joined["token"].(string)
	require.Equal(t, "RED", *strPtrFromAny(joined["seat_color"]))
	require.False(t, joined["is_spectator"].(bool))

	seats := joined["room"].(map[string]any)["seats"].([]any)
	require.True(t, seats[0].(map[string]any)["is_you"].(bool))

	status, _ = call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/join", "", map[string]any{"user_name": "bob"})
	require.Equal(t, http.StatusOK, status)

	status, started := call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/start", hostToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, started["game_id"])

	status, snap := call(t, http.MethodGet, srv.URL+"/api/rooms/"+roomID+"/game?version=latest", hostToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 0, snap["version"])

	status, next := call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/game/actions", hostToken, map[string]any{
		"action":           map[string]any{"type": "ROLL", "color": "RED"},
		"expected_version": 0,
	})
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, next["version"])

	// A second submit against the already consumed version conflicts.
	status, conflict := call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/game/actions", hostToken, map[string]any{
		"action":           map[string]any{"type": "END_TURN", "color": "RED"},
		"expected_version": 0,
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "conflict", errorCode(t, conflict))

	// Seated players are committed once the game runs.
	status, leave := call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/leave", hostToken, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "validation_error", errorCode(t, leave))
}

func TestStandaloneGameOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, created := call(t, http.MethodPost, srv.URL+"/api/games", "", map[string]any{"players": []string{"RANDOM", "GREEDY"}})
	require.Equal(t, http.StatusOK, status)
	gameID := created["game_id"].(string)

	status, snap := call(t, http.MethodGet, srv.URL+"/api/games/"+gameID+"/states/latest", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 0, snap["version"])

	// Empty body ticks the automated seat.
	status, ticked := call(t, http.MethodPost, srv.URL+"/api/games/"+gameID+"/actions", "", map[string]any{})
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, ticked["version"])

	status, events := call(t, http.MethodGet, srv.URL+"/api/games/"+gameID+"/events?event_type=GAME_CREATED", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, events["events"].([]any), 1)

	status, listed := call(t, http.MethodGet, srv.URL+"/api/games", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, listed["games"].([]any))

	status, deleted := call(t, http.MethodDelete, srv.URL+"/api/games/"+gameID, "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, deleted["deleted"])

	status, gone := call(t, http.MethodDelete, srv.URL+"/api/games/"+gameID, "", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "not_found", errorCode(t, gone))
}

func TestAuthAndValidationErrorsOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	status, created := call(t, http.MethodPost, srv.URL+"/api/rooms", "", nil)
	require.Equal(t, http.StatusCreated, status)
	roomID := created["room_id"].(string)

	status, body := call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/game/actions", "", map[string]any{
		"action": map[string]any{"type": "ROLL", "color": "RED"},
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "auth_error", errorCode(t, body))

	status, body = call(t, http.MethodGet, srv.URL+"/api/rooms/does-not-exist", "", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "not_found", errorCode(t, body))

	// A token issued for one room cannot act on another.
	status, otherRoom := call(t, http.MethodPost, srv.URL+"/api/rooms", "", nil)
	require.Equal(t, http.StatusCreated, status)
	status, joined := call(t, http.MethodPost, srv.URL+"/api/rooms/"+otherRoom["room_id"].(string)+"/join", "", map[string]any{"user_name": "eve"})
	require.Equal(t, http.StatusOK, status)
	status, body = call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/leave", joined["token"].(string), nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "authorization_error", errorCode(t, body))

	// Missing action field.
	status, joined = call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/join", "", map[string]any{"user_name": "ada"})
	require.Equal(t, http.StatusOK, status)
	status, body = call(t, http.MethodPost, srv.URL+"/api/rooms/"+roomID+"/game/actions", joined["token"].(string), map[string]any{})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "validation_error", errorCode(t, body))
}

func TestNegotiationAdviceUnavailableWithoutKey(t *testing.T) {
	srv := newTestServer(t)

	status, created := call(t, http.MethodPost, srv.URL+"/api/games", "", map[string]any{"players": []string{"HUMAN", "HUMAN"}})
	require.Equal(t, http.StatusOK, status)
	gameID := created["game_id"].(string)

	status, body := call(t, http.MethodPost, srv.URL+"/api/games/"+gameID+"/states/latest/negotiation-advice", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, false, body["success"])
}

func strPtrFromAny(v any) *string {
	if v == nil {
		return nil
	}
	s := v.(string)
	return &s
}
