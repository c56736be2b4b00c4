package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func appendVersion(t *testing.T, m *Memory, gameID string, state string) *Snapshot {
	t.Helper()
	snap := &Snapshot{GameID: gameID, State: []byte(state), Projection: []byte(`{}`)}
	_, err := m.AppendSnapshot(context.Background(), snap, &Summary{SeatColors: []string{"RED", "BLUE"}})
	require.NoError(t, err)
	return snap
}

func TestAppendSnapshot_AssignsContiguousVersions(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 3; i++ {
		snap := appendVersion(t, m, "g1", "state")
		require.Equal(t, i, snap.Version)
	}

	// Another game's version sequence is independent.
	snap := appendVersion(t, m, "g2", "state")
	require.Equal(t, 0, snap.Version)

	sum, err := m.GetSummary(context.Background(), "g1")
	require.NoError(t, err)
	require.Equal(t, 2, sum.LatestVersion, "summary must track the newest version")
	require.Equal(t, []string{"RED", "BLUE"}, sum.SeatColors)
}

func TestGetSnapshot_ByVersionAndLatest(t *testing.T) {
	m := NewMemory()
	appendVersion(t, m, "g1", "v0")
	appendVersion(t, m, "g1", "v1")

	snap, err := m.GetSnapshot(context.Background(), "g1", 0)
	require.NoError(t, err)
	require.Equal(t, []byte("v0"), snap.State)

	snap, err = m.GetSnapshot(context.Background(), "g1", Latest)
	require.NoError(t, err)
	require.Equal(t, 1, snap.Version)
	require.Equal(t, []byte("v1"), snap.State)

	_, err = m.GetSnapshot(context.Background(), "g1", 7)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetSnapshot(context.Background(), "missing", Latest)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetSnapshot_ReturnsACopy(t *testing.T) {
	m := NewMemory()
	appendVersion(t, m, "g1", "v0")

	a, err := m.GetSnapshot(context.Background(), "g1", 0)
	require.NoError(t, err)
	a.State[0] = 'X'

	b, err := m.GetSnapshot(context.Background(), "g1", 0)
	require.NoError(t, err)
	require.Equal(t, []byte("v0"), b.State)
}

func TestDeleteGame_RemovesEverythingAndIsIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	appendVersion(t, m, "g1", "v0")
	appendVersion(t, m, "g1", "v1")
	require.NoError(t, m.AppendEvent(ctx, &Event{GameID: "g1", Type: "GAME_CREATED"}))
	appendVersion(t, m, "g2", "v0")

	removed, err := m.DeleteGame(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, int64(4), removed, "two snapshots, one summary, one event")

	_, err = m.GetSnapshot(ctx, "g1", Latest)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetSummary(ctx, "g1")
	require.ErrorIs(t, err, ErrNotFound)
	events, err := m.ListEvents(ctx, "g1", "")
	require.NoError(t, err)
	require.Empty(t, events)

	// Untouched game survives.
	_, err = m.GetSnapshot(ctx, "g2", Latest)
	require.NoError(t, err)

	removed, err = m.DeleteGame(ctx, "g1")
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestListEvents_FiltersByType(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AppendEvent(ctx, &Event{GameID: "g1", Type: "GAME_CREATED"}))
	require.NoError(t, m.AppendEvent(ctx, &Event{GameID: "g1", Type: "ACTION_APPLIED"}))
	require.NoError(t, m.AppendEvent(ctx, &Event{GameID: "g2", Type: "ACTION_APPLIED"}))

	all, err := m.ListEvents(ctx, "g1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Less(t, all[0].ID, all[1].ID, "oldest first")

	filtered, err := m.ListEvents(ctx, "g1", "action_applied")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "ACTION_APPLIED", filtered[0].Type)
}

func TestRooms_CreateSaveList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := &Room{RoomID: "r1", Name: "First", Seats: []Seat{{Color: "RED"}}}
	require.NoError(t, m.CreateRoom(ctx, first))
	second := &Room{RoomID: "r2", Name: "Second"}
	require.NoError(t, m.CreateRoom(ctx, second))

	got, err := m.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "First", got.Name)

	occupant := "ada"
	got.Seats[0].Occupant = &occupant
	require.NoError(t, m.SaveRoom(ctx, got))

	again, err := m.GetRoom(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, again.Seats[0].Occupant)
	require.Equal(t, "ada", *again.Seats[0].Occupant)
	require.True(t, again.UpdatedAt.After(again.CreatedAt) || again.UpdatedAt.Equal(again.CreatedAt))

	rooms, err := m.ListRooms(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.Equal(t, "r2", rooms[0].RoomID, "newest first")

	require.ErrorIs(t, m.SaveRoom(ctx, &Room{RoomID: "missing"}), ErrNotFound)
	_, err = m.GetRoom(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
