package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caravangame/caravan-server/internal/game"
)

func TestIssueLookupRevoke(t *testing.T) {
	r := NewRegistry()
	seat := game.Red

	sess := r.Issue("ada", "room-1", &seat)
	require.NotEmpty(t, sess.Token)
	require.False(t, sess.Spectator())

	got, ok := r.Lookup(sess.Token)
	require.True(t, ok)
	require.Equal(t, sess, got)

	r.Revoke(sess.Token)
	_, ok = r.Lookup(sess.Token)
	require.False(t, ok)

	// Revoking an unknown token is a no-op.
	r.Revoke("nope")
}

func TestIssue_SpectatorHasNoSeat(t *testing.T) {
	r := NewRegistry()
	sess := r.Issue("bob", "room-1", nil)
	require.True(t, sess.Spectator())
	require.Nil(t, sess.SeatColor)
}

func TestIssue_CopiesSeatPointer(t *testing.T) {
	r := NewRegistry()
	seat := game.Blue
	sess := r.Issue("ada", "room-1", &seat)

	seat = game.Orange
	got, ok := r.Lookup(sess.Token)
	require.True(t, ok)
	require.Equal(t, game.Blue, *got.SeatColor)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := r.Issue("ada", "room-1", nil)
		require.False(t, seen[s.Token])
		seen[s.Token] = true
	}
}
