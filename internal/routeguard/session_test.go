package routeguard

import (
	"errors"
	"testing"

	"buildbid/internal/domain/accesscontrol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionObserve(t *testing.T) {
	signedIn := Snapshot{Authenticated: true, RoleCode: accesscontrol.RoleModerator}

	t.Run("stores successful resolutions", func(t *testing.T) {
		var s Session

		got := s.Observe(signedIn, nil)
		assert.Equal(t, signedIn, got)

		held, ok := s.Current()
		require.True(t, ok)
		assert.Equal(t, signedIn, held)
	})

	t.Run("loading snapshots pass through without being stored", func(t *testing.T) {
		var s Session

		got := s.Observe(Snapshot{Loading: true}, nil)
		assert.True(t, got.Loading)

		_, ok := s.Current()
		assert.False(t, ok)
	})

	t.Run("transient error keeps the last-known identity", func(t *testing.T) {
		var s Session
		s.Observe(signedIn, nil)

		got := s.Observe(Snapshot{}, errors.New("profile fetch: connection reset"))
		assert.Equal(t, signedIn, got, "a flaky fetch must not log the user out")
	})

	t.Run("transient error with nothing held keeps loading", func(t *testing.T) {
		var s Session

		got := s.Observe(Snapshot{}, errors.New("profile fetch: timeout"))
		assert.True(t, got.Loading)
		assert.False(t, got.Authenticated)
	})

	t.Run("only the unauthenticated signal clears the session", func(t *testing.T) {
		var s Session
		s.Observe(signedIn, nil)

		got := s.Observe(Snapshot{}, ErrUnauthenticated)
		assert.False(t, got.Authenticated)
		assert.False(t, got.Loading)

		_, ok := s.Current()
		assert.False(t, ok)
	})

	t.Run("wrapped unauthenticated errors clear too", func(t *testing.T) {
		var s Session
		s.Observe(signedIn, nil)

		wrapped := errors.Join(errors.New("refresh rejected"), ErrUnauthenticated)
		got := s.Observe(Snapshot{}, wrapped)
		assert.False(t, got.Authenticated)

		_, ok := s.Current()
		assert.False(t, ok)
	})

	t.Run("guard holds on a transient error mid-session", func(t *testing.T) {
		var s Session
		guard := newTestGuard(t)

		s.Observe(signedIn, nil)
		snap := s.Observe(Snapshot{}, errors.New("temporarily unavailable"))

		res := guard.Evaluate(snap, ScreenPolicy{RequireAdminConsole: true})
		assert.Equal(t, StateAllowed, res.State, "held identity keeps the screen rendered")
	})
}
