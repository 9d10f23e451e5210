package routeguard

import (
	"errors"
	"sync"
)

// ErrUnauthenticated is the explicit signal that the session is gone. Only
// this clears the held identity; any other resolution error keeps the
// last-known snapshot so a flaky profile fetch does not force a logout.
var ErrUnauthenticated = errors.New("unauthenticated")

// Session holds the last-known identity snapshot between resolutions. The
// guard itself is stateless; this is the one piece of client state the
// failure semantics need.
type Session struct {
	mu      sync.Mutex
	last    Snapshot
	haveOne bool
}

// Observe folds a fresh resolution attempt into the session and returns the
// snapshot the guard should evaluate.
//
//   - err == nil: the snapshot is stored (once it has finished loading) and
//     returned as-is.
//   - errors.Is(err, ErrUnauthenticated): session state is cleared and an
//     unauthenticated snapshot returned; the guard will redirect to sign-in.
//   - any other err: transient failure; the last-known snapshot is returned
//     if there is one, otherwise a loading snapshot to keep the guard in its
//     holding pattern.
func (s *Session) Observe(snap Snapshot, err error) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			s.last = Snapshot{}
			s.haveOne = false
			return Snapshot{Authenticated: false}
		}
		if s.haveOne {
			return s.last
		}
		return Snapshot{Loading: true}
	}

	if !snap.Loading {
		s.last = snap
		s.haveOne = s.last.Authenticated
	}
	return snap
}

// Current returns the held snapshot, if any.
func (s *Session) Current() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.haveOne
}
