package relay

import (
	"errors"
	"sync"

	"github.com/zapxfer/zap/internal/protocol"
)

// ErrDuplicateRole reports a second registration of the same role under one
// code hash. The original registration is left untouched.
var ErrDuplicateRole = errors.New("duplicate role")

// Matcher is the peer table: codeHash → at most one waiting registration.
// It is the only shared mutable state in the relay; every critical section
// is a pure lookup/insert/remove, never a network call. The matcher is
// injected into each connection handler so independent instances can be
// built in tests.
type Matcher struct {
	mu      sync.Mutex
	waiting map[string]*session
}

// NewMatcher creates an empty peer table.
func NewMatcher() *Matcher {
	return &Matcher{waiting: make(map[string]*session)}
}

// register atomically consults the table for the session's code hash:
//   - no entry: the session becomes the sole waiting registration (nil, nil)
//   - entry with the other role: the entry is removed and both sessions are
//     bound to each other — one-shot pairing, the peer is returned
//   - entry with the same role: ErrDuplicateRole, the table is unchanged
func (m *Matcher) register(s *session, role protocol.Role, codeHash string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	other, ok := m.waiting[codeHash]
	if !ok {
		m.waiting[codeHash] = s
		return nil, nil
	}
	if other.role == role {
		return nil, ErrDuplicateRole
	}

	delete(m.waiting, codeHash)
	// Bind the pair before either side is notified, so a frame arriving
	// right after Matched always finds its destination.
	s.peer.Store(other)
	other.peer.Store(s)
	return other, nil
}

// unregister removes a waiting registration on pre-match disconnect. It is
// a no-op if the entry was already matched away or replaced.
func (m *Matcher) unregister(codeHash string, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiting[codeHash] == s {
		delete(m.waiting, codeHash)
	}
}

// waitingCount reports the number of unmatched registrations.
func (m *Matcher) waitingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}
