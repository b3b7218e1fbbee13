package relay

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapxfer/zap/internal/protocol"
)

func testSession(role protocol.Role) *session {
	return &session{
		id:   fmt.Sprintf("test-%s", role),
		role: role,
		out:  make(chan outFrame, outQueueSize),
		done: make(chan struct{}),
	}
}

const testHash = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

func TestMatcherPairsOppositeRoles(t *testing.T) {
	m := NewMatcher()

	sender := testSession(protocol.RoleSender)
	peer, err := m.register(sender, protocol.RoleSender, testHash)
	require.NoError(t, err)
	assert.Nil(t, peer)
	assert.Equal(t, 1, m.waitingCount())

	receiver := testSession(protocol.RoleReceiver)
	peer, err = m.register(receiver, protocol.RoleReceiver, testHash)
	require.NoError(t, err)
	require.Same(t, sender, peer)

	// One-shot pairing: the entry is gone and both sides are bound.
	assert.Equal(t, 0, m.waitingCount())
	assert.Same(t, receiver, sender.peer.Load())
	assert.Same(t, sender, receiver.peer.Load())
}

func TestMatcherRejectsDuplicateRole(t *testing.T) {
	m := NewMatcher()

	first := testSession(protocol.RoleSender)
	_, err := m.register(first, protocol.RoleSender, testHash)
	require.NoError(t, err)

	second := testSession(protocol.RoleSender)
	_, err = m.register(second, protocol.RoleSender, testHash)
	assert.ErrorIs(t, err, ErrDuplicateRole)

	// The original registration stays untouched.
	assert.Equal(t, 1, m.waitingCount())
	assert.Nil(t, first.peer.Load())
}

func TestMatcherUnregisterOnlyRemovesOwnEntry(t *testing.T) {
	m := NewMatcher()

	waiting := testSession(protocol.RoleSender)
	_, err := m.register(waiting, protocol.RoleSender, testHash)
	require.NoError(t, err)

	// A stranger's unregister is a no-op.
	m.unregister(testHash, testSession(protocol.RoleSender))
	assert.Equal(t, 1, m.waitingCount())

	m.unregister(testHash, waiting)
	assert.Equal(t, 0, m.waitingCount())
}

func TestMatcherIndependentCodeHashes(t *testing.T) {
	m := NewMatcher()
	otherHash := "ffeeddccbbaa99887766554433221100ffeeddccbbaa99887766554433221100"

	_, err := m.register(testSession(protocol.RoleSender), protocol.RoleSender, testHash)
	require.NoError(t, err)
	_, err = m.register(testSession(protocol.RoleSender), protocol.RoleSender, otherHash)
	require.NoError(t, err)
	assert.Equal(t, 2, m.waitingCount())
}

// Concurrent registrations under one code hash must produce exactly one
// pairing and never two same-role waiting entries.
func TestMatcherConcurrentRegistrations(t *testing.T) {
	m := NewMatcher()

	const pairs = 32
	var wg sync.WaitGroup
	matched := make(chan *session, pairs*2)

	for i := 0; i < pairs; i++ {
		hash := fmt.Sprintf("%064d", i)
		for _, role := range []protocol.Role{protocol.RoleSender, protocol.RoleReceiver} {
			wg.Add(1)
			go func(role protocol.Role, hash string) {
				defer wg.Done()
				s := testSession(role)
				peer, err := m.register(s, role, hash)
				require.NoError(t, err)
				if peer != nil {
					matched <- s
				}
			}(role, hash)
		}
	}
	wg.Wait()
	close(matched)

	// Exactly one of each pair observes the match at registration time.
	assert.Len(t, matched, pairs)
	assert.Equal(t, 0, m.waitingCount())
}
