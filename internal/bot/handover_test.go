package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandoverBlockAndLazyExpiry(t *testing.T) {
	clock := newFakeClock()
	h := NewHandover(clock.Now)
	sess := &Session{Tenant: "lattafa", Peer: "212612345678"}

	until := h.Block(sess, 30*time.Minute)
	require.Equal(t, clock.Now().Add(30*time.Minute), until)
	require.Equal(t, until, sess.BlockedUntil)

	clock.Advance(10 * time.Minute)
	require.True(t, h.Blocked(sess))

	clock.Advance(21 * time.Minute)
	require.False(t, h.Blocked(sess))
	// Lazy expiry cleared both the session field and the cache.
	require.True(t, sess.BlockedUntil.IsZero())
	require.False(t, h.PeerBlocked("lattafa", "212612345678"))
}

func TestHandoverExplicitRelease(t *testing.T) {
	clock := newFakeClock()
	h := NewHandover(clock.Now)
	sess := &Session{Tenant: "lattafa", Peer: "212612345678"}

	h.Block(sess, 30*time.Minute)
	require.True(t, h.Blocked(sess))

	h.Release(sess)
	require.False(t, h.Blocked(sess))
	require.False(t, h.PeerBlocked("lattafa", "212612345678"))
}

func TestHandoverDefaultDuration(t *testing.T) {
	clock := newFakeClock()
	h := NewHandover(clock.Now)
	sess := &Session{Tenant: "lattafa", Peer: "212612345678"}

	until := h.Block(sess, 0)
	require.Equal(t, clock.Now().Add(DefaultHandoverDuration), until)
}

func TestHandoverCacheUsesCanonicalKey(t *testing.T) {
	clock := newFakeClock()
	h := NewHandover(clock.Now)
	sess := &Session{Tenant: "lattafa", Peer: CanonicalPeer("212612345678@s.whatsapp.net")}

	h.Block(sess, 30*time.Minute)

	// Every raw variant of the same peer hits the same block.
	require.True(t, h.PeerBlocked("lattafa", "212612345678@s.whatsapp.net"))
	require.True(t, h.PeerBlocked("lattafa", "+212 612-345-678"))
	require.True(t, h.PeerBlocked("lattafa", "212612345678"))
	require.False(t, h.PeerBlocked("lattafa", "212699999999"))
	require.False(t, h.PeerBlocked("other-tenant", "212612345678"))
}
