package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock drives the lazy-expiry paths deterministically.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestIntakeRejectsStaleMessages(t *testing.T) {
	clock := newFakeClock()
	gate := NewIntakeGate(clock.Now)

	fresh := Envelope{ID: "m1", Peer: "212612345678", Text: "salam", SentAt: clock.Now().Add(-29 * time.Second)}
	stale := Envelope{ID: "m2", Peer: "212612345678", Text: "salam", SentAt: clock.Now().Add(-31 * time.Second)}

	require.True(t, gate.Admit(fresh).Accept)
	require.False(t, gate.Admit(stale).Accept)
}

func TestIntakeRejectsOwnEchoWithinTTL(t *testing.T) {
	clock := newFakeClock()
	gate := NewIntakeGate(clock.Now)

	gate.RegisterSent("sent-1")

	echo := Envelope{ID: "sent-1", FromSelf: true, Peer: "212612345678", Text: "reply", SentAt: clock.Now()}
	require.False(t, gate.Admit(echo).Accept)

	// After the TTL the same id is admissible again.
	clock.Advance(6 * time.Second)
	echo.SentAt = clock.Now()
	adm := gate.Admit(echo)
	require.True(t, adm.Accept)
	require.True(t, adm.FromOperator)
}

func TestIntakeFlagsOperatorMessages(t *testing.T) {
	clock := newFakeClock()
	gate := NewIntakeGate(clock.Now)

	// From the tenant's own identity but never sent by the bot: a human
	// operator typed it on the same account.
	operator := Envelope{ID: "m9", FromSelf: true, Peer: "212612345678", Text: "je m'en occupe", SentAt: clock.Now()}
	adm := gate.Admit(operator)
	require.True(t, adm.Accept)
	require.True(t, adm.FromOperator)

	customer := Envelope{ID: "m10", Peer: "212612345678", Text: "salam", SentAt: clock.Now()}
	adm = gate.Admit(customer)
	require.True(t, adm.Accept)
	require.False(t, adm.FromOperator)
}

func TestIntakeRejectsEmptyText(t *testing.T) {
	clock := newFakeClock()
	gate := NewIntakeGate(clock.Now)

	require.False(t, gate.Admit(Envelope{ID: "m1", Peer: "212612345678", SentAt: clock.Now()}).Accept)
}

func TestRecentSendsSweepsExpiredEntries(t *testing.T) {
	clock := newFakeClock()
	sends := newRecentSends(clock.Now)

	sends.Register("a")
	sends.Register("b")
	clock.Advance(sentIDTTL + time.Millisecond)
	sends.Register("c")

	require.False(t, sends.Contains("a"))
	require.False(t, sends.Contains("b"))
	require.True(t, sends.Contains("c"))
	require.Len(t, sends.ids, 1)
}
