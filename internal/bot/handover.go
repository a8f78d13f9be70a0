package bot

import (
	"strings"
	"sync"
	"time"
)

// DefaultHandoverDuration is how long the bot stays silent after an
// operator takes over a conversation.
const DefaultHandoverDuration = 30 * time.Minute

// CanonicalPeer normalizes a raw transport peer identifier to the single
// form used as a session and block key: the protocol suffix is dropped
// and only digits survive. "212612345678@s.whatsapp.net" and
// "+212 612-345-678" map to the same key.
func CanonicalPeer(raw string) string {
	if i := strings.IndexByte(raw, '@'); i >= 0 {
		raw = raw[:i]
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return strings.TrimSpace(raw)
	}
	return b.String()
}

// Handover owns the Active/Blocked state machine. The session field
// BlockedUntil is the source of truth; the cache exists so the block can
// be checked without loading a session, and is kept in sync on every
// transition.
type Handover struct {
	mu    sync.Mutex
	until map[string]time.Time // tenant + "|" + canonical peer
	now   func() time.Time
}

func NewHandover(now func() time.Time) *Handover {
	if now == nil {
		now = time.Now
	}
	return &Handover{until: make(map[string]time.Time), now: now}
}

func blockKey(tenant, peer string) string {
	return tenant + "|" + CanonicalPeer(peer)
}

// Block silences the bot for this session until now+d.
func (h *Handover) Block(sess *Session, d time.Duration) time.Time {
	if d <= 0 {
		d = DefaultHandoverDuration
	}
	until := h.now().Add(d)
	sess.BlockedUntil = until
	sess.UpdatedAt = h.now()

	h.mu.Lock()
	h.until[blockKey(sess.Tenant, sess.Peer)] = until
	h.mu.Unlock()
	return until
}

// Release re-activates the bot immediately, regardless of BlockedUntil.
func (h *Handover) Release(sess *Session) {
	sess.BlockedUntil = time.Time{}
	sess.UpdatedAt = h.now()

	h.mu.Lock()
	delete(h.until, blockKey(sess.Tenant, sess.Peer))
	h.mu.Unlock()
}

// Blocked reports whether the bot must stay silent for this session.
// An elapsed block is cleared in place (lazy expiry, no timers).
func (h *Handover) Blocked(sess *Session) bool {
	if sess.BlockedUntil.IsZero() {
		return false
	}
	if h.now().Before(sess.BlockedUntil) {
		return true
	}
	h.Release(sess)
	return false
}

// PeerBlocked is the cache-only check for callers that do not hold a
// session, e.g. status endpoints.
func (h *Handover) PeerBlocked(tenant, peer string) bool {
	key := blockKey(tenant, peer)
	h.mu.Lock()
	defer h.mu.Unlock()
	until, ok := h.until[key]
	if !ok {
		return false
	}
	if h.now().Before(until) {
		return true
	}
	delete(h.until, key)
	return false
}
