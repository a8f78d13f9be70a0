package bot

import (
	"sync"
	"time"
)

const (
	// Messages older than this are replayed history from a transport
	// reconnect, not live traffic.
	staleAfter = 30 * time.Second

	// How long a sent message id stays in the recent-sends memory.
	sentIDTTL = 5 * time.Second
)

// recentSends remembers ids of messages this process sent, so the
// transport echoing them back is not reprocessed as input. Entries
// expire lazily on access, no timers.
type recentSends struct {
	mu  sync.Mutex
	ids map[string]time.Time
	now func() time.Time
}

func newRecentSends(now func() time.Time) *recentSends {
	return &recentSends{ids: make(map[string]time.Time), now: now}
}

func (r *recentSends) Register(id string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = r.now().Add(sentIDTTL)
}

func (r *recentSends) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	// Sweep everything expired while we hold the lock; the map stays
	// bounded by the send rate within one TTL window.
	for k, exp := range r.ids {
		if now.After(exp) {
			delete(r.ids, k)
		}
	}
	_, ok := r.ids[id]
	return ok
}

type Admission struct {
	Accept       bool
	FromOperator bool
}

// IntakeGate filters stale and self-echoed envelopes before they reach
// the pipeline.
type IntakeGate struct {
	sent *recentSends
	now  func() time.Time
}

func NewIntakeGate(now func() time.Time) *IntakeGate {
	if now == nil {
		now = time.Now
	}
	return &IntakeGate{sent: newRecentSends(now), now: now}
}

// Admit decides whether an envelope enters the pipeline. A message from
// the tenant's own identity whose id is not a recent bot send was typed
// by a human operator on the same account.
func (g *IntakeGate) Admit(env Envelope) Admission {
	if g.now().Sub(env.SentAt) > staleAfter {
		return Admission{}
	}
	if env.Text == "" {
		return Admission{}
	}
	if env.FromSelf {
		if g.sent.Contains(env.ID) {
			return Admission{}
		}
		return Admission{Accept: true, FromOperator: true}
	}
	return Admission{Accept: true}
}

// RegisterSent records the id of a message the bot just transmitted.
func (g *IntakeGate) RegisterSent(id string) {
	g.sent.Register(id)
}
