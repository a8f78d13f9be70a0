package bot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store owns the canonical in-memory sessions, keyed by
// (tenant, canonical peer). All mutation of one session must go through
// WithSession, which serializes turns per key: two concurrent messages
// for the same peer are strictly ordered, different peers run in
// parallel.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    sync.Map // session key -> *sync.Mutex

	repo Repo
	log  *zap.Logger
	now  func() time.Time
}

func NewStore(repo Repo, log *zap.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		repo:     repo,
		log:      log,
		now:      time.Now,
	}
}

func sessionKey(tenant, peer string) string {
	return tenant + "|" + CanonicalPeer(peer)
}

// GetOrCreate returns the session for (tenant, peer), creating it with
// empty defaults on first access. Callers must already hold the per-key
// lock via WithSession.
func (s *Store) GetOrCreate(tenant, peer string) *Session {
	key := sessionKey(tenant, peer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		return sess
	}
	now := s.now()
	sess := &Session{
		Tenant:    tenant,
		Peer:      CanonicalPeer(peer),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[key] = sess
	return sess
}

// WithSession runs fn while holding the exclusive lock for this
// conversation. Everything a turn does to the session, including the
// suspension points around completion and persistence, happens inside.
func (s *Store) WithSession(tenant, peer string, fn func(sess *Session) error) error {
	key := sessionKey(tenant, peer)
	lockAny, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)

	lock.Lock()
	defer lock.Unlock()
	return fn(s.GetOrCreate(tenant, peer))
}

// Persist writes the session through to the durable repo. Failures are
// logged and swallowed: the in-memory state stays authoritative and the
// next successful write carries it.
func (s *Store) Persist(ctx context.Context, sess *Session) {
	if err := s.repo.SaveSession(ctx, sess); err != nil {
		s.log.Warn("session persist failed, keeping in-memory state",
			zap.String("tenant", sess.Tenant),
			zap.String("peer", sess.Peer),
			zap.Error(err),
		)
	}
}
