package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/mamadbah2/simba/internal/observability"
)

// Manager keeps one Session per client id. Sessions idle for longer than
// the configured TTL are evicted.
type Manager struct {
	sessions *cache.Cache
	mu       sync.Mutex

	repo      Repository
	resolver  PeriodResolver
	languages Languages
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewManager creates a new session manager evicting sessions after idleTTL
// without a Get.
func NewManager(repo Repository, resolver PeriodResolver, languages Languages, metrics *observability.Metrics, idleTTL time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}

	sessions := cache.New(idleTTL, idleTTL)
	sessions.OnEvicted(func(id string, _ interface{}) {
		logger.Debug("session evicted", zap.String("session", id))
	})

	return &Manager{
		sessions:  sessions,
		repo:      repo,
		resolver:  resolver,
		languages: languages,
		metrics:   metrics,
		logger:    logger,
	}
}

// Get returns the session for id, creating it when needed, and restarts its
// idle timer. Ids that are not UUIDs are replaced by a freshly issued one;
// callers must echo the returned id.
func (m *Manager) Get(id string) *Session {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.lookup(id); ok {
		m.sessions.SetDefault(id, s)
		return s
	}

	s := newSession(id, m)
	m.sessions.SetDefault(id, s)
	m.logger.Debug("session created", zap.String("session", id))
	return s
}

// Lookup returns an existing session without creating one or refreshing it.
func (m *Manager) Lookup(id string) (*Session, bool) {
	return m.lookup(id)
}

// Reset clears the state of an existing session and keeps its id.
func (m *Manager) Reset(id string) bool {
	s, ok := m.Lookup(id)
	if ok {
		s.Reset()
	}
	return ok
}

// Drop removes a session.
func (m *Manager) Drop(id string) {
	m.sessions.Delete(id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.sessions.DeleteExpired()
	return m.sessions.ItemCount()
}

func (m *Manager) lookup(id string) (*Session, bool) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok
}
