package sessioncache

import (
	"context"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

// SessionCacheAdapter хранит сессии приёма в LRU по ключу (врач, день).
// Реализация SessionPort заменяема на долговечную таблицу без
// изменений в ядре: сериализацией переходов владеет сервис.
type SessionCacheAdapter struct {
	cache  *lru.Cache[string, *domain.QueueSession]
	mu     sync.RWMutex
	logger out.LoggerPort
}

func NewSessionCacheAdapter(cfg *config.Config, logger out.LoggerPort) (*SessionCacheAdapter, error) {
	cache, err := lru.New[string, *domain.QueueSession](cfg.Cache.SessionsSize)
	if err != nil {
		logger.Error("sessioncache.init_failed", out.LogFields{
			"error": err.Error(),
			"size":  cfg.Cache.SessionsSize,
		})
		return nil, err
	}

	return &SessionCacheAdapter{
		cache:  cache,
		logger: logger,
	}, nil
}

func (c *SessionCacheAdapter) GetSession(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	session, exists := c.cache.Get(domain.QueueSessionKey(doctorID, date))
	if !exists {
		return nil, false
	}

	// Отдаём копию, чтобы вызывающий не мутировал запись в кэше
	copied := *session
	return &copied, true
}

func (c *SessionCacheAdapter) StoreSession(ctx context.Context, session domain.QueueSession) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(session.Key(), &session)

	c.logger.Debug("sessioncache.stored", out.LogFields{
		"doctorId": session.DoctorID,
		"date":     session.Date,
		"status":   session.Status,
	})
}

func (c *SessionCacheAdapter) ListSessions(ctx context.Context, date string) []domain.QueueSession {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sessions := make([]domain.QueueSession, 0)
	for _, key := range c.cache.Keys() {
		session, exists := c.cache.Peek(key)
		if exists && session.Date == date {
			sessions = append(sessions, *session)
		}
	}

	return sessions
}
