package out

import (
	"context"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
)

// Хранилище сессий приёма, ключ — (врач, день).
// Транзакции по одному ключу сериализует сервис, порт только хранит.
type SessionPort interface {
	GetSession(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, bool)
	StoreSession(ctx context.Context, session domain.QueueSession)
	ListSessions(ctx context.Context, date string) []domain.QueueSession
}
