package queue_scheduler_service

import (
	"context"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

// StartQueue открывает приём: все брони дня переводятся в ожидание.
// Повторный старт поверх активной сессии запрещён.
func (s *QueueSchedulerService) StartQueue(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, error) {
	unlock := s.locks.Lock(domain.QueueSessionKey(doctorID, date))
	defer unlock()

	session, exists := s.sessions.GetSession(ctx, doctorID, date)
	if exists && session.Status == domain.QueueSessionStatusActive {
		return nil, domain.NewConflictError(domain.CodeAlreadyActive, "queue for doctor %s on %s is already active", doctorID, date)
	}

	promoted, err := s.store.UpdateStatusBulk(ctx, doctorID, date,
		[]domain.AppointmentStatus{domain.AppointmentStatusBooked},
		domain.AppointmentStatusWaiting,
	)
	if err != nil {
		s.logger.Error("queue.session.start.promote_failed", out.LogFields{
			"doctorId": doctorID,
			"date":     date,
			"error":    err.Error(),
		})
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to admit booked appointments", err)
	}

	newSession := domain.QueueSession{
		DoctorID:  doctorID,
		Date:      date,
		Status:    domain.QueueSessionStatusActive,
		StartedAt: s.now(),
	}
	s.sessions.StoreSession(ctx, newSession)

	s.logger.Info("queue.session.started", out.LogFields{
		"doctorId": doctorID,
		"date":     date,
		"admitted": promoted,
	})

	s.publishQueueStatusEvent(ctx, &newSession, "session_started")

	return &newSession, nil
}

func (s *QueueSchedulerService) PauseQueue(ctx context.Context, doctorID uuid.UUID, date, reason string) (*domain.QueueSession, error) {
	unlock := s.locks.Lock(domain.QueueSessionKey(doctorID, date))
	defer unlock()

	session, exists := s.sessions.GetSession(ctx, doctorID, date)
	if !exists || session.Status != domain.QueueSessionStatusActive {
		return nil, domain.NewConflictError(domain.CodeNotActive, "queue for doctor %s on %s is not active", doctorID, date)
	}

	session.Status = domain.QueueSessionStatusPaused
	session.PausedAt = s.now()
	session.PauseReason = reason
	s.sessions.StoreSession(ctx, *session)

	s.logger.Info("queue.session.paused", out.LogFields{
		"doctorId": doctorID,
		"date":     date,
		"reason":   reason,
	})

	s.publishQueueStatusEvent(ctx, session, reason)

	return session, nil
}

func (s *QueueSchedulerService) ResumeQueue(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, error) {
	unlock := s.locks.Lock(domain.QueueSessionKey(doctorID, date))
	defer unlock()

	session, exists := s.sessions.GetSession(ctx, doctorID, date)
	if !exists || session.Status != domain.QueueSessionStatusPaused {
		return nil, domain.NewConflictError(domain.CodeNotPaused, "queue for doctor %s on %s is not paused", doctorID, date)
	}

	session.Status = domain.QueueSessionStatusActive
	session.ResumedAt = s.now()
	s.sessions.StoreSession(ctx, *session)

	s.logger.Info("queue.session.resumed", out.LogFields{
		"doctorId": doctorID,
		"date":     date,
	})

	s.publishQueueStatusEvent(ctx, session, "session_resumed")

	return session, nil
}

// StopQueue закрывает приём из любого состояния и возвращает
// непринятых пациентов (ожидающих и вызванных) обратно в брони
func (s *QueueSchedulerService) StopQueue(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, error) {
	unlock := s.locks.Lock(domain.QueueSessionKey(doctorID, date))
	defer unlock()

	reverted, err := s.store.UpdateStatusBulk(ctx, doctorID, date,
		[]domain.AppointmentStatus{domain.AppointmentStatusWaiting, domain.AppointmentStatusCalled},
		domain.AppointmentStatusBooked,
	)
	if err != nil {
		s.logger.Error("queue.session.stop.revert_failed", out.LogFields{
			"doctorId": doctorID,
			"date":     date,
			"error":    err.Error(),
		})
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to revert admitted appointments", err)
	}

	session, exists := s.sessions.GetSession(ctx, doctorID, date)
	if !exists {
		session = &domain.QueueSession{
			DoctorID: doctorID,
			Date:     date,
		}
	}
	session.Status = domain.QueueSessionStatusStopped
	session.StoppedAt = s.now()
	s.sessions.StoreSession(ctx, *session)

	s.logger.Info("queue.session.stopped", out.LogFields{
		"doctorId": doctorID,
		"date":     date,
		"reverted": reverted,
	})

	s.publishQueueStatusEvent(ctx, session, "session_stopped")

	return session, nil
}

// GetQueueStatus возвращает срез очереди: счётчики по статусам,
// номер на приёме и следующий номер в ожидании
func (s *QueueSchedulerService) GetQueueStatus(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueStatus, error) {
	appointments, err := s.store.FindAppointments(ctx, out.AppointmentFilter{
		DoctorID: doctorID,
		Date:     date,
		Statuses: []domain.AppointmentStatus{
			domain.AppointmentStatusWaiting,
			domain.AppointmentStatusCalled,
			domain.AppointmentStatusInSession,
			domain.AppointmentStatusCompleted,
		},
	}, out.SortByQueueNumber)
	if err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch queue appointments", err)
	}

	status := &domain.QueueStatus{
		DoctorID: doctorID,
		Date:     date,
		Counts:   make(map[domain.AppointmentStatus]int),
	}

	if session, exists := s.sessions.GetSession(ctx, doctorID, date); exists {
		status.SessionStatus = session.Status
	}

	for i := range appointments {
		appointment := &appointments[i]
		status.Counts[appointment.Status]++

		switch appointment.Status {
		case domain.AppointmentStatusCalled, domain.AppointmentStatusInSession:
			if status.CurrentQueueNumber == 0 || appointment.QueueNumber < status.CurrentQueueNumber {
				status.CurrentQueueNumber = appointment.QueueNumber
			}
		case domain.AppointmentStatusWaiting:
			if status.NextQueueNumber == 0 || appointment.QueueNumber < status.NextQueueNumber {
				status.NextQueueNumber = appointment.QueueNumber
			}
		}
	}

	return status, nil
}

// GetEstimatedWaitTime оценивает ожидание в минутах: количество записей
// в живой очереди перед целевым номером, умноженное на среднюю длительность приёма
func (s *QueueSchedulerService) GetEstimatedWaitTime(ctx context.Context, doctorID uuid.UUID, date string, queueNumber int) (int, error) {
	if queueNumber < 1 {
		return 0, domain.NewValidationError(domain.CodeInvalidInput, "queue number must be positive, got %d", queueNumber)
	}

	appointments, err := s.store.FindAppointments(ctx, out.AppointmentFilter{
		DoctorID: doctorID,
		Date:     date,
		Statuses: domain.AppointmentAdmittedStatuses,
	}, out.SortByQueueNumber)
	if err != nil {
		return 0, domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch queue appointments", err)
	}

	ahead := 0
	for i := range appointments {
		if appointments[i].QueueNumber < queueNumber {
			ahead++
		}
	}

	return ahead * s.cfg.Queue.AvgAppointmentMinutes, nil
}

// ListQueueSessions возвращает сводки всех открывавшихся за день очередей
func (s *QueueSchedulerService) ListQueueSessions(ctx context.Context, date string) ([]domain.QueueStatus, error) {
	sessions := s.sessions.ListSessions(ctx, date)

	statuses := make([]domain.QueueStatus, 0, len(sessions))
	for i := range sessions {
		status, err := s.GetQueueStatus(ctx, sessions[i].DoctorID, date)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}

	return statuses, nil
}
