package queue_scheduler_service

import (
	"context"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

// CallNextPatient вызывает ожидающего с наименьшим номером
func (s *QueueSchedulerService) CallNextPatient(ctx context.Context, doctorID uuid.UUID, date string) (*domain.Appointment, error) {
	unlock := s.locks.Lock(domain.QueueSessionKey(doctorID, date))
	defer unlock()

	session, exists := s.sessions.GetSession(ctx, doctorID, date)
	if !exists || session.Status != domain.QueueSessionStatusActive {
		return nil, domain.NewConflictError(domain.CodeNotActive, "queue for doctor %s on %s is not active", doctorID, date)
	}

	waiting, err := s.store.FindAppointments(ctx, out.AppointmentFilter{
		DoctorID: doctorID,
		Date:     date,
		Statuses: []domain.AppointmentStatus{domain.AppointmentStatusWaiting},
	}, out.SortByQueueNumber)
	if err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch waiting queue", err)
	}
	if len(waiting) == 0 {
		return nil, domain.NewNotFoundError(domain.CodeAppointmentNotFound, "no waiting patients for doctor %s on %s", doctorID, date)
	}

	next := &waiting[0]
	next.Status = domain.AppointmentStatusCalled
	next.UpdatedAt = s.now()

	if err := s.store.UpdateAppointment(ctx, next); err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to persist called appointment", err)
	}

	s.logger.Info("queue.patient.called", out.LogFields{
		"appointmentId": next.ID,
		"doctorId":      doctorID,
		"date":          date,
		"queueNumber":   next.QueueNumber,
	})

	s.publishAppointmentEvent(ctx, next, domain.AppointmentEventCalled)

	return next, nil
}

// StartConsultation переводит запись на приём и запускает
// уведомления "скоро ваша очередь" для следующих в очереди
func (s *QueueSchedulerService) StartConsultation(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	appointment, err := s.store.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch appointment", err)
	}
	if appointment == nil {
		return nil, domain.NewNotFoundError(domain.CodeAppointmentNotFound, "appointment %s not found", appointmentID)
	}
	if appointment.Status != domain.AppointmentStatusCalled && appointment.Status != domain.AppointmentStatusWaiting {
		return nil, domain.NewConflictError(domain.CodeInvalidTransition, "cannot start consultation from status %s", appointment.Status)
	}

	appointment.Status = domain.AppointmentStatusInSession
	appointment.UpdatedAt = s.now()

	if err := s.store.UpdateAppointment(ctx, appointment); err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to persist appointment", err)
	}

	s.logger.Info("queue.consultation.started", out.LogFields{
		"appointmentId": appointmentID,
		"doctorId":      appointment.DoctorID,
		"queueNumber":   appointment.QueueNumber,
	})

	s.publishAppointmentEvent(ctx, appointment, domain.AppointmentEventStarted)

	// Уведомления не могут провалить основной переход
	s.CheckAndNotifyPatients(ctx, appointment.DoctorID, appointmentID)

	return appointment, nil
}

func (s *QueueSchedulerService) CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	appointment, err := s.store.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch appointment", err)
	}
	if appointment == nil {
		return nil, domain.NewNotFoundError(domain.CodeAppointmentNotFound, "appointment %s not found", appointmentID)
	}
	if appointment.Status != domain.AppointmentStatusInSession {
		return nil, domain.NewConflictError(domain.CodeInvalidTransition, "cannot complete appointment in status %s", appointment.Status)
	}

	appointment.Status = domain.AppointmentStatusCompleted
	appointment.UpdatedAt = s.now()

	if err := s.store.UpdateAppointment(ctx, appointment); err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to persist appointment", err)
	}

	s.logger.Info("queue.consultation.completed", out.LogFields{
		"appointmentId": appointmentID,
		"doctorId":      appointment.DoctorID,
	})

	s.publishAppointmentEvent(ctx, appointment, domain.AppointmentEventCompleted)

	return appointment, nil
}

// CheckAndNotifyPatients сканирует следующие позиции очереди и шлёт
// уведомление о приближении приёма ровно один раз на запись.
// Любая ошибка здесь логируется и глотается.
func (s *QueueSchedulerService) CheckAndNotifyPatients(ctx context.Context, doctorID uuid.UUID, currentAppointmentID uuid.UUID) {
	if s.notifier == nil || !s.cfg.Notifier.Enabled {
		return
	}

	current, err := s.store.GetAppointmentByID(ctx, currentAppointmentID)
	if err != nil || current == nil {
		s.logger.Debug("queue.notify.current_missing", out.LogFields{
			"appointmentId": currentAppointmentID,
		})
		return
	}

	// Точка отсчёта должна стоять в живой очереди: относительно
	// отменённой или завершённой записи окно не имеет смысла
	if !current.IsAdmitted() {
		s.logger.Debug("queue.notify.current_not_admitted", out.LogFields{
			"appointmentId": currentAppointmentID,
			"status":        current.Status,
		})
		return
	}

	// Сериализация на ключе закрывает гонку read-filter-write:
	// два одновременных перехода не продублируют отправку
	unlock := s.locks.Lock(domain.QueueSessionKey(doctorID, current.Date))
	defer unlock()

	waiting, err := s.store.FindAppointments(ctx, out.AppointmentFilter{
		DoctorID: doctorID,
		Date:     current.Date,
		Statuses: []domain.AppointmentStatus{domain.AppointmentStatusWaiting},
	}, out.SortByQueueNumber)
	if err != nil {
		s.logger.Warn("queue.notify.fetch_failed", out.LogFields{
			"doctorId": doctorID,
			"date":     current.Date,
			"error":    err.Error(),
		})
		return
	}

	for i := range waiting {
		appointment := &waiting[i]

		// Окно уведомления: следующие NotifyAhead позиций после текущей
		if appointment.NotificationSent ||
			appointment.QueueNumber <= current.QueueNumber ||
			appointment.QueueNumber > current.QueueNumber+s.cfg.Queue.NotifyAhead {
			continue
		}

		waitingCount := appointment.QueueNumber - current.QueueNumber
		data := out.NotificationData{
			PatientName:          appointment.PatientName,
			DoctorName:           appointment.DoctorName,
			QueueNumber:          appointment.QueueNumber,
			CurrentQueueNumber:   current.QueueNumber,
			EstimatedWaitMinutes: waitingCount * s.cfg.Queue.AvgAppointmentMinutes,
		}

		if err := s.notifier.Send(ctx, appointment.PatientContact, data); err != nil {
			s.logger.Warn("queue.notify.send_failed", out.LogFields{
				"appointmentId": appointment.ID,
				"error":         err.Error(),
			})
			continue
		}

		appointment.NotificationSent = true
		appointment.UpdatedAt = s.now()
		if err := s.store.UpdateAppointment(ctx, appointment); err != nil {
			s.logger.Warn("queue.notify.mark_failed", out.LogFields{
				"appointmentId": appointment.ID,
				"error":         err.Error(),
			})
			continue
		}

		s.logger.Info("queue.notify.sent", out.LogFields{
			"appointmentId": appointment.ID,
			"queueNumber":   appointment.QueueNumber,
			"waitingCount":  waitingCount,
		})
	}
}
