package queue_scheduler_service

import (
	"context"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/in"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
	"github.com/medqueue/clinic-queue-scheduler/internal/utils"
)

// maxQueueNumber — наибольший номер среди неотменённых записей дня.
// Отменённые записи оставляют дыры в нумерации, номер назад не возвращается.
func (s *QueueSchedulerService) maxQueueNumber(ctx context.Context, doctorID uuid.UUID, date string) (int, error) {
	appointments, err := s.store.FindAppointments(ctx, out.AppointmentFilter{
		DoctorID: doctorID,
		Date:     date,
		Statuses: domain.AppointmentActiveStatuses,
	}, out.SortByQueueNumber)
	if err != nil {
		return 0, domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch queue", err)
	}

	max := 0
	for i := range appointments {
		if appointments[i].QueueNumber > max {
			max = appointments[i].QueueNumber
		}
	}

	return max, nil
}

// AddWalkInPatient ставит пациента без брони в хвост очереди дня
func (s *QueueSchedulerService) AddWalkInPatient(ctx context.Context, req in.WalkInRequest) (*domain.Appointment, error) {
	date, err := utils.NormalizeDate(req.Date, config.TimeZone)
	if err != nil {
		return nil, domain.NewValidationError(domain.CodeInvalidInput, "invalid date %q", req.Date)
	}

	unlock := s.locks.Lock(domain.QueueSessionKey(req.DoctorID, date))
	defer unlock()

	maxNumber, err := s.maxQueueNumber(ctx, req.DoctorID, date)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appointment := &domain.Appointment{
		ID:             uuid.New(),
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		Date:           date,
		Status:         domain.AppointmentStatusWaiting,
		Type:           req.Type,
		QueueNumber:    maxNumber + 1,
		Origin:         domain.AppointmentOriginWalkIn,
		IsUrgent:       req.IsUrgent,
		IsVip:          req.IsVip,
		PatientName:    req.PatientName,
		PatientContact: req.PatientContact,
		DoctorName:     req.DoctorName,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateAppointment(ctx, appointment); err != nil {
		s.logger.Error("queue.walkin.store_failed", out.LogFields{
			"doctorId": req.DoctorID,
			"date":     date,
			"error":    err.Error(),
		})
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to persist walk-in appointment", err)
	}

	s.logger.Info("queue.walkin.added", out.LogFields{
		"appointmentId": appointment.ID,
		"doctorId":      req.DoctorID,
		"date":          date,
		"queueNumber":   appointment.QueueNumber,
	})

	s.publishAppointmentEvent(ctx, appointment, domain.AppointmentEventCreated)

	return appointment, nil
}

// SkipPatient отправляет не явившегося по вызову пациента в хвост
// очереди: новый номер, снова статус ожидания, причина в истории пропусков
func (s *QueueSchedulerService) SkipPatient(ctx context.Context, appointmentID uuid.UUID, reason string) (*domain.Appointment, error) {
	appointment, err := s.store.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch appointment", err)
	}
	if appointment == nil {
		return nil, domain.NewNotFoundError(domain.CodeAppointmentNotFound, "appointment %s not found", appointmentID)
	}
	if appointment.Status != domain.AppointmentStatusCalled && appointment.Status != domain.AppointmentStatusWaiting {
		return nil, domain.NewConflictError(domain.CodeInvalidTransition, "cannot skip appointment in status %s", appointment.Status)
	}

	unlock := s.locks.Lock(domain.QueueSessionKey(appointment.DoctorID, appointment.Date))
	defer unlock()

	maxNumber, err := s.maxQueueNumber(ctx, appointment.DoctorID, appointment.Date)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appointment.QueueNumber = maxNumber + 1
	appointment.Status = domain.AppointmentStatusWaiting
	appointment.SkipHistory = append(appointment.SkipHistory, domain.SkipRecord{
		Reason:    reason,
		SkippedAt: now,
	})
	appointment.UpdatedAt = now

	if err := s.store.UpdateAppointment(ctx, appointment); err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to persist skipped appointment", err)
	}

	s.logger.Info("queue.patient.skipped", out.LogFields{
		"appointmentId": appointmentID,
		"queueNumber":   appointment.QueueNumber,
		"reason":        reason,
	})

	s.publishAppointmentEvent(ctx, appointment, domain.AppointmentEventSkipped)

	return appointment, nil
}
