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

// resolveStartTime ищет объявленную доступность врача на календарный день
// и возвращает время начала приёма
func (s *QueueSchedulerService) resolveStartTime(ctx context.Context, doctorID uuid.UUID, date string) (string, error) {
	availability, err := s.store.GetDoctorAvailability(ctx, doctorID, date)
	if err != nil {
		return "", domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch doctor availability", err)
	}
	if availability == nil {
		return "", domain.NewValidationError(domain.CodeDoctorUnavailable, "doctor is not available on %s", date)
	}

	return availability.StartTime, nil
}

// computeQueueNumber выводит номер в очереди из времени брони:
// слот — фиксированный интервал от начала приёма, номер = индекс слота + 1
func (s *QueueSchedulerService) computeQueueNumber(startTime, bookedTime string) (int, error) {
	startMinutes, err := utils.ParseClockMinutes(startTime)
	if err != nil {
		return 0, domain.NewValidationError(domain.CodeInvalidInput, "invalid start time %q", startTime)
	}

	bookedMinutes, err := utils.ParseClockMinutes(bookedTime)
	if err != nil {
		return 0, domain.NewValidationError(domain.CodeInvalidInput, "invalid booking time %q", bookedTime)
	}

	if bookedMinutes < startMinutes {
		return 0, domain.NewValidationError(domain.CodeInvalidBookingTime, "booking time %s is before the doctor's start time %s", bookedTime, startTime)
	}

	slotIndex := (bookedMinutes - startMinutes) / s.cfg.Queue.SlotMinutes
	return slotIndex + 1, nil
}

// Нормализация даты и времени до канонического вида YYYY-MM-DD / HH:MM
func normalizeDateTime(date, clock string) (string, string, error) {
	normalizedDate, err := utils.NormalizeDate(date, config.TimeZone)
	if err != nil {
		return "", "", domain.NewValidationError(domain.CodeInvalidInput, "invalid date %q", date)
	}

	minutes, err := utils.ParseClockMinutes(clock)
	if err != nil {
		return "", "", domain.NewValidationError(domain.CodeInvalidInput, "invalid time %q", clock)
	}

	return normalizedDate, utils.FormatClock(minutes), nil
}

// Проверка, что слот (врач, день, время) не занят другой активной записью
func (s *QueueSchedulerService) checkSlotConflicts(ctx context.Context, req in.BookingRequest, date, clock string, exclude uuid.UUID) error {
	existing, err := s.store.FindAppointments(ctx, out.AppointmentFilter{
		DoctorID: req.DoctorID,
		Date:     date,
		Time:     clock,
		Statuses: domain.AppointmentActiveStatuses,
	}, out.SortByQueueNumber)
	if err != nil {
		return domain.NewExternalError(domain.CodeStoreFailure, "failed to check slot conflicts", err)
	}
	for i := range existing {
		if existing[i].ID != exclude {
			return domain.NewConflictError(domain.CodeSlotConflict, "slot %s %s is already booked", date, clock)
		}
	}

	sameTime, err := s.store.FindAppointments(ctx, out.AppointmentFilter{
		PatientID: req.PatientID,
		Date:      date,
		Time:      clock,
		Statuses:  domain.AppointmentActiveStatuses,
	}, out.SortByQueueNumber)
	if err != nil {
		return domain.NewExternalError(domain.CodeStoreFailure, "failed to check patient bookings", err)
	}
	for i := range sameTime {
		if sameTime[i].ID != exclude {
			return domain.NewConflictError(domain.CodePatientDoubleBooked, "patient already has an appointment at %s %s", date, clock)
		}
	}

	return nil
}

// CreateAppointment — единственный путь, где номер в очереди выводится
// из времени; все остальные мутации считают его от max или от позиции
func (s *QueueSchedulerService) CreateAppointment(ctx context.Context, req in.BookingRequest) (*domain.Appointment, error) {
	date, clock, err := normalizeDateTime(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(domain.QueueSessionKey(req.DoctorID, date))
	defer unlock()

	if err := s.checkSlotConflicts(ctx, req, date, clock, uuid.Nil); err != nil {
		return nil, err
	}

	startTime, err := s.resolveStartTime(ctx, req.DoctorID, date)
	if err != nil {
		return nil, err
	}

	queueNumber, err := s.computeQueueNumber(startTime, clock)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appointment := &domain.Appointment{
		ID:             uuid.New(),
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		Date:           date,
		Time:           clock,
		Status:         domain.AppointmentStatusBooked,
		Type:           req.Type,
		QueueNumber:    queueNumber,
		Origin:         domain.AppointmentOriginBooked,
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
		s.logger.Error("appointment.create.store_failed", out.LogFields{
			"doctorId": req.DoctorID,
			"date":     date,
			"time":     clock,
			"error":    err.Error(),
		})
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to persist appointment", err)
	}

	s.logger.Info("appointment.created", out.LogFields{
		"appointmentId": appointment.ID,
		"doctorId":      req.DoctorID,
		"date":          date,
		"time":          clock,
		"queueNumber":   queueNumber,
	})

	s.publishAppointmentEvent(ctx, appointment, domain.AppointmentEventCreated)

	return appointment, nil
}

func (s *QueueSchedulerService) CancelAppointment(ctx context.Context, appointmentID uuid.UUID, reason, actor string) (*domain.Appointment, error) {
	appointment, err := s.store.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch appointment", err)
	}
	if appointment == nil {
		return nil, domain.NewNotFoundError(domain.CodeAppointmentNotFound, "appointment %s not found", appointmentID)
	}
	if !appointment.IsActive() {
		return nil, domain.NewConflictError(domain.CodeInvalidTransition, "appointment %s is already cancelled", appointmentID)
	}
	if appointment.Status == domain.AppointmentStatusCompleted {
		return nil, domain.NewConflictError(domain.CodeInvalidTransition, "completed appointment cannot be cancelled")
	}

	now := s.now()
	appointment.Status = domain.AppointmentStatusCancelled
	appointment.Cancellation = &domain.CancellationInfo{
		Reason:      reason,
		CancelledBy: actor,
		CancelledAt: now,
	}
	appointment.UpdatedAt = now

	if err := s.store.UpdateAppointment(ctx, appointment); err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to cancel appointment", err)
	}

	s.logger.Info("appointment.cancelled", out.LogFields{
		"appointmentId": appointmentID,
		"reason":        reason,
		"actor":         actor,
	})

	s.publishAppointmentEvent(ctx, appointment, domain.AppointmentEventCancelled)

	return appointment, nil
}

// RescheduleAppointment переносит бронь на новый слот с полной
// валидацией, прежние дата и время остаются в истории переносов
func (s *QueueSchedulerService) RescheduleAppointment(ctx context.Context, appointmentID uuid.UUID, newDate, newTime string) (*domain.Appointment, error) {
	appointment, err := s.store.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch appointment", err)
	}
	if appointment == nil {
		return nil, domain.NewNotFoundError(domain.CodeAppointmentNotFound, "appointment %s not found", appointmentID)
	}
	if appointment.Status != domain.AppointmentStatusBooked {
		return nil, domain.NewConflictError(domain.CodeInvalidTransition, "only booked appointments can be rescheduled, current status is %s", appointment.Status)
	}

	date, clock, err := normalizeDateTime(newDate, newTime)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(domain.QueueSessionKey(appointment.DoctorID, date))
	defer unlock()

	req := in.BookingRequest{PatientID: appointment.PatientID, DoctorID: appointment.DoctorID}
	if err := s.checkSlotConflicts(ctx, req, date, clock, appointment.ID); err != nil {
		return nil, err
	}

	startTime, err := s.resolveStartTime(ctx, appointment.DoctorID, date)
	if err != nil {
		return nil, err
	}

	queueNumber, err := s.computeQueueNumber(startTime, clock)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appointment.Reschedules = append(appointment.Reschedules, domain.RescheduleRecord{
		FromDate:      appointment.Date,
		FromTime:      appointment.Time,
		RescheduledAt: now,
	})
	appointment.Date = date
	appointment.Time = clock
	appointment.QueueNumber = queueNumber
	appointment.UpdatedAt = now

	if err := s.store.UpdateAppointment(ctx, appointment); err != nil {
		return nil, domain.NewExternalError(domain.CodeStoreFailure, "failed to reschedule appointment", err)
	}

	s.logger.Info("appointment.rescheduled", out.LogFields{
		"appointmentId": appointmentID,
		"date":          date,
		"time":          clock,
		"queueNumber":   queueNumber,
	})

	s.publishAppointmentEvent(ctx, appointment, domain.AppointmentEventRescheduled)

	return appointment, nil
}
