package queue_scheduler_service

import (
	"context"
	"time"

	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

type QueueSchedulerService struct {
	store     out.StorePort
	sessions  out.SessionPort
	broadcast out.BroadcastPort
	notifier  out.NotifierPort
	logger    out.LoggerPort
	cfg       *config.Config
	locks     *keyedMutex
}

func NewQueueSchedulerService(
	store out.StorePort,
	sessions out.SessionPort,
	broadcast out.BroadcastPort,
	notifier out.NotifierPort,
	cfg *config.Config,
	logger out.LoggerPort,
) *QueueSchedulerService {
	return &QueueSchedulerService{
		store:     store,
		sessions:  sessions,
		broadcast: broadcast,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.WithModule("QueueSchedulerService"),
		locks:     newKeyedMutex(),
	}
}

func (s *QueueSchedulerService) now() time.Time {
	return time.Now().In(config.TimeZone)
}

// Публикация события записи. Трансляция fire-and-forget:
// ошибка логируется и не влияет на основной переход.
func (s *QueueSchedulerService) publishAppointmentEvent(ctx context.Context, appointment *domain.Appointment, action domain.AppointmentEventAction) {
	if s.broadcast == nil {
		return
	}

	event := domain.AppointmentEvent{
		AppointmentID: appointment.ID,
		DoctorID:      appointment.DoctorID,
		PatientID:     appointment.PatientID,
		Action:        action,
		Date:          appointment.Date,
		Time:          appointment.Time,
		Timestamp:     s.now(),
	}

	topic := "clinic.appointment." + string(action)
	if err := s.broadcast.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("broadcast.appointment.publish_failed", out.LogFields{
			"appointmentId": appointment.ID,
			"action":        action,
			"error":         err.Error(),
		})
	}
}

func (s *QueueSchedulerService) publishQueueStatusEvent(ctx context.Context, session *domain.QueueSession, reason string) {
	if s.broadcast == nil {
		return
	}

	event := domain.QueueStatusEvent{
		DoctorID:  session.DoctorID,
		Date:      session.Date,
		Status:    session.Status,
		Reason:    reason,
		Timestamp: s.now(),
	}

	topic := "clinic.queue-status." + session.DoctorID.String()
	if err := s.broadcast.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("broadcast.queue_status.publish_failed", out.LogFields{
			"doctorId": session.DoctorID,
			"date":     session.Date,
			"error":    err.Error(),
		})
	}
}
