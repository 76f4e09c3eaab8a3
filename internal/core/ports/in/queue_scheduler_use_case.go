package in

import (
	"context"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
)

// Параметры бронирования слота
type BookingRequest struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	Date           string
	Time           string
	Type           domain.AppointmentType
	PatientName    string
	PatientContact string
	DoctorName     string
	Notes          string
	IsUrgent       bool
	IsVip          bool
}

// Данные пациента без записи, пришедшего в порядке живой очереди
type WalkInRequest struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	Date           string
	Type           domain.AppointmentType
	PatientName    string
	PatientContact string
	DoctorName     string
	Notes          string
	IsUrgent       bool
	IsVip          bool
}

// Перестановка: запись и её новая позиция в текущем списке ожидания
type ReorderRequest struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	NewPosition   int       `json:"newPosition"`
}

type QueueSchedulerUseCase interface {
	// Бронирование и жизненный цикл записи
	CreateAppointment(ctx context.Context, req BookingRequest) (*domain.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID uuid.UUID, reason, actor string) (*domain.Appointment, error)
	RescheduleAppointment(ctx context.Context, appointmentID uuid.UUID, newDate, newTime string) (*domain.Appointment, error)

	// Сессия приёма врача
	StartQueue(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, error)
	PauseQueue(ctx context.Context, doctorID uuid.UUID, date, reason string) (*domain.QueueSession, error)
	ResumeQueue(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, error)
	StopQueue(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, error)
	GetQueueStatus(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueStatus, error)
	GetEstimatedWaitTime(ctx context.Context, doctorID uuid.UUID, date string, queueNumber int) (int, error)
	ListQueueSessions(ctx context.Context, date string) ([]domain.QueueStatus, error)

	// Переупорядочивание очереди
	ReorderQueue(ctx context.Context, doctorID uuid.UUID, date string, requests []ReorderRequest) error
	ApplyQueueRules(ctx context.Context, doctorID uuid.UUID, date string, rules []domain.QueueRule) error
	AddWalkInPatient(ctx context.Context, req WalkInRequest) (*domain.Appointment, error)
	SkipPatient(ctx context.Context, appointmentID uuid.UUID, reason string) (*domain.Appointment, error)

	// Ход приёма
	CallNextPatient(ctx context.Context, doctorID uuid.UUID, date string) (*domain.Appointment, error)
	StartConsultation(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error)
	CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error)
	CheckAndNotifyPatients(ctx context.Context, doctorID uuid.UUID, currentAppointmentID uuid.UUID)
}
