package out

import (
	"context"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
)

// Фильтр выборки записей. Пустое поле не участвует в фильтрации.
type AppointmentFilter struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      string
	Time      string
	Statuses  []domain.AppointmentStatus
}

type AppointmentSort string

const (
	SortByQueueNumber AppointmentSort = "queueNumber"
	SortByDateTime    AppointmentSort = "date,time"
)

// Точечное обновление номера в очереди для батч-перенумерации
type QueueNumberUpdate struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	QueueNumber   int       `json:"queueNumber"`
}

// Контракт хранилища медицинских записей. Само хранилище внешнее,
// сервис видит только CRUD с фильтрацией и сортировкой.
type StorePort interface {
	// Методы для работы с записями на приём
	CreateAppointment(ctx context.Context, appointment *domain.Appointment) error
	GetAppointmentByID(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error)
	FindAppointments(ctx context.Context, filter AppointmentFilter, sort AppointmentSort) ([]domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appointment *domain.Appointment) error

	// Батч-перенумерация очереди: либо применяется целиком, либо не применяется
	UpdateQueueNumbers(ctx context.Context, updates []QueueNumberUpdate) error

	// Массовый перевод статусов для (врач, день); возвращает число записей
	UpdateStatusBulk(ctx context.Context, doctorID uuid.UUID, date string, from []domain.AppointmentStatus, to domain.AppointmentStatus) (int, error)

	// Методы для работы с доступностью врача
	GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID, date string) (*domain.DoctorAvailability, error)
}
