package domain

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusWaiting   AppointmentStatus = "waiting"
	AppointmentStatusCalled    AppointmentStatus = "called"
	AppointmentStatusInSession AppointmentStatus = "in_session"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Статусы, в которых запись занимает место в живой очереди
var AppointmentAdmittedStatuses = []AppointmentStatus{
	AppointmentStatusWaiting,
	AppointmentStatusCalled,
	AppointmentStatusInSession,
}

// Все статусы, кроме отменённого: такие записи держат слот
var AppointmentActiveStatuses = []AppointmentStatus{
	AppointmentStatusBooked,
	AppointmentStatusWaiting,
	AppointmentStatusCalled,
	AppointmentStatusInSession,
	AppointmentStatusCompleted,
}

type AppointmentOrigin string

const (
	AppointmentOriginBooked AppointmentOrigin = "booked"
	AppointmentOriginWalkIn AppointmentOrigin = "walk_in"
)

type AppointmentType string

const (
	AppointmentTypeConsultation AppointmentType = "consultation"
	AppointmentTypeFollowUp     AppointmentType = "follow_up"
	AppointmentTypeProcedure    AppointmentType = "procedure"
)

// Запись о пропуске пациента (пациент не явился по вызову)
type SkipRecord struct {
	Reason    string    `json:"reason"`
	SkippedAt time.Time `json:"skippedAt"`
}

type CancellationInfo struct {
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelledBy"`
	CancelledAt time.Time `json:"cancelledAt"`
}

// Перенос записи: храним прежние дату и время
type RescheduleRecord struct {
	FromDate      string    `json:"fromDate"`
	FromTime      string    `json:"fromTime"`
	RescheduledAt time.Time `json:"rescheduledAt"`
}

type Appointment struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patientId"`
	DoctorID  uuid.UUID `json:"doctorId"`

	// Календарный день YYYY-MM-DD в таймзоне клиники и время HH:MM.
	// Нормализуются один раз на входе, дальше сравниваются как строки.
	Date string `json:"date"`
	Time string `json:"time"`

	Status           AppointmentStatus `json:"status"`
	Type             AppointmentType   `json:"type"`
	QueueNumber      int               `json:"queueNumber"`
	NotificationSent bool              `json:"notificationSent"`

	IsUrgent bool              `json:"isUrgent"`
	IsVip    bool              `json:"isVip"`
	Origin   AppointmentOrigin `json:"origin"`

	PatientName    string `json:"patientName"`
	PatientContact string `json:"patientContact"`
	DoctorName     string `json:"doctorName"`
	Notes          string `json:"notes"`

	SkipHistory  []SkipRecord       `json:"skipHistory,omitempty"`
	Cancellation *CancellationInfo  `json:"cancellation,omitempty"`
	Reschedules  []RescheduleRecord `json:"reschedules,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Занимает ли запись слот: отменённые записи слот освобождают
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentStatusCancelled
}

func (a *Appointment) IsAdmitted() bool {
	for _, status := range AppointmentAdmittedStatuses {
		if a.Status == status {
			return true
		}
	}
	return false
}
