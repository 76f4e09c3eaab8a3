package domain

import (
	"time"

	"github.com/google/uuid"
)

// События для трансляции в реальном времени. Доставка не гарантируется,
// публикация не должна блокировать вызывающий запрос.

type QueueStatusEvent struct {
	DoctorID  uuid.UUID          `json:"doctorId"`
	Date      string             `json:"date"`
	Status    QueueSessionStatus `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

type AppointmentEventAction string

const (
	AppointmentEventCreated     AppointmentEventAction = "created"
	AppointmentEventCancelled   AppointmentEventAction = "cancelled"
	AppointmentEventRescheduled AppointmentEventAction = "rescheduled"
	AppointmentEventCalled      AppointmentEventAction = "called"
	AppointmentEventStarted     AppointmentEventAction = "started"
	AppointmentEventCompleted   AppointmentEventAction = "completed"
	AppointmentEventSkipped     AppointmentEventAction = "skipped"
)

type AppointmentEvent struct {
	AppointmentID uuid.UUID              `json:"appointmentId"`
	DoctorID      uuid.UUID              `json:"doctorId"`
	PatientID     uuid.UUID              `json:"patientId"`
	Action        AppointmentEventAction `json:"action"`
	Date          string                 `json:"date"`
	Time          string                 `json:"time,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}
