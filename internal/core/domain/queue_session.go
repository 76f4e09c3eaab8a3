package domain

import (
	"time"

	"github.com/google/uuid"
)

type QueueSessionStatus string

const (
	QueueSessionStatusActive  QueueSessionStatus = "active"
	QueueSessionStatusPaused  QueueSessionStatus = "paused"
	QueueSessionStatusStopped QueueSessionStatus = "stopped"
)

// Сессия приёма врача на день. Отсутствие сессии означает,
// что приём ещё не открывался.
type QueueSession struct {
	DoctorID    uuid.UUID          `json:"doctorId"`
	Date        string             `json:"date"`
	Status      QueueSessionStatus `json:"status"`
	StartedAt   time.Time          `json:"startedAt"`
	PausedAt    time.Time          `json:"pausedAt,omitempty"`
	ResumedAt   time.Time          `json:"resumedAt,omitempty"`
	StoppedAt   time.Time          `json:"stoppedAt,omitempty"`
	PauseReason string             `json:"pauseReason,omitempty"`
}

// Ключ сессии: врач + день
func QueueSessionKey(doctorID uuid.UUID, date string) string {
	return doctorID.String() + "|" + date
}

func (s *QueueSession) Key() string {
	return QueueSessionKey(s.DoctorID, s.Date)
}

// Сводка по очереди врача на день
type QueueStatus struct {
	DoctorID           uuid.UUID                 `json:"doctorId"`
	Date               string                    `json:"date"`
	SessionStatus      QueueSessionStatus        `json:"sessionStatus,omitempty"`
	Counts             map[AppointmentStatus]int `json:"counts"`
	CurrentQueueNumber int                       `json:"currentQueueNumber,omitempty"`
	NextQueueNumber    int                       `json:"nextQueueNumber,omitempty"`
}
