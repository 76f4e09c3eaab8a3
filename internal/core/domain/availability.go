package domain

import "github.com/google/uuid"

// Объявленная доступность врача на календарный день.
// Времена хранятся строками HH:MM, как их отдаёт хранилище.
type DoctorAvailability struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctorId"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
}
