package out

import "context"

// Данные для шаблона уведомления "скоро ваша очередь"
type NotificationData struct {
	PatientName          string `json:"patientName"`
	DoctorName           string `json:"doctorName"`
	QueueNumber          int    `json:"queueNumber"`
	CurrentQueueNumber   int    `json:"currentQueueNumber"`
	EstimatedWaitMinutes int    `json:"estimatedWaitMinutes"`
}

// Доставка уведомлений (email/SMS — решает шлюз). Ошибка доставки
// терпима: переход статуса из-за неё не откатывается.
type NotifierPort interface {
	Send(ctx context.Context, contact string, data NotificationData) error
}
