package medstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

// MedStoreAdapter — REST-клиент внешнего хранилища медицинских записей.
// Сервис не знает, что за СУБД стоит за этим API.
type MedStoreAdapter struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	logger   out.LoggerPort
}

func NewMedStoreAdapter(cfg *config.Config, logger out.LoggerPort) *MedStoreAdapter {
	return &MedStoreAdapter{
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  cfg.MedStore.URL,
		username: cfg.MedStore.Username,
		password: cfg.MedStore.Password,
		logger:   logger,
	}
}

func (a *MedStoreAdapter) do(ctx context.Context, method, path string, query nurl.Values, body interface{}, result interface{}) (int, error) {
	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return 0, err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.username, a.password)

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, err
		}
	}

	return resp.StatusCode, nil
}

func (a *MedStoreAdapter) CreateAppointment(ctx context.Context, appointment *domain.Appointment) error {
	_, err := a.do(ctx, http.MethodPost, "/Appointment", nil, appointment, appointment)
	if err != nil {
		a.logger.Error("medstore.appointment.create_failed", out.LogFields{
			"appointmentId": appointment.ID,
			"error":         err.Error(),
		})
		return err
	}

	a.logger.Debug("medstore.appointment.created", out.LogFields{
		"appointmentId": appointment.ID,
	})

	return nil
}

func (a *MedStoreAdapter) GetAppointmentByID(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	var appointment domain.Appointment
	status, err := a.do(ctx, http.MethodGet, "/Appointment/"+appointmentID.String(), nil, nil, &appointment)
	if err != nil {
		a.logger.Error("medstore.appointment.fetch_failed", out.LogFields{
			"appointmentId": appointmentID,
			"error":         err.Error(),
		})
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	return &appointment, nil
}

func (a *MedStoreAdapter) FindAppointments(ctx context.Context, filter out.AppointmentFilter, sort out.AppointmentSort) ([]domain.Appointment, error) {
	query := nurl.Values{}
	if filter.DoctorID != uuid.Nil {
		query.Add("doctor", filter.DoctorID.String())
	}
	if filter.PatientID != uuid.Nil {
		query.Add("patient", filter.PatientID.String())
	}
	if filter.Date != "" {
		query.Add("date", filter.Date)
	}
	if filter.Time != "" {
		query.Add("time", filter.Time)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		query.Add("status", strings.Join(statuses, ","))
	}
	if sort != "" {
		query.Add("_sort", string(sort))
	}

	var appointments []domain.Appointment
	if _, err := a.do(ctx, http.MethodGet, "/Appointment", query, nil, &appointments); err != nil {
		a.logger.Error("medstore.appointment.search_failed", out.LogFields{
			"query": query.Encode(),
			"error": err.Error(),
		})
		return nil, err
	}

	a.logger.Debug("medstore.appointment.search_success", out.LogFields{
		"count": len(appointments),
	})

	return appointments, nil
}

func (a *MedStoreAdapter) UpdateAppointment(ctx context.Context, appointment *domain.Appointment) error {
	_, err := a.do(ctx, http.MethodPut, "/Appointment/"+appointment.ID.String(), nil, appointment, nil)
	if err != nil {
		a.logger.Error("medstore.appointment.update_failed", out.LogFields{
			"appointmentId": appointment.ID,
			"error":         err.Error(),
		})
		return err
	}

	return nil
}

type queueNumbersRequest struct {
	Updates []out.QueueNumberUpdate `json:"updates"`
}

// UpdateQueueNumbers шлёт перенумерацию одним запросом:
// хранилище применяет её в транзакции целиком
func (a *MedStoreAdapter) UpdateQueueNumbers(ctx context.Context, updates []out.QueueNumberUpdate) error {
	_, err := a.do(ctx, http.MethodPost, "/Appointment/$queue-numbers", nil, queueNumbersRequest{Updates: updates}, nil)
	if err != nil {
		a.logger.Error("medstore.queue_numbers.update_failed", out.LogFields{
			"updates": len(updates),
			"error":   err.Error(),
		})
		return err
	}

	a.logger.Debug("medstore.queue_numbers.updated", out.LogFields{
		"updates": len(updates),
	})

	return nil
}

type bulkStatusRequest struct {
	DoctorID uuid.UUID                  `json:"doctorId"`
	Date     string                     `json:"date"`
	From     []domain.AppointmentStatus `json:"from"`
	To       domain.AppointmentStatus   `json:"to"`
}

type bulkStatusResponse struct {
	Count int `json:"count"`
}

func (a *MedStoreAdapter) UpdateStatusBulk(ctx context.Context, doctorID uuid.UUID, date string, from []domain.AppointmentStatus, to domain.AppointmentStatus) (int, error) {
	request := bulkStatusRequest{
		DoctorID: doctorID,
		Date:     date,
		From:     from,
		To:       to,
	}

	var response bulkStatusResponse
	if _, err := a.do(ctx, http.MethodPost, "/Appointment/$bulk-status", nil, request, &response); err != nil {
		a.logger.Error("medstore.bulk_status.update_failed", out.LogFields{
			"doctorId": doctorID,
			"date":     date,
			"to":       to,
			"error":    err.Error(),
		})
		return 0, err
	}

	a.logger.Debug("medstore.bulk_status.updated", out.LogFields{
		"doctorId": doctorID,
		"date":     date,
		"to":       to,
		"count":    response.Count,
	})

	return response.Count, nil
}

func (a *MedStoreAdapter) GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID, date string) (*domain.DoctorAvailability, error) {
	query := nurl.Values{}
	query.Add("doctor", doctorID.String())
	query.Add("date", date)

	var availabilities []domain.DoctorAvailability
	if _, err := a.do(ctx, http.MethodGet, "/DoctorAvailability", query, nil, &availabilities); err != nil {
		a.logger.Error("medstore.availability.fetch_failed", out.LogFields{
			"doctorId": doctorID,
			"date":     date,
			"error":    err.Error(),
		})
		return nil, err
	}

	if len(availabilities) == 0 {
		return nil, nil
	}

	return &availabilities[0], nil
}
