package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/in"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(event string, fields out.LogFields)         {}
func (nopLogger) Info(event string, fields out.LogFields)          {}
func (nopLogger) Warn(event string, fields out.LogFields)          {}
func (nopLogger) Error(event string, fields out.LogFields)         {}
func (l nopLogger) WithFields(fields out.LogFields) out.LoggerPort { return l }
func (l nopLogger) WithModule(module string) out.LoggerPort        { return l }

// Стаб use-case: методы с заданной функцией вызывают её,
// остальные возвращают нулевые значения
type stubUseCase struct {
	createAppointment func(in.BookingRequest) (*domain.Appointment, error)
	startQueue        func(uuid.UUID, string) (*domain.QueueSession, error)
	queueStatus       func(uuid.UUID, string) (*domain.QueueStatus, error)
	estimatedWait     func(uuid.UUID, string, int) (int, error)
}

func (s *stubUseCase) CreateAppointment(ctx context.Context, req in.BookingRequest) (*domain.Appointment, error) {
	if s.createAppointment != nil {
		return s.createAppointment(req)
	}
	return &domain.Appointment{}, nil
}

func (s *stubUseCase) CancelAppointment(ctx context.Context, appointmentID uuid.UUID, reason, actor string) (*domain.Appointment, error) {
	return &domain.Appointment{}, nil
}

func (s *stubUseCase) RescheduleAppointment(ctx context.Context, appointmentID uuid.UUID, newDate, newTime string) (*domain.Appointment, error) {
	return &domain.Appointment{}, nil
}

func (s *stubUseCase) StartQueue(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, error) {
	if s.startQueue != nil {
		return s.startQueue(doctorID, date)
	}
	return &domain.QueueSession{}, nil
}

func (s *stubUseCase) PauseQueue(ctx context.Context, doctorID uuid.UUID, date, reason string) (*domain.QueueSession, error) {
	return &domain.QueueSession{}, nil
}

func (s *stubUseCase) ResumeQueue(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, error) {
	return &domain.QueueSession{}, nil
}

func (s *stubUseCase) StopQueue(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, error) {
	return &domain.QueueSession{}, nil
}

func (s *stubUseCase) GetQueueStatus(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueStatus, error) {
	if s.queueStatus != nil {
		return s.queueStatus(doctorID, date)
	}
	return &domain.QueueStatus{}, nil
}

func (s *stubUseCase) GetEstimatedWaitTime(ctx context.Context, doctorID uuid.UUID, date string, queueNumber int) (int, error) {
	if s.estimatedWait != nil {
		return s.estimatedWait(doctorID, date, queueNumber)
	}
	return 0, nil
}

func (s *stubUseCase) ListQueueSessions(ctx context.Context, date string) ([]domain.QueueStatus, error) {
	return nil, nil
}

func (s *stubUseCase) ReorderQueue(ctx context.Context, doctorID uuid.UUID, date string, requests []in.ReorderRequest) error {
	return nil
}

func (s *stubUseCase) ApplyQueueRules(ctx context.Context, doctorID uuid.UUID, date string, rules []domain.QueueRule) error {
	return nil
}

func (s *stubUseCase) AddWalkInPatient(ctx context.Context, req in.WalkInRequest) (*domain.Appointment, error) {
	return &domain.Appointment{}, nil
}

func (s *stubUseCase) SkipPatient(ctx context.Context, appointmentID uuid.UUID, reason string) (*domain.Appointment, error) {
	return &domain.Appointment{}, nil
}

func (s *stubUseCase) CallNextPatient(ctx context.Context, doctorID uuid.UUID, date string) (*domain.Appointment, error) {
	return &domain.Appointment{}, nil
}

func (s *stubUseCase) StartConsultation(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	return &domain.Appointment{}, nil
}

func (s *stubUseCase) CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	return &domain.Appointment{}, nil
}

func (s *stubUseCase) CheckAndNotifyPatients(ctx context.Context, doctorID uuid.UUID, currentAppointmentID uuid.UUID) {
}

func newTestRouter(useCase in.QueueSchedulerUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Auth.BasicClients = []config.ConfigBasicClient{
		{Username: "queue_scheduler", Password: "queue_scheduler"},
	}

	router := gin.New()
	controller := NewQueueSchedulerController(useCase, cfg, nopLogger{})
	controller.RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}, authorized bool) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.SetBasicAuth("queue_scheduler", "queue_scheduler")
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestBasicAuth(t *testing.T) {
	router := newTestRouter(&stubUseCase{})

	t.Run("missing credentials", func(t *testing.T) {
		recorder := doRequest(router, http.MethodGet, "/api/v1/queues?date=2026-09-10", nil, false)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/queues?date=2026-09-10", nil)
		req.SetBasicAuth("intruder", "guess")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("valid credentials", func(t *testing.T) {
		recorder := doRequest(router, http.MethodGet, "/api/v1/queues?date=2026-09-10", nil, true)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		router := newTestRouter(&stubUseCase{
			createAppointment: func(req in.BookingRequest) (*domain.Appointment, error) {
				return &domain.Appointment{
					ID:          uuid.New(),
					PatientID:   req.PatientID,
					DoctorID:    req.DoctorID,
					Date:        req.Date,
					Time:        req.Time,
					Status:      domain.AppointmentStatusBooked,
					QueueNumber: 3,
				}, nil
			},
		})

		recorder := doRequest(router, http.MethodPost, "/api/v1/appointments", gin.H{
			"patientId": uuid.New().String(),
			"doctorId":  uuid.New().String(),
			"date":      "2026-09-10",
			"time":      "10:15",
		}, true)

		require.Equal(t, http.StatusCreated, recorder.Code)

		var response apiResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.True(t, response.Success)
	})

	t.Run("missing required fields", func(t *testing.T) {
		router := newTestRouter(&stubUseCase{})

		recorder := doRequest(router, http.MethodPost, "/api/v1/appointments", gin.H{
			"date": "2026-09-10",
		}, true)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("conflict maps to 409", func(t *testing.T) {
		router := newTestRouter(&stubUseCase{
			createAppointment: func(req in.BookingRequest) (*domain.Appointment, error) {
				return nil, domain.NewConflictError(domain.CodeSlotConflict, "slot is already booked")
			},
		})

		recorder := doRequest(router, http.MethodPost, "/api/v1/appointments", gin.H{
			"patientId": uuid.New().String(),
			"doctorId":  uuid.New().String(),
			"date":      "2026-09-10",
			"time":      "10:15",
		}, true)

		assert.Equal(t, http.StatusConflict, recorder.Code)
	})

	t.Run("validation maps to 400", func(t *testing.T) {
		router := newTestRouter(&stubUseCase{
			createAppointment: func(req in.BookingRequest) (*domain.Appointment, error) {
				return nil, domain.NewValidationError(domain.CodeInvalidBookingTime, "before start time")
			},
		})

		recorder := doRequest(router, http.MethodPost, "/api/v1/appointments", gin.H{
			"patientId": uuid.New().String(),
			"doctorId":  uuid.New().String(),
			"date":      "2026-09-10",
			"time":      "08:45",
		}, true)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestQueueEndpoints(t *testing.T) {
	doctorID := uuid.New()

	t.Run("invalid doctor id", func(t *testing.T) {
		router := newTestRouter(&stubUseCase{})

		recorder := doRequest(router, http.MethodGet, "/api/v1/queues/not-a-uuid/2026-09-10/status", nil, true)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("queue status", func(t *testing.T) {
		router := newTestRouter(&stubUseCase{
			queueStatus: func(id uuid.UUID, date string) (*domain.QueueStatus, error) {
				return &domain.QueueStatus{
					DoctorID:           id,
					Date:               date,
					CurrentQueueNumber: 2,
					NextQueueNumber:    4,
				}, nil
			},
		})

		recorder := doRequest(router, http.MethodGet, "/api/v1/queues/"+doctorID.String()+"/2026-09-10/status", nil, true)
		require.Equal(t, http.StatusOK, recorder.Code)

		var response apiResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.True(t, response.Success)
	})

	t.Run("conflict on double start maps to 409", func(t *testing.T) {
		router := newTestRouter(&stubUseCase{
			startQueue: func(id uuid.UUID, date string) (*domain.QueueSession, error) {
				return nil, domain.NewConflictError(domain.CodeAlreadyActive, "already active")
			},
		})

		recorder := doRequest(router, http.MethodPost, "/api/v1/queues/"+doctorID.String()+"/2026-09-10/start", nil, true)
		assert.Equal(t, http.StatusConflict, recorder.Code)
	})

	t.Run("wait time requires numeric queue number", func(t *testing.T) {
		router := newTestRouter(&stubUseCase{})

		recorder := doRequest(router, http.MethodGet, "/api/v1/queues/"+doctorID.String()+"/2026-09-10/wait-time?queueNumber=three", nil, true)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("wait time", func(t *testing.T) {
		router := newTestRouter(&stubUseCase{
			estimatedWait: func(id uuid.UUID, date string, queueNumber int) (int, error) {
				return queueNumber * 15, nil
			},
		})

		recorder := doRequest(router, http.MethodGet, "/api/v1/queues/"+doctorID.String()+"/2026-09-10/wait-time?queueNumber=3", nil, true)
		require.Equal(t, http.StatusOK, recorder.Code)

		var response apiResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		data, ok := response.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(45), data["estimatedWaitMinutes"])
	})
}
