package queue_scheduler_service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

// Стейтфул-фейк хранилища: ведёт записи в памяти, чтобы тесты
// проверяли сквозные сценарии, а не последовательность вызовов
type fakeStore struct {
	mu            sync.Mutex
	appointments  map[uuid.UUID]*domain.Appointment
	availability  map[string]*domain.DoctorAvailability
	failFind      error
	failUpdate    error
	updatedBatch  [][]out.QueueNumberUpdate
	updatedSingle []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appointments: make(map[uuid.UUID]*domain.Appointment),
		availability: make(map[string]*domain.DoctorAvailability),
	}
}

func (f *fakeStore) addAvailability(doctorID uuid.UUID, date, startTime, endTime string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.availability[doctorID.String()+"|"+date] = &domain.DoctorAvailability{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
	}
}

func (f *fakeStore) addAppointment(appointment domain.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := appointment
	f.appointments[appointment.ID] = &copied
}

func (f *fakeStore) get(id uuid.UUID) *domain.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()

	if appointment, exists := f.appointments[id]; exists {
		copied := *appointment
		return &copied
	}
	return nil
}

func (f *fakeStore) CreateAppointment(ctx context.Context, appointment *domain.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *appointment
	f.appointments[appointment.ID] = &copied
	return nil
}

func (f *fakeStore) GetAppointmentByID(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	appointment, exists := f.appointments[appointmentID]
	if !exists {
		return nil, nil
	}
	copied := *appointment
	return &copied, nil
}

func (f *fakeStore) FindAppointments(ctx context.Context, filter out.AppointmentFilter, sortBy out.AppointmentSort) ([]domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFind != nil {
		return nil, f.failFind
	}

	matched := make([]domain.Appointment, 0)
	for _, appointment := range f.appointments {
		if filter.DoctorID != uuid.Nil && appointment.DoctorID != filter.DoctorID {
			continue
		}
		if filter.PatientID != uuid.Nil && appointment.PatientID != filter.PatientID {
			continue
		}
		if filter.Date != "" && appointment.Date != filter.Date {
			continue
		}
		if filter.Time != "" && appointment.Time != filter.Time {
			continue
		}
		if len(filter.Statuses) > 0 {
			found := false
			for _, status := range filter.Statuses {
				if appointment.Status == status {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, *appointment)
	}

	sort.Slice(matched, func(i, j int) bool {
		if sortBy == out.SortByDateTime {
			if matched[i].Date != matched[j].Date {
				return matched[i].Date < matched[j].Date
			}
			return matched[i].Time < matched[j].Time
		}
		return matched[i].QueueNumber < matched[j].QueueNumber
	})

	return matched, nil
}

func (f *fakeStore) UpdateAppointment(ctx context.Context, appointment *domain.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failUpdate != nil {
		return f.failUpdate
	}

	copied := *appointment
	f.appointments[appointment.ID] = &copied
	f.updatedSingle = append(f.updatedSingle, appointment.ID)
	return nil
}

func (f *fakeStore) UpdateQueueNumbers(ctx context.Context, updates []out.QueueNumberUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failUpdate != nil {
		return f.failUpdate
	}

	for _, update := range updates {
		if appointment, exists := f.appointments[update.AppointmentID]; exists {
			appointment.QueueNumber = update.QueueNumber
		}
	}
	f.updatedBatch = append(f.updatedBatch, updates)
	return nil
}

func (f *fakeStore) UpdateStatusBulk(ctx context.Context, doctorID uuid.UUID, date string, from []domain.AppointmentStatus, to domain.AppointmentStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, appointment := range f.appointments {
		if appointment.DoctorID != doctorID || appointment.Date != date {
			continue
		}
		for _, status := range from {
			if appointment.Status == status {
				appointment.Status = to
				count++
				break
			}
		}
	}
	return count, nil
}

func (f *fakeStore) GetDoctorAvailability(ctx context.Context, doctorID uuid.UUID, date string) (*domain.DoctorAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	availability, exists := f.availability[doctorID.String()+"|"+date]
	if !exists {
		return nil, nil
	}
	copied := *availability
	return &copied, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]domain.QueueSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]domain.QueueSession)}
}

func (f *fakeSessions) GetSession(ctx context.Context, doctorID uuid.UUID, date string) (*domain.QueueSession, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, exists := f.sessions[domain.QueueSessionKey(doctorID, date)]
	if !exists {
		return nil, false
	}
	return &session, true
}

func (f *fakeSessions) StoreSession(ctx context.Context, session domain.QueueSession) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions[session.Key()] = session
}

func (f *fakeSessions) ListSessions(ctx context.Context, date string) []domain.QueueSession {
	f.mu.Lock()
	defer f.mu.Unlock()

	sessions := make([]domain.QueueSession, 0)
	for _, session := range f.sessions {
		if session.Date == date {
			sessions = append(sessions, session)
		}
	}
	return sessions
}

type publishedEvent struct {
	Topic   string
	Payload interface{}
}

type fakeBroadcast struct {
	mu     sync.Mutex
	events []publishedEvent
	fail   error
}

func (f *fakeBroadcast) Publish(ctx context.Context, topic string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != nil {
		return f.fail
	}
	f.events = append(f.events, publishedEvent{Topic: topic, Payload: payload})
	return nil
}

func (f *fakeBroadcast) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	topics := make([]string, 0, len(f.events))
	for _, event := range f.events {
		topics = append(topics, event.Topic)
	}
	return topics
}

type sentNotification struct {
	Contact string
	Data    out.NotificationData
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail error
}

func (f *fakeNotifier) Send(ctx context.Context, contact string, data out.NotificationData) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentNotification{Contact: contact, Data: data})
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(event string, fields out.LogFields)         {}
func (nopLogger) Info(event string, fields out.LogFields)          {}
func (nopLogger) Warn(event string, fields out.LogFields)          {}
func (nopLogger) Error(event string, fields out.LogFields)         {}
func (l nopLogger) WithFields(fields out.LogFields) out.LoggerPort { return l }
func (l nopLogger) WithModule(module string) out.LoggerPort        { return l }

func boolPtr(v bool) *bool { return &v }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Queue.SlotMinutes = 30
	cfg.Queue.AvgAppointmentMinutes = 15
	cfg.Queue.NotifyAhead = 2
	cfg.Notifier.Enabled = true
	return cfg
}

type testEnv struct {
	service   *QueueSchedulerService
	store     *fakeStore
	sessions  *fakeSessions
	broadcast *fakeBroadcast
	notifier  *fakeNotifier
	cfg       *config.Config
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	sessions := newFakeSessions()
	broadcast := &fakeBroadcast{}
	notifier := &fakeNotifier{}
	cfg := testConfig()

	service := NewQueueSchedulerService(store, sessions, broadcast, notifier, cfg, nopLogger{})

	return &testEnv{
		service:   service,
		store:     store,
		sessions:  sessions,
		broadcast: broadcast,
		notifier:  notifier,
		cfg:       cfg,
	}
}
