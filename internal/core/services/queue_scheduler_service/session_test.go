package queue_scheduler_service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAppointment(env *testEnv, doctorID uuid.UUID, date string, queueNumber int, status domain.AppointmentStatus) domain.Appointment {
	appointment := domain.Appointment{
		ID:          uuid.New(),
		PatientID:   uuid.New(),
		DoctorID:    doctorID,
		Date:        date,
		Status:      status,
		QueueNumber: queueNumber,
	}
	env.store.addAppointment(appointment)
	return appointment
}

func TestStartQueue(t *testing.T) {
	ctx := context.Background()
	doctorID := uuid.New()
	date := "2026-09-10"

	t.Run("promotes booked appointments to waiting", func(t *testing.T) {
		env := newTestEnv()
		first := seedAppointment(env, doctorID, date, 1, domain.AppointmentStatusBooked)
		second := seedAppointment(env, doctorID, date, 2, domain.AppointmentStatusBooked)
		cancelled := seedAppointment(env, doctorID, date, 3, domain.AppointmentStatusCancelled)

		session, err := env.service.StartQueue(ctx, doctorID, date)
		require.NoError(t, err)

		assert.Equal(t, domain.QueueSessionStatusActive, session.Status)
		assert.False(t, session.StartedAt.IsZero())

		assert.Equal(t, domain.AppointmentStatusWaiting, env.store.get(first.ID).Status)
		assert.Equal(t, domain.AppointmentStatusWaiting, env.store.get(second.ID).Status)
		assert.Equal(t, domain.AppointmentStatusCancelled, env.store.get(cancelled.ID).Status)

		assert.Contains(t, env.broadcast.topics(), "clinic.queue-status."+doctorID.String())
	})

	t.Run("double start is a conflict", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.StartQueue(ctx, doctorID, date)
		require.NoError(t, err)

		_, err = env.service.StartQueue(ctx, doctorID, date)
		require.Error(t, err)
		assert.Equal(t, domain.CodeAlreadyActive, domain.ErrorCodeOf(err))
	})

	t.Run("restart after stop is allowed", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.StartQueue(ctx, doctorID, date)
		require.NoError(t, err)

		_, err = env.service.StopQueue(ctx, doctorID, date)
		require.NoError(t, err)

		session, err := env.service.StartQueue(ctx, doctorID, date)
		require.NoError(t, err)
		assert.Equal(t, domain.QueueSessionStatusActive, session.Status)
	})
}

func TestPauseResumeQueue(t *testing.T) {
	ctx := context.Background()
	doctorID := uuid.New()
	date := "2026-09-10"

	t.Run("pause requires an active session", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.PauseQueue(ctx, doctorID, date, "lunch")
		require.Error(t, err)
		assert.Equal(t, domain.CodeNotActive, domain.ErrorCodeOf(err))
	})

	t.Run("pause records the reason", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.StartQueue(ctx, doctorID, date)
		require.NoError(t, err)

		session, err := env.service.PauseQueue(ctx, doctorID, date, "lunch")
		require.NoError(t, err)

		assert.Equal(t, domain.QueueSessionStatusPaused, session.Status)
		assert.Equal(t, "lunch", session.PauseReason)
		assert.False(t, session.PausedAt.IsZero())
	})

	t.Run("resume requires a paused session", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.StartQueue(ctx, doctorID, date)
		require.NoError(t, err)

		_, err = env.service.ResumeQueue(ctx, doctorID, date)
		require.Error(t, err)
		assert.Equal(t, domain.CodeNotPaused, domain.ErrorCodeOf(err))
	})

	t.Run("pause then resume", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.StartQueue(ctx, doctorID, date)
		require.NoError(t, err)

		_, err = env.service.PauseQueue(ctx, doctorID, date, "lunch")
		require.NoError(t, err)

		session, err := env.service.ResumeQueue(ctx, doctorID, date)
		require.NoError(t, err)

		assert.Equal(t, domain.QueueSessionStatusActive, session.Status)
		assert.False(t, session.ResumedAt.IsZero())
	})
}

func TestStopQueue(t *testing.T) {
	ctx := context.Background()
	doctorID := uuid.New()
	date := "2026-09-10"

	t.Run("reverts waiting and called patients to booked", func(t *testing.T) {
		env := newTestEnv()
		waiting := seedAppointment(env, doctorID, date, 1, domain.AppointmentStatusWaiting)
		called := seedAppointment(env, doctorID, date, 2, domain.AppointmentStatusCalled)
		inSession := seedAppointment(env, doctorID, date, 3, domain.AppointmentStatusInSession)
		completed := seedAppointment(env, doctorID, date, 4, domain.AppointmentStatusCompleted)

		_, err := env.service.StartQueue(ctx, doctorID, date)
		require.NoError(t, err)

		session, err := env.service.StopQueue(ctx, doctorID, date)
		require.NoError(t, err)

		assert.Equal(t, domain.QueueSessionStatusStopped, session.Status)
		assert.False(t, session.StoppedAt.IsZero())

		assert.Equal(t, domain.AppointmentStatusBooked, env.store.get(waiting.ID).Status)
		assert.Equal(t, domain.AppointmentStatusBooked, env.store.get(called.ID).Status)
		assert.Equal(t, domain.AppointmentStatusInSession, env.store.get(inSession.ID).Status)
		assert.Equal(t, domain.AppointmentStatusCompleted, env.store.get(completed.ID).Status)
	})

	t.Run("stop without prior session creates a stopped record", func(t *testing.T) {
		env := newTestEnv()

		session, err := env.service.StopQueue(ctx, doctorID, date)
		require.NoError(t, err)
		assert.Equal(t, domain.QueueSessionStatusStopped, session.Status)
	})
}

func TestGetQueueStatus(t *testing.T) {
	ctx := context.Background()
	doctorID := uuid.New()
	date := "2026-09-10"

	env := newTestEnv()
	seedAppointment(env, doctorID, date, 1, domain.AppointmentStatusCompleted)
	seedAppointment(env, doctorID, date, 2, domain.AppointmentStatusInSession)
	seedAppointment(env, doctorID, date, 3, domain.AppointmentStatusCalled)
	seedAppointment(env, doctorID, date, 4, domain.AppointmentStatusWaiting)
	seedAppointment(env, doctorID, date, 5, domain.AppointmentStatusWaiting)
	// Записи другого врача в срез не попадают
	seedAppointment(env, uuid.New(), date, 1, domain.AppointmentStatusWaiting)

	env.sessions.StoreSession(ctx, domain.QueueSession{
		DoctorID: doctorID,
		Date:     date,
		Status:   domain.QueueSessionStatusActive,
	})

	status, err := env.service.GetQueueStatus(ctx, doctorID, date)
	require.NoError(t, err)

	assert.Equal(t, domain.QueueSessionStatusActive, status.SessionStatus)
	assert.Equal(t, 2, status.Counts[domain.AppointmentStatusWaiting])
	assert.Equal(t, 1, status.Counts[domain.AppointmentStatusCalled])
	assert.Equal(t, 1, status.Counts[domain.AppointmentStatusInSession])
	assert.Equal(t, 1, status.Counts[domain.AppointmentStatusCompleted])
	assert.Equal(t, 2, status.CurrentQueueNumber)
	assert.Equal(t, 4, status.NextQueueNumber)
}

func TestGetEstimatedWaitTime(t *testing.T) {
	ctx := context.Background()
	doctorID := uuid.New()
	date := "2026-09-10"

	t.Run("counts admitted patients ahead", func(t *testing.T) {
		env := newTestEnv()
		seedAppointment(env, doctorID, date, 1, domain.AppointmentStatusInSession)
		seedAppointment(env, doctorID, date, 2, domain.AppointmentStatusCalled)
		seedAppointment(env, doctorID, date, 3, domain.AppointmentStatusWaiting)
		// Завершённые и отменённые не в счёт
		seedAppointment(env, doctorID, date, 4, domain.AppointmentStatusCompleted)
		seedAppointment(env, doctorID, date, 5, domain.AppointmentStatusCancelled)

		minutes, err := env.service.GetEstimatedWaitTime(ctx, doctorID, date, 6)
		require.NoError(t, err)
		assert.Equal(t, 45, minutes)
	})

	t.Run("first in line waits nothing", func(t *testing.T) {
		env := newTestEnv()
		seedAppointment(env, doctorID, date, 3, domain.AppointmentStatusWaiting)

		minutes, err := env.service.GetEstimatedWaitTime(ctx, doctorID, date, 3)
		require.NoError(t, err)
		assert.Equal(t, 0, minutes)
	})

	t.Run("queue number must be positive", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.service.GetEstimatedWaitTime(ctx, doctorID, date, 0)
		require.Error(t, err)
		assert.Equal(t, domain.CodeInvalidInput, domain.ErrorCodeOf(err))
	})
}

func TestListQueueSessions(t *testing.T) {
	ctx := context.Background()
	date := "2026-09-10"

	env := newTestEnv()
	firstDoctor := uuid.New()
	secondDoctor := uuid.New()

	seedAppointment(env, firstDoctor, date, 1, domain.AppointmentStatusWaiting)

	_, err := env.service.StartQueue(ctx, firstDoctor, date)
	require.NoError(t, err)
	_, err = env.service.StartQueue(ctx, secondDoctor, date)
	require.NoError(t, err)
	// Сессия другого дня в выборку не входит
	_, err = env.service.StartQueue(ctx, firstDoctor, "2026-09-11")
	require.NoError(t, err)

	statuses, err := env.service.ListQueueSessions(ctx, date)
	require.NoError(t, err)
	assert.Len(t, statuses, 2)
	for _, status := range statuses {
		assert.Equal(t, date, status.Date)
		assert.Equal(t, domain.QueueSessionStatusActive, status.SessionStatus)
	}
}
