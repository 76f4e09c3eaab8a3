package queue_scheduler_service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/in"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

// ReorderQueue применяет ручные перестановки к текущему списку
// ожидающих и вызванных. Весь батч валидируется до первой мутации:
// одна плохая заявка отклоняет весь запрос.
func (s *QueueSchedulerService) ReorderQueue(ctx context.Context, doctorID uuid.UUID, date string, requests []in.ReorderRequest) error {
	unlock := s.locks.Lock(domain.QueueSessionKey(doctorID, date))
	defer unlock()

	queue, err := s.store.FindAppointments(ctx, out.AppointmentFilter{
		DoctorID: doctorID,
		Date:     date,
		Statuses: []domain.AppointmentStatus{
			domain.AppointmentStatusWaiting,
			domain.AppointmentStatusCalled,
		},
	}, out.SortByQueueNumber)
	if err != nil {
		return domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch queue", err)
	}

	positions := make(map[uuid.UUID]struct{}, len(queue))
	for i := range queue {
		positions[queue[i].ID] = struct{}{}
	}

	for _, request := range requests {
		if _, exists := positions[request.AppointmentID]; !exists {
			return domain.NewValidationError(domain.CodeInvalidReorderRequest, "appointment %s is not in the queue", request.AppointmentID)
		}
		if request.NewPosition < 0 || request.NewPosition >= len(queue) {
			return domain.NewValidationError(domain.CodeInvalidReorderRequest, "position %d is out of range [0, %d)", request.NewPosition, len(queue))
		}
	}

	// Заявки применяются последовательно: каждая видит результат предыдущей
	for _, request := range requests {
		currentIndex := -1
		for i := range queue {
			if queue[i].ID == request.AppointmentID {
				currentIndex = i
				break
			}
		}

		moved := queue[currentIndex]
		queue = append(queue[:currentIndex], queue[currentIndex+1:]...)
		queue = insertAppointment(queue, request.NewPosition, moved)
	}

	if err := s.renumberQueue(ctx, queue); err != nil {
		return err
	}

	s.logger.Info("queue.reordered", out.LogFields{
		"doctorId": doctorID,
		"date":     date,
		"requests": len(requests),
		"length":   len(queue),
	})

	s.publishReorderEvent(ctx, doctorID, date)

	return nil
}

// ApplyQueueRules прогоняет ожидающих через конвейер правил
// в порядке возрастания приоритета и перенумеровывает результат
func (s *QueueSchedulerService) ApplyQueueRules(ctx context.Context, doctorID uuid.UUID, date string, rules []domain.QueueRule) error {
	unlock := s.locks.Lock(domain.QueueSessionKey(doctorID, date))
	defer unlock()

	queue, err := s.store.FindAppointments(ctx, out.AppointmentFilter{
		DoctorID: doctorID,
		Date:     date,
		Statuses: []domain.AppointmentStatus{domain.AppointmentStatusWaiting},
	}, out.SortByQueueNumber)
	if err != nil {
		return domain.NewExternalError(domain.CodeStoreFailure, "failed to fetch waiting queue", err)
	}

	// Пустая очередь — успешный no-op
	if len(queue) == 0 {
		return nil
	}

	if rules == nil {
		rules = domain.DefaultQueueRules()
	}

	// Сортируем копию: срез правил принадлежит вызывающему
	ordered := make([]domain.QueueRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, rule := range ordered {
		queue = applyRule(queue, rule)
	}

	if err := s.renumberQueue(ctx, queue); err != nil {
		return err
	}

	s.logger.Info("queue.rules_applied", out.LogFields{
		"doctorId": doctorID,
		"date":     date,
		"rules":    len(ordered),
		"length":   len(queue),
	})

	s.publishReorderEvent(ctx, doctorID, date)

	return nil
}

// applyRule делит очередь на совпавших и остальных, сохраняя
// относительный порядок обеих групп, и собирает её заново по действию
func applyRule(queue []domain.Appointment, rule domain.QueueRule) []domain.Appointment {
	matching := make([]domain.Appointment, 0)
	nonMatching := make([]domain.Appointment, 0)

	for i := range queue {
		if matchesRule(&queue[i], &rule) {
			matching = append(matching, queue[i])
		} else {
			nonMatching = append(nonMatching, queue[i])
		}
	}

	switch rule.Action {
	case domain.QueueRuleActionMoveToFront:
		return append(matching, nonMatching...)

	case domain.QueueRuleActionMoveToBack:
		return append(nonMatching, matching...)

	case domain.QueueRuleActionPriorityBoost:
		// Мягкий подъём: i-й совпавший встаёт на позицию min(i*2, len),
		// то есть поднимается примерно на два места, без жёсткого ранга
		result := nonMatching
		for i := range matching {
			position := i * 2
			if position > len(result) {
				position = len(result)
			}
			result = insertAppointment(result, position, matching[i])
		}
		return result
	}

	// skip и неизвестные действия порядок не меняют
	return queue
}

// matchesRule: nil-условие не участвует в проверке; возрастные границы
// объявлены в схеме правил, но возраст на записи недоступен и никого не исключает
func matchesRule(appointment *domain.Appointment, rule *domain.QueueRule) bool {
	conditions := rule.Conditions

	if conditions.IsUrgent != nil && appointment.IsUrgent != *conditions.IsUrgent {
		return false
	}
	if conditions.IsVip != nil && appointment.IsVip != *conditions.IsVip {
		return false
	}
	if conditions.AppointmentType != nil && appointment.Type != *conditions.AppointmentType {
		return false
	}

	return true
}

// renumberQueue присваивает номера 1..N по позиции и пишет их
// одним батчем: очередь не наблюдаема наполовину перенумерованной
func (s *QueueSchedulerService) renumberQueue(ctx context.Context, queue []domain.Appointment) error {
	updates := make([]out.QueueNumberUpdate, 0, len(queue))
	for i := range queue {
		updates = append(updates, out.QueueNumberUpdate{
			AppointmentID: queue[i].ID,
			QueueNumber:   i + 1,
		})
	}

	if len(updates) == 0 {
		return nil
	}

	if err := s.store.UpdateQueueNumbers(ctx, updates); err != nil {
		s.logger.Error("queue.renumber.store_failed", out.LogFields{
			"updates": len(updates),
			"error":   err.Error(),
		})
		return domain.NewExternalError(domain.CodeStoreFailure, "failed to persist queue numbers", err)
	}

	return nil
}

func (s *QueueSchedulerService) publishReorderEvent(ctx context.Context, doctorID uuid.UUID, date string) {
	session, exists := s.sessions.GetSession(ctx, doctorID, date)
	if !exists {
		session = &domain.QueueSession{DoctorID: doctorID, Date: date}
	}
	s.publishQueueStatusEvent(ctx, session, "queue_reordered")
}

func insertAppointment(list []domain.Appointment, index int, appointment domain.Appointment) []domain.Appointment {
	list = append(list, domain.Appointment{})
	copy(list[index+1:], list[index:])
	list[index] = appointment
	return list
}
