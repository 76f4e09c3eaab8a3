package domain

import "github.com/google/uuid"

type QueueRuleAction string

const (
	QueueRuleActionMoveToFront   QueueRuleAction = "move_to_front"
	QueueRuleActionMoveToBack    QueueRuleAction = "move_to_back"
	QueueRuleActionPriorityBoost QueueRuleAction = "priority_boost"
	// Действие skip принимается при загрузке правил, но порядок не меняет:
	// пропуск пациента выполняется отдельной операцией SkipPatient
	QueueRuleActionSkip QueueRuleAction = "skip"
)

// Условия правила. Nil-поле означает "условие не задано".
// Возрастные границы объявлены в схеме, но возраст пациента
// на записи недоступен, поэтому они никого не исключают.
type QueueRuleConditions struct {
	IsUrgent        *bool            `json:"isUrgent,omitempty"`
	IsVip           *bool            `json:"isVip,omitempty"`
	MinAge          *int             `json:"minAge,omitempty"`
	MaxAge          *int             `json:"maxAge,omitempty"`
	AppointmentType *AppointmentType `json:"appointmentType,omitempty"`
}

type QueueRule struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	Priority   int                 `json:"priority"`
	Conditions QueueRuleConditions `json:"conditions"`
	Action     QueueRuleAction     `json:"action"`
}

func boolPtr(v bool) *bool { return &v }

// Правила по умолчанию: срочные в начало, VIP следом с мягким подъёмом
func DefaultQueueRules() []QueueRule {
	return []QueueRule{
		{
			ID:         uuid.New(),
			Name:       "urgent-first",
			Priority:   1,
			Conditions: QueueRuleConditions{IsUrgent: boolPtr(true)},
			Action:     QueueRuleActionMoveToFront,
		},
		{
			ID:         uuid.New(),
			Name:       "vip-boost",
			Priority:   2,
			Conditions: QueueRuleConditions{IsVip: boolPtr(true)},
			Action:     QueueRuleActionPriorityBoost,
		},
	}
}
