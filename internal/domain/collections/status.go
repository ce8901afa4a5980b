package collections

// TaskStatus represents the lifecycle status of a collections task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// allowedTransitions is the complete transition table. Statuses absent from
// the map accept no transitions.
var allowedTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusCompleted, TaskStatusCancelled},
}

// IsValid checks if the status is a valid value
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of TaskStatus
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is possible
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// CanTransitionTo reports whether the transition table allows s -> next
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CollectionsType classifies the kind of collections work
type CollectionsType string

const (
	CollectionsTypePaymentReminder CollectionsType = "payment_reminder"
	CollectionsTypeOverdueNotice   CollectionsType = "overdue_notice"
	CollectionsTypePaymentPlan     CollectionsType = "payment_plan"
	CollectionsTypeNegotiation     CollectionsType = "negotiation"
	CollectionsTypeLegalAction     CollectionsType = "legal_action"
	CollectionsTypeOther           CollectionsType = "other"
)

// IsValid checks if the collections type is a valid value
func (c CollectionsType) IsValid() bool {
	switch c {
	case CollectionsTypePaymentReminder, CollectionsTypeOverdueNotice, CollectionsTypePaymentPlan,
		CollectionsTypeNegotiation, CollectionsTypeLegalAction, CollectionsTypeOther:
		return true
	}
	return false
}

// String returns the string representation of CollectionsType
func (c CollectionsType) String() string {
	return string(c)
}

// Priority is the work priority of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsValid checks if the priority is a valid value
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// String returns the string representation of Priority
func (p Priority) String() string {
	return string(p)
}

// RiskLevel is the assessed recovery risk of a task, ordered low to critical
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

var riskOrder = []RiskLevel{RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical}

// IsValid checks if the risk level is a valid value
func (r RiskLevel) IsValid() bool {
	return r.rank() >= 0
}

// String returns the string representation of RiskLevel
func (r RiskLevel) String() string {
	return string(r)
}

func (r RiskLevel) rank() int {
	for i, level := range riskOrder {
		if level == r {
			return i
		}
	}
	return -1
}

// Upgrade returns the next higher level, staying at critical
func (r RiskLevel) Upgrade() RiskLevel {
	i := r.rank()
	if i < 0 || i == len(riskOrder)-1 {
		return r
	}
	return riskOrder[i+1]
}

// Escalation bounds
const (
	MinEscalationLevel = 1
	MaxEscalationLevel = 5
)
