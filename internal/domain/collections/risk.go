package collections

import (
	"fmt"
	"sort"
	"time"
)

// RiskPolicy holds the thresholds of the risk classifier
type RiskPolicy struct {
	// MediumAfterDays, HighAfterDays and CriticalAfterDays are the first
	// overdue day counts that reach each level
	MediumAfterDays   int
	HighAfterDays     int
	CriticalAfterDays int
	// UnresponsiveWindow is how many of the latest communications must all be
	// unresponsive to raise the level by one
	UnresponsiveWindow int
}

// DefaultRiskPolicy returns the reference thresholds: 0 days low, 1-14 medium,
// 15-45 high, 46+ critical, upgrade after 3 unresponsive contacts.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		MediumAfterDays:    1,
		HighAfterDays:      15,
		CriticalAfterDays:  46,
		UnresponsiveWindow: 3,
	}
}

// RiskRecommendation is the advisory output of the classifier
type RiskRecommendation struct {
	Level       RiskLevel `json:"level"`
	BaseLevel   RiskLevel `json:"base_level"`
	DaysOverdue int       `json:"days_overdue"`
	Upgraded    bool      `json:"upgraded"`
	Reason      string    `json:"reason"`
}

// RiskClassifier recommends a risk level from overdue days and recent contact outcomes
type RiskClassifier struct {
	policy RiskPolicy
}

// NewRiskClassifier creates a classifier; a zero policy falls back to the defaults
func NewRiskClassifier(policy RiskPolicy) *RiskClassifier {
	if policy == (RiskPolicy{}) {
		policy = DefaultRiskPolicy()
	}
	return &RiskClassifier{policy: policy}
}

// DaysOverdue returns whole UTC calendar days from dueDate to today, never negative
func DaysOverdue(dueDate, today time.Time) int {
	due := StartOfDay(dueDate)
	now := StartOfDay(today)
	if !now.After(due) {
		return 0
	}
	return int(now.Sub(due).Hours() / 24)
}

// StartOfDay returns midnight UTC of t's calendar day
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Recommend classifies a task. It never changes the task.
func (c *RiskClassifier) Recommend(dueDate, today time.Time, history []CommunicationRecord) RiskRecommendation {
	days := DaysOverdue(dueDate, today)
	base := c.baseLevel(days)
	rec := RiskRecommendation{
		Level:       base,
		BaseLevel:   base,
		DaysOverdue: days,
		Reason:      fmt.Sprintf("%d days overdue", days),
	}

	if c.unresponsive(history) {
		rec.Reason += fmt.Sprintf("; last %d contacts unanswered or refused", c.policy.UnresponsiveWindow)
		if upgraded := base.Upgrade(); upgraded != base {
			rec.Level = upgraded
			rec.Upgraded = true
		}
	}
	return rec
}

// RecommendFor classifies the task's current state
func (c *RiskClassifier) RecommendFor(task *Task, today time.Time) RiskRecommendation {
	return c.Recommend(task.DueDate, today, task.CommunicationHistory)
}

func (c *RiskClassifier) baseLevel(days int) RiskLevel {
	switch {
	case days >= c.policy.CriticalAfterDays:
		return RiskLevelCritical
	case days >= c.policy.HighAfterDays:
		return RiskLevelHigh
	case days >= c.policy.MediumAfterDays:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// unresponsive reports whether the latest window of records, ordered by
// contact date with append order breaking ties, are all no_answer or refused.
// Fewer records than the window never count.
func (c *RiskClassifier) unresponsive(history []CommunicationRecord) bool {
	window := c.policy.UnresponsiveWindow
	if window <= 0 || len(history) < window {
		return false
	}
	ordered := make([]CommunicationRecord, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})
	for _, record := range ordered[len(ordered)-window:] {
		if !record.Outcome.IsUnresponsive() {
			return false
		}
	}
	return true
}
