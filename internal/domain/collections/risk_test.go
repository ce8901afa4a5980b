package collections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func records(outcomes ...CommunicationOutcome) []CommunicationRecord {
	out := make([]CommunicationRecord, len(outcomes))
	for i, o := range outcomes {
		out[i] = CommunicationRecord{Sequence: i + 1, Date: date(2024, 1, 1).AddDate(0, 0, i), Outcome: o}
	}
	return out
}

func TestDaysOverdue(t *testing.T) {
	due := date(2024, 3, 1)
	assert.Equal(t, 0, DaysOverdue(due, date(2024, 2, 20)))
	assert.Equal(t, 0, DaysOverdue(due, due.Add(23*time.Hour)))
	assert.Equal(t, 1, DaysOverdue(due, date(2024, 3, 2)))
	assert.Equal(t, 29, DaysOverdue(date(2024, 2, 1), date(2024, 3, 1)))
}

func TestRiskClassifier_BaseLevels(t *testing.T) {
	c := NewRiskClassifier(DefaultRiskPolicy())
	today := date(2024, 6, 1)

	tests := []struct {
		days int
		want RiskLevel
	}{
		{0, RiskLevelLow},
		{1, RiskLevelMedium},
		{14, RiskLevelMedium},
		{15, RiskLevelHigh},
		{45, RiskLevelHigh},
		{46, RiskLevelCritical},
		{400, RiskLevelCritical},
	}
	for _, tt := range tests {
		rec := c.Recommend(today.AddDate(0, 0, -tt.days), today, nil)
		assert.Equal(t, tt.want, rec.Level, "days=%d", tt.days)
		assert.Equal(t, tt.days, rec.DaysOverdue)
		assert.False(t, rec.Upgraded)
	}

	rec := c.Recommend(today.AddDate(0, 0, 10), today, nil)
	assert.Equal(t, RiskLevelLow, rec.Level)
	assert.Equal(t, 0, rec.DaysOverdue)
}

func TestRiskClassifier_Upgrade(t *testing.T) {
	c := NewRiskClassifier(RiskPolicy{})
	today := date(2024, 6, 1)

	t.Run("three unresponsive contacts raise one level", func(t *testing.T) {
		rec := c.Recommend(today.AddDate(0, 0, -20), today, records(OutcomeNoAnswer, OutcomeRefused, OutcomeNoAnswer))
		assert.Equal(t, RiskLevelHigh, rec.BaseLevel)
		assert.Equal(t, RiskLevelCritical, rec.Level)
		assert.True(t, rec.Upgraded)
	})

	t.Run("critical stays critical", func(t *testing.T) {
		rec := c.Recommend(today.AddDate(0, 0, -50), today, records(OutcomeNoAnswer, OutcomeNoAnswer, OutcomeNoAnswer))
		assert.Equal(t, RiskLevelCritical, rec.Level)
		assert.False(t, rec.Upgraded)
	})

	t.Run("only the latest three count", func(t *testing.T) {
		rec := c.Recommend(today, today, records(OutcomeSpokeToCustomer, OutcomeNoAnswer, OutcomeNoAnswer, OutcomeRefused))
		assert.Equal(t, RiskLevelMedium, rec.Level)
	})

	t.Run("a recent answer blocks the upgrade", func(t *testing.T) {
		rec := c.Recommend(today, today, records(OutcomeNoAnswer, OutcomeNoAnswer, OutcomePaymentPromised))
		assert.Equal(t, RiskLevelLow, rec.Level)
	})

	t.Run("fewer than three contacts never upgrade", func(t *testing.T) {
		rec := c.Recommend(today, today, records(OutcomeNoAnswer, OutcomeNoAnswer))
		assert.Equal(t, RiskLevelLow, rec.Level)
	})

	t.Run("orders by contact date not append order", func(t *testing.T) {
		history := records(OutcomeNoAnswer, OutcomeNoAnswer, OutcomeNoAnswer)
		late := CommunicationRecord{Sequence: 4, Date: date(2023, 12, 1), Outcome: OutcomeSpokeToCustomer}
		history = append(history, late)
		rec := c.Recommend(today, today, history)
		assert.Equal(t, RiskLevelMedium, rec.Level)
	})
}

func TestRiskClassifier_RecommendFor(t *testing.T) {
	task := newTestTask(t)
	today := task.DueDate.AddDate(0, 0, 50)
	for i := 0; i < 3; i++ {
		_, err := task.AppendCommunication(phoneCall(today.AddDate(0, 0, -i), OutcomeNoAnswer), testActor())
		assert.NoError(t, err)
	}

	rec := NewRiskClassifier(DefaultRiskPolicy()).RecommendFor(task, today)
	assert.Equal(t, RiskLevelCritical, rec.Level)
	assert.Equal(t, 50, rec.DaysOverdue)
	assert.Equal(t, RiskLevelMedium, task.RiskLevel)
	assert.Equal(t, 1, task.EscalationLevel)
}
