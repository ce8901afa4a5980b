package collections

import (
	"errors"
	"testing"
	"time"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func phoneCall(at time.Time, outcome CommunicationOutcome) CommunicationInput {
	return CommunicationInput{
		Method:    MethodPhone,
		Direction: DirectionOutbound,
		Date:      at,
		Summary:   "Called the customer about the overdue balance",
		Outcome:   outcome,
	}
}

func TestAppendCommunication(t *testing.T) {
	t.Run("appends record and updates contact dates", func(t *testing.T) {
		task := newTestTask(t)
		in := phoneCall(date(2024, 1, 10), OutcomePaymentPromised)
		in.NextAction = "Confirm payment"
		in.NextActionDate = ptr(date(2024, 1, 20))

		record, err := task.AppendCommunication(in, testActor())
		require.NoError(t, err)
		assert.Equal(t, 1, record.Sequence)
		assert.Equal(t, testStaffID, record.RecordedBy)
		require.Len(t, task.CommunicationHistory, 1)
		assert.Equal(t, date(2024, 1, 10), *task.LastContactDate)
		assert.Equal(t, date(2024, 1, 20), *task.NextContactDate)

		last := task.AuditTrail[len(task.AuditTrail)-1]
		assert.Equal(t, AuditCommunicationAdded, last.Action)
		assert.Equal(t, 2, task.Version)
	})

	t.Run("next contact keeps the earliest hint", func(t *testing.T) {
		task := newTestTask(t)
		first := phoneCall(date(2024, 1, 10), OutcomeLeftMessage)
		first.NextActionDate = ptr(date(2024, 1, 12))
		second := phoneCall(date(2024, 1, 11), OutcomeNoAnswer)
		second.NextActionDate = ptr(date(2024, 1, 30))

		_, err := task.AppendCommunication(first, testActor())
		require.NoError(t, err)
		_, err = task.AppendCommunication(second, testActor())
		require.NoError(t, err)

		assert.Equal(t, date(2024, 1, 11), *task.LastContactDate)
		assert.Equal(t, date(2024, 1, 12), *task.NextContactDate)
	})

	t.Run("record without hint leaves next contact", func(t *testing.T) {
		task := newTestTask(t)
		_, err := task.AppendCommunication(phoneCall(date(2024, 1, 10), OutcomeNoAnswer), testActor())
		require.NoError(t, err)
		assert.Nil(t, task.NextContactDate)
	})

	t.Run("closed task still accepts records", func(t *testing.T) {
		task := newTestTask(t)
		task.Status = TaskStatusCancelled
		_, err := task.AppendCommunication(phoneCall(date(2024, 1, 10), OutcomeRefused), testActor())
		require.NoError(t, err)
	})

	tests := []struct {
		name   string
		mutate func(*CommunicationInput)
	}{
		{"blank summary", func(in *CommunicationInput) { in.Summary = "  " }},
		{"unknown method", func(in *CommunicationInput) { in.Method = "fax" }},
		{"unknown direction", func(in *CommunicationInput) { in.Direction = "sideways" }},
		{"unknown outcome", func(in *CommunicationInput) { in.Outcome = "maybe" }},
		{"missing date", func(in *CommunicationInput) { in.Date = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run("fails for "+tt.name, func(t *testing.T) {
			task := newTestTask(t)
			in := phoneCall(date(2024, 1, 10), OutcomeNoAnswer)
			tt.mutate(&in)

			_, err := task.AppendCommunication(in, testActor())
			assert.True(t, errors.Is(err, shared.ErrValidation))
			assert.Empty(t, task.CommunicationHistory)
			assert.Len(t, task.AuditTrail, 1)
		})
	}
}
