package collections

import (
	"testing"
	"time"

	"github.com/collections/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	testNow      = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	testStaffID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testCustomID = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func usd(amount string) valueobject.Money {
	return valueobject.MustMoney(amount, valueobject.USD)
}

func testActor() Actor {
	return NewActor(testStaffID, testNow)
}

func baseInput() NewTaskInput {
	return NewTaskInput{
		Customer:        CustomerRef(testCustomID),
		Title:           "Overdue invoice INV-1001",
		CollectionsType: CollectionsTypeOverdueNotice,
		Amount:          usd("1200.00"),
		DueDate:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AssignedTo:      StaffRef(testStaffID),
	}
}

func newTestTask(t *testing.T) *Task {
	t.Helper()
	task, err := NewTask(baseInput(), DefaultPlanPolicy(), testActor())
	require.NoError(t, err)
	return task
}

// newPlanTask builds the 1200 = 4 x 300 monthly plan starting 2024-01-01
func newPlanTask(t *testing.T) *Task {
	t.Helper()
	in := baseInput()
	in.CollectionsType = CollectionsTypePaymentPlan
	in.PaymentPlan = &PlanInput{
		InstallmentAmount:    usd("300.00"),
		NumberOfInstallments: 4,
		Frequency:            FrequencyMonthly,
		FirstPaymentDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	task, err := NewTask(in, DefaultPlanPolicy(), testActor())
	require.NoError(t, err)
	return task
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}
