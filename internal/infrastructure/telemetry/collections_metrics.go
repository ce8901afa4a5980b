package telemetry

import (
	"context"
	"time"

	"github.com/collections/backend/internal/domain/shared/valueobject"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the collections metrics
const MeterName = "github.com/collections/backend/collections"

// CollectionsMetrics records task lifecycle and payment activity
type CollectionsMetrics struct {
	tasksCreated        *Counter
	communicationsAdded *Counter
	paymentsRecorded    *Counter
	paymentAmount       *Histogram
	plansCompleted      *Counter
	statusChanges       *Counter
	escalations         *Counter
	riskReclassified    *Counter
	reminderFailures    *Counter
	lockConflicts       *Counter
	operationDuration   *Histogram
}

// NewCollectionsMetrics registers the collections instruments on meter
func NewCollectionsMetrics(meter metric.Meter) (*CollectionsMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &CollectionsMetrics{}
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&m.tasksCreated, "collections_task_created_total", "Total number of collections tasks opened", "{tasks}"},
		{&m.communicationsAdded, "collections_communication_total", "Total number of communication records appended", "{records}"},
		{&m.paymentsRecorded, "collections_payment_total", "Total number of installment payments recorded", "{payments}"},
		{&m.plansCompleted, "collections_plan_completed_total", "Total number of payment plans paid in full", "{plans}"},
		{&m.statusChanges, "collections_status_change_total", "Total number of task status transitions", "{transitions}"},
		{&m.escalations, "collections_escalation_total", "Total number of escalation level changes", "{changes}"},
		{&m.riskReclassified, "collections_risk_reclassified_total", "Total number of applied risk reclassifications", "{changes}"},
		{&m.reminderFailures, "collections_reminder_failure_total", "Total number of reminders that could not be scheduled", "{reminders}"},
		{&m.lockConflicts, "collections_lock_conflict_total", "Total number of saves rejected by optimistic locking", "{conflicts}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	m.paymentAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "collections_payment_amount",
		Description: "Distribution of recorded payment amounts in major currency units",
		Unit:        "{amount}",
		Boundaries:  PaymentAmountBuckets,
	})
	if err != nil {
		return nil, err
	}
	m.operationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "collections_operation_duration_seconds",
		Description: "Duration of collections service operations",
		Unit:        "s",
		Boundaries:  OperationDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// TaskCreated counts a newly opened task
func (m *CollectionsMetrics) TaskCreated(ctx context.Context, collectionsType string) {
	m.tasksCreated.Inc(ctx, AttrCollectionsType.String(collectionsType))
}

// CommunicationAdded counts an appended contact record
func (m *CollectionsMetrics) CommunicationAdded(ctx context.Context, direction string) {
	m.communicationsAdded.Inc(ctx, AttrDirection.String(direction))
}

// PaymentRecorded counts a payment and records its amount
func (m *CollectionsMetrics) PaymentRecorded(ctx context.Context, amount valueobject.Money) {
	currency := AttrCurrency.String(amount.Currency().String())
	m.paymentsRecorded.Inc(ctx, currency)
	m.paymentAmount.Record(ctx, amount.Amount().InexactFloat64(), currency)
}

// PlanCompleted counts a plan that reached its total
func (m *CollectionsMetrics) PlanCompleted(ctx context.Context) {
	m.plansCompleted.Inc(ctx)
}

// StatusChanged counts a status transition into status
func (m *CollectionsMetrics) StatusChanged(ctx context.Context, status string) {
	m.statusChanges.Inc(ctx, AttrTaskStatus.String(status))
}

// EscalationChanged counts an escalation or de-escalation
func (m *CollectionsMetrics) EscalationChanged(ctx context.Context, direction string) {
	m.escalations.Inc(ctx, AttrDirection.String(direction))
}

// RiskReclassified counts an applied risk level change
func (m *CollectionsMetrics) RiskReclassified(ctx context.Context, level string) {
	m.riskReclassified.Inc(ctx, AttrRiskLevel.String(level))
}

// ReminderFailed counts a reminder the scheduler rejected
func (m *CollectionsMetrics) ReminderFailed(ctx context.Context, channel string) {
	m.reminderFailures.Inc(ctx, AttrChannel.String(channel))
}

// LockConflict counts a save rejected because the task changed underneath
func (m *CollectionsMetrics) LockConflict(ctx context.Context, operation string) {
	m.lockConflicts.Inc(ctx, AttrOperation.String(operation))
}

// ObserveOperation records how long a service operation took
func (m *CollectionsMetrics) ObserveOperation(ctx context.Context, operation string, started time.Time) {
	m.operationDuration.RecordDuration(ctx, time.Since(started), AttrOperation.String(operation))
}
