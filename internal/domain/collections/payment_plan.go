package collections

import (
	"fmt"
	"time"

	"github.com/collections/backend/internal/domain/shared"
	"github.com/collections/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentFrequency is the spacing between scheduled installments
type InstallmentFrequency string

const (
	FrequencyWeekly    InstallmentFrequency = "weekly"
	FrequencyBiWeekly  InstallmentFrequency = "bi-weekly"
	FrequencyMonthly   InstallmentFrequency = "monthly"
	FrequencyQuarterly InstallmentFrequency = "quarterly"
)

// IsValid checks if the frequency is a valid value
func (f InstallmentFrequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiWeekly, FrequencyMonthly, FrequencyQuarterly:
		return true
	}
	return false
}

// Advance returns the date k frequency units after anchor. Month based
// frequencies are computed from the anchor and clamped to the end of the
// target month, so a 31st anchor yields Feb 29 and then Mar 31.
func (f InstallmentFrequency) Advance(anchor time.Time, k int) time.Time {
	switch f {
	case FrequencyWeekly:
		return anchor.AddDate(0, 0, 7*k)
	case FrequencyBiWeekly:
		return anchor.AddDate(0, 0, 14*k)
	case FrequencyMonthly:
		return addMonthsClamped(anchor, k)
	case FrequencyQuarterly:
		return addMonthsClamped(anchor, 3*k)
	}
	return anchor
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// PlanPolicy holds the configurable rules applied when creating a plan
type PlanPolicy struct {
	// ShortfallTolerance is how far installment x count may fall below the
	// total before the plan is rejected
	ShortfallTolerance decimal.Decimal
}

// DefaultPlanPolicy returns the policy used when none is configured
func DefaultPlanPolicy() PlanPolicy {
	return PlanPolicy{ShortfallTolerance: decimal.RequireFromString("1.00")}
}

// PlanTerms are the negotiated parameters of an installment plan
type PlanTerms struct {
	TotalAmount          valueobject.Money
	InstallmentAmount    valueobject.Money
	NumberOfInstallments int
	Frequency            InstallmentFrequency
	FirstPaymentDate     time.Time
}

// InstallmentPayment is one applied payment on a plan
type InstallmentPayment struct {
	ID         uuid.UUID         `json:"id"`
	Sequence   int               `json:"sequence"`
	Amount     valueobject.Money `json:"amount"`
	TotalPaid  valueobject.Money `json:"total_paid"`
	RecordedBy uuid.UUID         `json:"recorded_by"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// ScheduledInstallment is a projected future installment
type ScheduledInstallment struct {
	Number  int               `json:"number"`
	DueDate time.Time         `json:"due_date"`
	Amount  valueobject.Money `json:"amount"`
}

// PaymentPlan is the installment schedule owned by a task
type PaymentPlan struct {
	ID                   uuid.UUID            `json:"id"`
	TotalAmount          valueobject.Money    `json:"total_amount"`
	InstallmentAmount    valueobject.Money    `json:"installment_amount"`
	NumberOfInstallments int                  `json:"number_of_installments"`
	Frequency            InstallmentFrequency `json:"installment_frequency"`
	FirstPaymentDate     time.Time            `json:"first_payment_date"`
	NextPaymentDate      *time.Time           `json:"next_payment_date"`
	PaymentsMade         int                  `json:"payments_made"`
	TotalPaid            valueobject.Money    `json:"total_paid"`
	Irregular            bool                 `json:"irregular"`
	ScheduleWarnings     []string             `json:"schedule_warnings,omitempty"`
	Payments             []InstallmentPayment `json:"payments"`
}

// NewPaymentPlan validates terms and builds a plan. Schedules whose
// installments overshoot the total, or fall short within tolerance, are
// accepted and flagged irregular.
func NewPaymentPlan(terms PlanTerms, policy PlanPolicy) (*PaymentPlan, error) {
	if !terms.TotalAmount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_TOTAL_AMOUNT", "plan total amount must be positive")
	}
	if !terms.InstallmentAmount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_INSTALLMENT_AMOUNT", "installment amount must be positive")
	}
	if terms.NumberOfInstallments < 1 {
		return nil, shared.NewValidationError("INVALID_INSTALLMENT_COUNT", "number of installments must be at least 1")
	}
	if !terms.Frequency.IsValid() {
		return nil, shared.NewValidationErrorf("INVALID_FREQUENCY", "invalid installment frequency %q", terms.Frequency)
	}
	if terms.FirstPaymentDate.IsZero() {
		return nil, shared.NewValidationError("FIRST_PAYMENT_DATE_REQUIRED", "first payment date is required")
	}
	if terms.TotalAmount.Currency() != terms.InstallmentAmount.Currency() {
		return nil, shared.NewValidationError("CURRENCY_MISMATCH", "installment and total amounts must share a currency")
	}

	scheduled, err := terms.InstallmentAmount.MultiplyByInt(int64(terms.NumberOfInstallments))
	if err != nil {
		return nil, err
	}

	plan := &PaymentPlan{
		ID:                   uuid.New(),
		TotalAmount:          terms.TotalAmount,
		InstallmentAmount:    terms.InstallmentAmount,
		NumberOfInstallments: terms.NumberOfInstallments,
		Frequency:            terms.Frequency,
		FirstPaymentDate:     terms.FirstPaymentDate.UTC(),
		TotalPaid:            valueobject.Zero(terms.TotalAmount.Currency()),
		Payments:             make([]InstallmentPayment, 0),
	}

	cmp, _ := scheduled.Compare(terms.TotalAmount)
	switch {
	case cmp < 0:
		shortfall, _ := terms.TotalAmount.Subtract(scheduled)
		if shortfall.Amount().GreaterThan(policy.ShortfallTolerance) {
			return nil, shared.NewValidationErrorf("INSTALLMENTS_BELOW_TOTAL",
				"%d installments of %s fall short of total %s by %s",
				terms.NumberOfInstallments, terms.InstallmentAmount, terms.TotalAmount, shortfall)
		}
		plan.flag(fmt.Sprintf("scheduled installments fall short of the total by %s; the final installment is larger", shortfall))
	case cmp > 0:
		excess, _ := scheduled.Subtract(terms.TotalAmount)
		plan.flag(fmt.Sprintf("scheduled installments exceed the total by %s; the final installment is smaller", excess))
	}

	if !plan.IsComplete() {
		next := plan.FirstPaymentDate
		plan.NextPaymentDate = &next
	}
	return plan, nil
}

func (p *PaymentPlan) flag(warning string) {
	p.Irregular = true
	p.ScheduleWarnings = append(p.ScheduleWarnings, warning)
}

// RemainingBalance returns TotalAmount minus TotalPaid
func (p *PaymentPlan) RemainingBalance() valueobject.Money {
	remaining, err := p.TotalAmount.Subtract(p.TotalPaid)
	if err != nil {
		return valueobject.Zero(p.TotalAmount.Currency())
	}
	return remaining
}

// IsComplete returns true once the total has been paid
func (p *PaymentPlan) IsComplete() bool {
	return p.TotalPaid.Equals(p.TotalAmount)
}

// InstallmentsRemaining returns the number of scheduled installments not yet paid
func (p *PaymentPlan) InstallmentsRemaining() int {
	return p.NumberOfInstallments - p.PaymentsMade
}

// checkPayment validates a payment against the plan without mutating it.
// It is stricter than a balance check: the payment for the last scheduled
// installment must settle the remaining balance exactly, so a partial final
// payment is rejected even though it fits within the balance.
func (p *PaymentPlan) checkPayment(amount valueobject.Money) error {
	if amount.Currency() != p.TotalAmount.Currency() {
		return shared.NewValidationErrorf("CURRENCY_MISMATCH",
			"payment currency %s does not match plan currency %s", amount.Currency(), p.TotalAmount.Currency())
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_PAYMENT_AMOUNT", "payment amount must be positive")
	}
	remaining := p.RemainingBalance()
	if over, _ := amount.GreaterThan(remaining); over {
		return shared.NewDomainError(shared.KindPaymentExceedsBalance, "PAYMENT_EXCEEDS_BALANCE",
			fmt.Sprintf("payment %s exceeds remaining balance %s", amount, remaining))
	}
	if p.PaymentsMade >= p.NumberOfInstallments {
		return shared.NewValidationError("INSTALLMENTS_EXHAUSTED", "all scheduled installments have been recorded")
	}
	if p.InstallmentsRemaining() == 1 && !amount.Equals(remaining) {
		return shared.NewValidationErrorf("FINAL_INSTALLMENT_MUST_SETTLE",
			"final installment must settle the remaining balance %s", remaining)
	}
	return nil
}

// applyPayment books a payment that checkPayment accepted
func (p *PaymentPlan) applyPayment(amount valueobject.Money, actor Actor) (InstallmentPayment, error) {
	total, err := p.TotalPaid.Add(amount)
	if err != nil {
		return InstallmentPayment{}, err
	}
	p.TotalPaid = total
	p.PaymentsMade++

	if p.IsComplete() {
		p.NextPaymentDate = nil
	} else {
		next := p.Frequency.Advance(p.FirstPaymentDate, p.PaymentsMade)
		p.NextPaymentDate = &next
	}

	payment := InstallmentPayment{
		ID:         uuid.New(),
		Sequence:   len(p.Payments) + 1,
		Amount:     amount,
		TotalPaid:  total,
		RecordedBy: actor.UserID,
		RecordedAt: actor.At.UTC(),
	}
	p.Payments = append(p.Payments, payment)
	return payment, nil
}

// Schedule projects the installments still due. The final installment
// carries whatever balance the regular installments leave.
func (p *PaymentPlan) Schedule() []ScheduledInstallment {
	remaining := p.RemainingBalance()
	left := p.InstallmentsRemaining()
	if remaining.IsZero() || left <= 0 {
		return nil
	}

	out := make([]ScheduledInstallment, 0, left)
	for i := 0; i < left; i++ {
		number := p.PaymentsMade + i + 1
		amount := p.InstallmentAmount
		if i == left-1 {
			amount = remaining
		} else if over, _ := amount.GreaterThan(remaining); over {
			amount = remaining
		}
		if amount.IsZero() {
			break
		}
		out = append(out, ScheduledInstallment{
			Number:  number,
			DueDate: p.Frequency.Advance(p.FirstPaymentDate, number-1),
			Amount:  amount,
		})
		remaining, _ = remaining.Subtract(amount)
	}
	return out
}
