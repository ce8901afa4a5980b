package collections

import (
	"github.com/collections/backend/internal/domain/collections"
)

// ToTaskResponse converts a task to its full response
func ToTaskResponse(t *collections.Task) TaskResponse {
	resp := TaskResponse{
		ID:                   t.ID,
		Title:                t.Title,
		Description:          t.Description,
		PaymentTerms:         t.PaymentTerms,
		CollectionsType:      string(t.CollectionsType),
		Amount:               t.Amount.StringFixed(),
		Currency:             t.Amount.Currency().String(),
		DueDate:              t.DueDate,
		AssignedTo:           t.AssignedTo,
		AssignedBy:           t.AssignedBy,
		Customer:             t.Customer,
		Priority:             string(t.Priority),
		Status:               string(t.Status),
		RiskLevel:            string(t.RiskLevel),
		EscalationLevel:      t.EscalationLevel,
		CommunicationHistory: ToCommunicationResponses(t.CommunicationHistory),
		LegalDocuments:       ToLegalDocumentResponses(t.LegalDocuments),
		AuditTrail:           ToAuditEntryResponses(t.AuditTrail),
		LastContactDate:      t.LastContactDate,
		NextContactDate:      t.NextContactDate,
		CompletedAt:          t.CompletedAt,
		CancelledAt:          t.CancelledAt,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
		Version:              t.Version,
	}
	if t.PaymentPlan != nil {
		plan := ToPaymentPlanResponse(t.PaymentPlan)
		resp.PaymentPlan = &plan
	}
	return resp
}

// ToTaskListItemResponse converts a task to its list view
func ToTaskListItemResponse(t *collections.Task) TaskListItemResponse {
	item := TaskListItemResponse{
		ID:              t.ID,
		Title:           t.Title,
		CollectionsType: string(t.CollectionsType),
		Amount:          t.Amount.String(),
		DueDate:         t.DueDate,
		AssignedTo:      t.AssignedTo,
		Customer:        t.Customer,
		Priority:        string(t.Priority),
		Status:          string(t.Status),
		RiskLevel:       string(t.RiskLevel),
		EscalationLevel: t.EscalationLevel,
		NextContactDate: t.NextContactDate,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.PaymentPlan != nil {
		remaining := t.PaymentPlan.RemainingBalance().StringFixed()
		item.RemainingAmount = &remaining
		item.NextPaymentDate = t.PaymentPlan.NextPaymentDate
	}
	return item
}

// ToTaskListItemResponses converts a slice of tasks to list views
func ToTaskListItemResponses(tasks []collections.Task) []TaskListItemResponse {
	items := make([]TaskListItemResponse, len(tasks))
	for i := range tasks {
		items[i] = ToTaskListItemResponse(&tasks[i])
	}
	return items
}

// ToPaymentPlanResponse converts a plan to its response
func ToPaymentPlanResponse(p *collections.PaymentPlan) PaymentPlanResponse {
	payments := make([]InstallmentPaymentResponse, len(p.Payments))
	for i, pay := range p.Payments {
		payments[i] = ToInstallmentPaymentResponse(pay)
	}
	return PaymentPlanResponse{
		ID:                    p.ID,
		TotalAmount:           p.TotalAmount.StringFixed(),
		Currency:              string(p.TotalAmount.Currency()),
		InstallmentAmount:     p.InstallmentAmount.StringFixed(),
		NumberOfInstallments:  p.NumberOfInstallments,
		Frequency:             string(p.Frequency),
		FirstPaymentDate:      p.FirstPaymentDate,
		NextPaymentDate:       p.NextPaymentDate,
		PaymentsMade:          p.PaymentsMade,
		TotalPaid:             p.TotalPaid.StringFixed(),
		RemainingBalance:      p.RemainingBalance().StringFixed(),
		InstallmentsRemaining: p.InstallmentsRemaining(),
		Complete:              p.IsComplete(),
		Irregular:             p.Irregular,
		ScheduleWarnings:      p.ScheduleWarnings,
		Payments:              payments,
	}
}

// ToInstallmentPaymentResponse converts a ledger line to its response
func ToInstallmentPaymentResponse(p collections.InstallmentPayment) InstallmentPaymentResponse {
	return InstallmentPaymentResponse{
		ID:         p.ID,
		Sequence:   p.Sequence,
		Amount:     p.Amount.StringFixed(),
		TotalPaid:  p.TotalPaid.StringFixed(),
		RecordedBy: p.RecordedBy,
		RecordedAt: p.RecordedAt,
	}
}

// ToCommunicationResponses converts communication records
func ToCommunicationResponses(records []collections.CommunicationRecord) []CommunicationResponse {
	out := make([]CommunicationResponse, len(records))
	for i, r := range records {
		out[i] = CommunicationResponse{
			ID:             r.ID,
			Sequence:       r.Sequence,
			Method:         string(r.Method),
			Direction:      string(r.Direction),
			Date:           r.Date,
			Summary:        r.Summary,
			Outcome:        string(r.Outcome),
			NextAction:     r.NextAction,
			NextActionDate: r.NextActionDate,
			RecordedBy:     r.RecordedBy,
			RecordedAt:     r.RecordedAt,
		}
	}
	return out
}

// ToLegalDocumentResponses converts document metadata
func ToLegalDocumentResponses(docs []collections.LegalDocument) []LegalDocumentResponse {
	out := make([]LegalDocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = ToLegalDocumentResponse(d)
	}
	return out
}

// ToLegalDocumentResponse converts one document's metadata
func ToLegalDocumentResponse(d collections.LegalDocument) LegalDocumentResponse {
	return LegalDocumentResponse{
		ID:           d.ID,
		Sequence:     d.Sequence,
		Ref:          string(d.Ref),
		FileName:     d.FileName,
		ContentType:  d.ContentType,
		DocumentType: d.DocumentType,
		SizeBytes:    d.SizeBytes,
		UploadedBy:   d.UploadedBy,
		UploadedAt:   d.UploadedAt,
	}
}

// ToAuditEntryResponses converts audit entries
func ToAuditEntryResponses(entries []collections.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			ID:            e.ID,
			Sequence:      e.Sequence,
			Action:        string(e.Action),
			Description:   e.Description,
			PerformedBy:   e.PerformedBy,
			PerformedAt:   e.PerformedAt,
			PreviousValue: string(e.PreviousValue),
			NewValue:      string(e.NewValue),
		}
	}
	return out
}

// ToPaymentScheduleResponse projects the remaining installments of t's plan
func ToPaymentScheduleResponse(t *collections.Task) PaymentScheduleResponse {
	schedule := t.PaymentPlan.Schedule()
	items := make([]ScheduledInstallmentResponse, len(schedule))
	for i, s := range schedule {
		items[i] = ScheduledInstallmentResponse{Number: s.Number, DueDate: s.DueDate, Amount: s.Amount.StringFixed()}
	}
	return PaymentScheduleResponse{
		TaskID:           t.ID,
		RemainingBalance: t.PaymentPlan.RemainingBalance().StringFixed(),
		Installments:     items,
	}
}

func toPartyResponse(ref collections.Reference, resolved map[collections.Reference]collections.Resolved) PartyResponse {
	p := PartyResponse{Reference: ref}
	if r, ok := resolved[ref]; ok {
		p.DisplayName = r.DisplayName
		p.Email = r.Email
		p.Phone = r.Phone
		p.Resolved = true
	}
	return p
}
