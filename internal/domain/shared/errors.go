package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error so callers can branch on the failure
// category without parsing codes or messages.
type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindNoPaymentPlan          ErrorKind = "NO_PAYMENT_PLAN"
	KindPaymentExceedsBalance  ErrorKind = "PAYMENT_EXCEEDS_BALANCE"
	KindNegativeBalance        ErrorKind = "NEGATIVE_BALANCE"
	KindConcurrentModification ErrorKind = "CONCURRENT_MODIFICATION"
	KindNotFound               ErrorKind = "NOT_FOUND"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	// Details carries field level context, e.g. validation failures per field
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches another DomainError by kind. A target without a code matches
// every error of its kind; a target with a code must match the code as well.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key, value string) *DomainError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error with the given code
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewValidationErrorf creates a validation error with a formatted message
func NewValidationErrorf(code, format string, args ...any) *DomainError {
	return NewDomainError(KindValidation, code, fmt.Sprintf(format, args...))
}

// NewInvalidStateTransitionError reports a forbidden status or lifecycle change
func NewInvalidStateTransitionError(code, message string) *DomainError {
	return NewDomainError(KindInvalidStateTransition, code, message)
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(resource, id string) *DomainError {
	return NewDomainError(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s %s not found", resource, id))
}

// Kind sentinels, usable with errors.Is
var (
	ErrValidation             = &DomainError{Kind: KindValidation, Message: "validation failed"}
	ErrInvalidStateTransition = &DomainError{Kind: KindInvalidStateTransition, Message: "invalid state transition"}
	ErrNoPaymentPlan          = &DomainError{Kind: KindNoPaymentPlan, Message: "task has no payment plan"}
	ErrPaymentExceedsBalance  = &DomainError{Kind: KindPaymentExceedsBalance, Message: "payment exceeds remaining balance"}
	ErrNegativeBalance        = &DomainError{Kind: KindNegativeBalance, Message: "operation would produce a negative balance"}
	ErrConcurrentModification = &DomainError{Kind: KindConcurrentModification, Message: "resource was modified by another process"}
	ErrNotFound               = &DomainError{Kind: KindNotFound, Message: "resource not found"}
)

// KindOf returns the kind of err when it is a DomainError, or "" otherwise
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
