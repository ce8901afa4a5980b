package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches kind sentinel", func(t *testing.T) {
		err := NewValidationError("TITLE_REQUIRED", "title is required")
		assert.True(t, errors.Is(err, ErrValidation))
		assert.False(t, errors.Is(err, ErrNoPaymentPlan))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("save task: %w", NewDomainError(KindConcurrentModification, "OPTIMISTIC_LOCK_ERROR", "stale"))
		assert.True(t, errors.Is(err, ErrConcurrentModification))
		assert.Equal(t, KindConcurrentModification, KindOf(err))
	})

	t.Run("coded target requires matching code", func(t *testing.T) {
		err := NewInvalidStateTransitionError("TASK_CLOSED", "task is closed")
		assert.True(t, errors.Is(err, NewInvalidStateTransitionError("TASK_CLOSED", "")))
		assert.False(t, errors.Is(err, NewInvalidStateTransitionError("OTHER", "")))
	})

	t.Run("non domain error has no kind", func(t *testing.T) {
		assert.Equal(t, ErrorKind(""), KindOf(errors.New("boom")))
	})
}

func TestDomainError_WithDetail(t *testing.T) {
	base := NewValidationError("INVALID_REQUEST", "invalid request")
	withField := base.WithDetail("title", "required")

	assert.Nil(t, base.Details)
	assert.Equal(t, "required", withField.Details["title"])
	assert.Equal(t, base.Code, withField.Code)
}
