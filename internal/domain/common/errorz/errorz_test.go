package errorz

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistenceKeepsCause(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")
	err := fmt.Errorf("subscribe: %w", Persistence("insert subscription", cause))

	assert.True(t, IsPersistence(err))
	assert.False(t, IsValidation(err))
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Persistence("noop", nil))
}

func TestValidationMessage(t *testing.T) {
	err := Invalid("title", "must not be empty")
	assert.True(t, IsValidation(err))
	assert.EqualError(t, err, "invalid title: must not be empty")
}

func TestNotificationBackendError(t *testing.T) {
	err := &NotificationBackendError{Op: "schedule", Key: "5", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualError(t, err, "notification backend: schedule 5: context deadline exceeded")

	err = &NotificationBackendError{Op: "list", Err: errors.New("permission denied")}
	assert.EqualError(t, err, "notification backend: list: permission denied")
}
