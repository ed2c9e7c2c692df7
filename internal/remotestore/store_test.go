package remotestore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(OpQuery, "", nil))

	err := Wrap(OpDelete, "todo-1", ErrNotFound)
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "remote delete todo-1: document not found", err.Error())

	again := Wrap(OpUpdate, "todo-2", fmt.Errorf("outer: %w", err))
	var pe *PersistenceError
	assert.True(t, errors.As(again, &pe))
	assert.Equal(t, OpDelete, pe.Op, "an existing PersistenceError is not re-wrapped")

	timeout := &PersistenceError{Op: OpCreate, StatusCode: 503, Err: context.DeadlineExceeded}
	assert.Equal(t, "remote create (status 503): context deadline exceeded", timeout.Error())
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
}
