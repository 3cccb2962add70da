package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cyp0633/libcalevents/record"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := NewError(ErrNotFound, "calendar %s not found", "7")
	assert.Equal(t, "not_found: calendar 7 not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))

	wrapped := fmt.Errorf("save: %w", err)
	assert.ErrorIs(t, wrapped, ErrNotFound)

	cause := errors.New("disk full")
	withCause := &Error{Type: ErrInvalidInput, Message: "insert", Err: cause}
	assert.Equal(t, "invalid_input: insert: disk full", withCause.Error())
	assert.ErrorIs(t, withCause, cause)
}

func TestSyncAdapter(t *testing.T) {
	opts := SyncAdapter(record.SyncAccount{Name: "me", Type: "LOCAL"})
	assert.True(t, opts.AsSyncAdapter)
	assert.Equal(t, "me", opts.Account.Name)
}
