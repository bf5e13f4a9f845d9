package apperrors

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := pkgerrors.Wrap(ErrNotFound, "loading rapprochement")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestValidationError(t *testing.T) {
	err := NewValidation("statut", "unknown value bogus")
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "statut")

	wrapped := pkgerrors.Wrap(err, "listing")
	assert.True(t, IsValidation(wrapped))
}

func TestTransientError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransient("rapprochement insert", cause)
	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsTransient(cause))
}
