package student

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("delete: %w", &NotFoundError{ID: 99})

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "no record with id 99")
}

func TestStorageError_Unwraps(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := NewStorageError("insert", cause)

	assert.True(t, IsStorage(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "STORAGE: insert: disk I/O error", err.Error())
}

func TestNewStorageError_Nil(t *testing.T) {
	assert.NoError(t, NewStorageError("insert", nil))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "name", Message: "name cannot be empty"}
	assert.Equal(t, "VALIDATION: name cannot be empty (field=name)", err.Error())

	noField := &ValidationError{Message: "bad input"}
	assert.Equal(t, "VALIDATION: bad input", noField.Error())
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"validation", &ValidationError{Field: "name"}, CodeValidation},
		{"not found", fmt.Errorf("wrapped: %w", &NotFoundError{ID: 1}), CodeNotFound},
		{"storage", NewStorageError("list", errors.New("boom")), CodeStorage},
		{"disposed", fmt.Errorf("add: %w", ErrDisposed), CodeDisposed},
		{"unclassified", errors.New("other"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
