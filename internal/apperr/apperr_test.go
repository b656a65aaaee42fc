package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "User not found")
		assert.Equal(t, "NOT_FOUND: User not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(ErrCodeFetch, "Failed to fetch links", cause)
		assert.Contains(t, err.Error(), "FETCH_ERROR")
		assert.Contains(t, err.Error(), "Failed to fetch links")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "phone"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Validation", func() *AppError { return Validation("test") }, ErrCodeValidation},
		{"MissingRequired", func() *AppError { return MissingRequired("phone") }, ErrCodeMissingRequired},
		{"Auth", func() *AppError { return Auth("Invalid credentials") }, ErrCodeAuth},
		{"AuthUnreachable", func() *AppError { return AuthUnreachable(errors.New("timeout")) }, ErrCodeAuth},
		{"Storage", func() *AppError { return Storage("write", errors.New("disk full")) }, ErrCodeStorage},
		{"StorageCorrupt", func() *AppError { return StorageCorrupt("tokens", errors.New("bad json")) }, ErrCodeStorageCorrupt},
		{"Fetch", func() *AppError { return Fetch("links", errors.New("boom")) }, ErrCodeFetch},
		{"NotFound", func() *AppError { return NotFound("User") }, ErrCodeNotFound},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestHelpers(t *testing.T) {
	t.Run("AsAppError unwraps nested errors", func(t *testing.T) {
		inner := Auth("Invalid credentials")
		wrapped := fmt.Errorf("login: %w", inner)

		appErr, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeAuth, appErr.Code)
	})

	t.Run("IsAppError is false for plain errors", func(t *testing.T) {
		assert.False(t, IsAppError(errors.New("plain")))
		assert.True(t, IsAppError(Internal("x")))
	})

	t.Run("GetCode defaults to internal", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
		assert.Equal(t, ErrCodeFetch, GetCode(Fetch("links", nil)))
	})

	t.Run("UserMessage strips the cause", func(t *testing.T) {
		err := Fetch("links", errors.New("dial tcp: connection refused"))
		assert.Equal(t, "Failed to fetch links", UserMessage(err))
		assert.Equal(t, "An unexpected error occurred", UserMessage(errors.New("raw")))
	})
}
