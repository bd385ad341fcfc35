package validator

import (
	"strings"
	"testing"

	domainerrors "accounts/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,excludes=@"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty" validate:"required,maxbytes=72"`
}

func TestCustomValidator_Valid(t *testing.T) {
	v := New()

	err := v.Validate(&signupRequest{Username: "alice", Email: "a@x.com", Password: "pw1"})
	assert.NoError(t, err)
}

func TestCustomValidator_ReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Validate(&signupRequest{Username: "alice", Email: "not-an-email"})
	require.Error(t, err)
	require.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	appErr, ok := err.(*domainerrors.BaseError)
	require.True(t, ok)
	assert.Equal(t, "email: email; password: required", appErr.Details())
}

func TestCustomValidator_IncludesRuleParam(t *testing.T) {
	v := New()

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}

	err := v.Validate(&signupRequest{Username: "alice", Email: "a@x.com", Password: string(long)})
	require.Error(t, err)

	appErr, ok := err.(*domainerrors.BaseError)
	require.True(t, ok)
	assert.Equal(t, "password: maxbytes=72", appErr.Details())
}

func TestCustomValidator_PasswordLimitCountsBytes(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "36 two-byte runes", password: strings.Repeat("é", 36)},
		{name: "72 two-byte runes", password: strings.Repeat("é", 72), wantErr: true},
		{name: "72 ascii", password: strings.Repeat("a", 72)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&signupRequest{Username: "alice", Email: "a@x.com", Password: tt.password})
			if !tt.wantErr {
				assert.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, domainerrors.ErrValidationFailed)
			appErr, ok := err.(*domainerrors.BaseError)
			require.True(t, ok)
			assert.Equal(t, "password: maxbytes=72", appErr.Details())
		})
	}
}

func TestCustomValidator_UsernameRules(t *testing.T) {
	v := New()

	tests := []struct {
		username string
		want     string
	}{
		{username: "al", want: "username: min=3"},
		{username: strings.Repeat("a", 51), want: "username: max=50"},
		{username: "a@x.com", want: "username: excludes=@"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			err := v.Validate(&signupRequest{Username: tt.username, Email: "a@x.com", Password: "pw1"})
			require.ErrorIs(t, err, domainerrors.ErrValidationFailed)

			appErr, ok := err.(*domainerrors.BaseError)
			require.True(t, ok)
			assert.Equal(t, tt.want, appErr.Details())
		})
	}

	assert.NoError(t, v.Validate(&signupRequest{Username: "bob", Email: "a@x.com", Password: "pw1"}))
}
