package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type otpForm struct {
	Code string `validate:"required,len=6,numeric"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(loginForm{Email: "staff@example.com", Password: "s3cretpass"})
	assert.NoError(t, err)
}

func TestValidate_FieldErrors(t *testing.T) {
	err := Validate(loginForm{Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	fields := vErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["Email"])
	assert.Equal(t, "must be at least 8 characters", fields["Password"])
}

func TestValidate_OTPLength(t *testing.T) {
	var vErr *ValidationError

	err := Validate(otpForm{Code: "12345"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "must be exactly 6 characters", vErr.Fields()["Code"])

	err = Validate(otpForm{Code: "12a456"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "must contain only digits", vErr.Fields()["Code"])

	assert.NoError(t, Validate(otpForm{Code: "123456"}))
}

func TestValidate_FieldErrorsUseJSONTagNames(t *testing.T) {
	type signupForm struct {
		Email    string `json:"email" validate:"required,email"`
		FullName string `json:"full_name,omitempty" validate:"required"`
		Internal string `json:"-" validate:"omitempty,min=3"`
	}

	err := Validate(signupForm{Email: "not-an-email", Internal: "ab"})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	fields := vErr.Fields()
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "is required", fields["full_name"])
	assert.Equal(t, "must be at least 3 characters", fields["Internal"])
	assert.NotContains(t, fields, "Email")
}

func TestValidationError_Message(t *testing.T) {
	err := Validate(loginForm{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Email' is required")
	assert.Contains(t, err.Error(), "field 'Password' is required")
}
