package validator

import (
	"testing"

	"portal/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signUpRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Validate(&signUpRequest{Name: "Ada", Email: "not-an-email", Password: "short"})
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"email":    "email",
		"password": "min=8",
	}, FieldErrors(err))
}

func TestValidatePasses(t *testing.T) {
	err := New().Validate(&signUpRequest{Name: "Ada", Email: "ada@example.com", Password: "long-enough"})
	assert.NoError(t, err)
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(nil))
	assert.Nil(t, FieldErrors(errors.New("boom")))
}

func TestFieldErrorsUnwraps(t *testing.T) {
	err := New().Validate(&signUpRequest{})
	wrapped := errors.Wrap(err, "bind")

	fields := FieldErrors(wrapped)
	assert.Len(t, fields, 3)
	assert.Equal(t, "required", fields["name"])
}
