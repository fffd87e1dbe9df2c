package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrongPassword(t *testing.T) {
	v := NewValidator()
	type payload struct {
		Password string `json:"password" validate:"strong_password"`
	}

	assert.NoError(t, v.Struct(payload{Password: "Abcd1234"}))
	for _, weak := range []string{"abcd1234", "ABCD1234", "Abcdefgh", "12345678"} {
		err := v.Struct(payload{Password: weak})
		require.Error(t, err, weak)
		assert.Equal(t, map[string]string{
			"password": "must contain a lowercase letter, an uppercase letter and a digit",
		}, fieldErrors(err))
	}
}

func TestFieldErrors_UsesJSONNames(t *testing.T) {
	v := NewValidator()
	type payload struct {
		NewEmail string `json:"new_email" validate:"required,email"`
		Code     string `json:"code" validate:"verification_code"`
	}

	err := v.Struct(payload{NewEmail: "x", Code: "12"})
	require.Error(t, err)
	fields := fieldErrors(err)
	assert.Equal(t, "must be a valid email address", fields["new_email"])
	assert.Equal(t, "must be exactly 6 digits", fields["code"])
}

func TestVerificationCodeTag(t *testing.T) {
	v := NewValidator()
	type payload struct {
		Code string `json:"code" validate:"verification_code"`
	}

	assert.NoError(t, v.Struct(payload{Code: "012345"}))
	for _, bad := range []string{"+12345", "-12345", "1.2345", "12345a", "12345", "1234567", " 12345", "１２３４５６"} {
		err := v.Struct(payload{Code: bad})
		require.Error(t, err, bad)
		assert.Equal(t, map[string]string{"code": "must be exactly 6 digits"}, fieldErrors(err), bad)
	}
}
