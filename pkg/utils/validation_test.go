package utils

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type signup struct {
	Username string `binding:"required,min=3"`
	Email    string `binding:"required,email"`
}

func TestFieldFailed(t *testing.T) {
	err := binding.Validator.ValidateStruct(signup{Username: "alice", Email: "not-an-email"})
	assert.True(t, FieldFailed(err, "Email", "email"))
	assert.False(t, FieldFailed(err, "Username", "min"))

	err = binding.Validator.ValidateStruct(signup{Username: "al", Email: ""})
	assert.True(t, FieldFailed(err, "Username", "min"))
	assert.True(t, FieldFailed(err, "Email", "required"))
	assert.False(t, FieldFailed(err, "Email", "email"))

	assert.NoError(t, binding.Validator.ValidateStruct(signup{Username: "alice", Email: "alice@example.com"}))
	assert.False(t, FieldFailed(errors.New("boom"), "Email", "email"))
	assert.False(t, FieldFailed(nil, "Email", "email"))
}
