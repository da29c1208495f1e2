package utils

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// FieldFailed reports whether err is a binding failure of field on the given
// validator tag, such as ("Email", "email").
func FieldFailed(err error, field, tag string) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Field() == field && fe.Tag() == tag {
			return true
		}
	}
	return false
}
