package handler

import (
	"errors"

	"github.com/coachhub/scheduler/internal/service"
	"github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo's Validator
// interface, translating tag failures into the domain validation kind so the
// error handler maps them to 400.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) && len(invalid) > 0 {
			f := invalid[0]
			return &service.ValidationError{Field: f.Field(), Reason: "failed " + f.Tag() + " check"}
		}
		return err
	}
	return nil
}
