package httpapp

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

type tokenRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type generateRequest struct {
	Prompt string `json:"prompt" validate:"notblank"`
}

var validate = newValidator()

func newValidator() func(any) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})

	return func(req any) error {
		err := v.Struct(req)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return err
		}
		return errors.New(describe(verrs[0]))
	}
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": field required"
	case "notblank":
		return field + ": must not be blank"
	case "email":
		return field + ": value is not a valid email address"
	case "max":
		return fmt.Sprintf("%s: must be at most %s characters", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s: must be at most %s bytes", field, fe.Param())
	}
	return field + ": invalid value"
}
