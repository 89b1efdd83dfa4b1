// Package validation validates request payloads and reports field-level errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gigboard/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the marketplace rules.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator. Field names in errors follow the json tags.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validation %q: %v", tag, err))
		}
	}
	mustRegister("password", func(fl validator.FieldLevel) bool {
		return ValidatePassword(fl.Field().String()) == nil
	})
	mustRegister("category", func(fl validator.FieldLevel) bool {
		return models.ServiceCategory(fl.Field().String()).Valid()
	})
	mustRegister("service_status", func(fl validator.FieldLevel) bool {
		return models.ServiceStatus(fl.Field().String()).Valid()
	})
	mustRegister("expert_response", func(fl validator.FieldLevel) bool {
		return models.ApplicationStatus(fl.Field().String()).IsExpertResponse()
	})
	mustRegister("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{validate: v}
}

// Struct validates s and returns a VALIDATION_ERROR AppError carrying one
// message per failing field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.NewValidationError(err.Error())
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fieldPath(fe.Namespace())
		if _, seen := fields[name]; !seen {
			fields[name] = message(fe)
		}
	}
	return models.NewFieldValidationError("Validation failed", fields)
}

// fieldPath drops the root struct name: "CreateRequest.pricing.amount"
// becomes "pricing.amount".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with", "required_unless", "notblank":
		return "This field is required"
	case "email":
		return "Please provide a valid email"
	case "min":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Cannot have more than %s items", fe.Param())
		}
		if isSized(fe.Kind()) {
			return fmt.Sprintf("Cannot exceed %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url", "http_url":
		return "Must be a valid URL"
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "password":
		return "Password must be at least 6 characters and contain at least one lowercase letter, one uppercase letter, and one number"
	case "category":
		return "Invalid category"
	case "service_status":
		return "Invalid service status"
	case "expert_response":
		return "Status must be either accepted or rejected"
	case "e164":
		return "Please provide a valid phone number"
	default:
		return fmt.Sprintf("Invalid value (failed on '%s')", fe.Tag())
	}
}

func isSized(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map
}
