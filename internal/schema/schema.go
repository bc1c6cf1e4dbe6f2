package schema

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lingocrowd/contribution_control/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their json names, they are what callers send
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Struct validates v and converts the first failure into a SchemaError.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Schema("invalid payload: %v", err)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return apperr.Schema("missing required field: %s", fe.Field())
	case "oneof":
		return apperr.Schema("invalid %s: must be one of %s", fe.Field(), fe.Param())
	case "uuid", "uuid4":
		return apperr.Schema("invalid %s: must be a uuid", fe.Field())
	default:
		return apperr.Schema("invalid field: %s", fe.Field())
	}
}
