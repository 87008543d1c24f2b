// Package validate wraps go-playground/validator and reports failures as
// field-level apperr validation errors keyed by JSON field name.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/paywave/paywave/internal/apperr"
)

var (
	once     sync.Once
	instance *validator.Validate

	nubanPattern    = regexp.MustCompile(`^[0-9]{10}$`)
	bankCodePattern = regexp.MustCompile(`^[0-9]{3,6}$`)
	pinPattern      = regexp.MustCompile(`^[0-9]{4}$`)
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("nuban", matches(nubanPattern))
		_ = v.RegisterValidation("bankcode", matches(bankCodePattern))
		_ = v.RegisterValidation("pin", matches(pinPattern))
		instance = v
	})
	return instance
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Struct validates s and returns nil or an *apperr.Error of KindValidation.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error(), nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return apperr.Validation("request validation failed", fields)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "nuban":
		return "must be a 10 digit account number"
	case "bankcode":
		return "must be a numeric bank code"
	case "pin":
		return "must be a 4 digit PIN"
	case "len":
		return "must be " + fe.Param() + " characters"
	case "numeric":
		return "must contain only digits"
	default:
		return "is invalid"
	}
}
