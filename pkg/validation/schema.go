package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	schemaOnce     sync.Once
	schemaValidate *validator.Validate
)

func schema() *validator.Validate {
	schemaOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON names so errors line up with the form input.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		schemaValidate = v
	})
	return schemaValidate
}

// Struct validates a request shape using its `validate` struct tags and
// returns the first failing field as an *Error.
func Struct(s interface{}) error {
	err := schema().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return NewError(fe.Field(), reasonForTag(fe.Tag(), fe.Param()))
}

func reasonForTag(tag, param string) string {
	switch tag {
	case "required":
		return ReasonRequired
	case "gt":
		if param == "0" {
			return ReasonMustBePositive
		}
		return ReasonOutOfRange
	case "gte", "min":
		if param == "0" {
			return ReasonMustBeNonNegative
		}
		return ReasonOutOfRange
	case "lt", "lte", "max":
		return ReasonOutOfRange
	case "oneof", "len", "uppercase", "alpha", "iso4217":
		return ReasonUnsupported
	case "nefield":
		return ReasonMustDiffer
	default:
		return tag
	}
}
