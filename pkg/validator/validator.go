package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one failed rule on one field. Field carries the JSON
// name of the struct field so messages line up with the wire payload.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// ValidationErrors is the error type ValidateStruct returns on rule failures.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "invalid input"
	}

	parts := make([]string, len(v))
	for i, fe := range v {
		rule := fe.Tag
		if fe.Param != "" {
			rule += "=" + fe.Param
		}
		parts[i] = fe.Field + ": " + rule
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

// ValidateStruct runs the `validate` tag rules on s. Rule failures come back
// as ValidationErrors; anything else is a usage error from the underlying
// library.
func ValidateStruct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	failures := make(ValidationErrors, 0, len(ve))
	for _, fe := range ve {
		failures = append(failures, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return failures
}

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return v
})

// jsonFieldName resolves a struct field to the name a client actually sent.
func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}
