// Package validation checks request structs and reports every failing field
// at once.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is returned when one or more fields fail.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// embedded marks anonymous struct fields so their names can be left out
// of reported paths.
const embedded = "~"

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				if f.Anonymous {
					return embedded + f.Name
				}
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates v and returns Errors when any field fails.
func Struct(v interface{}) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return out
}

// fieldPath drops the top-level struct name and any embedded struct names
// from the namespace: "MovieRequest.~titleFields.images[0]" becomes
// "images[0]".
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) < 2 {
		return fe.Field()
	}
	out := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if !strings.HasPrefix(p, embedded) {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if isString(fe) {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if isString(fe) {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "url", "url|datauri", "datauri":
		return "must be a valid URL or data URI"
	case "uuid", "uuid4":
		return "must be a valid id"
	case "unique":
		return "must not contain duplicates"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

func isString(fe validator.FieldError) bool {
	return fe.Kind() == reflect.String
}
