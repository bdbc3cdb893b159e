// Package forms binds HTML form submissions and validates them with
// struct tags.
package forms

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/ayush/cybertodo/internal/apperr"
)

// validate is shared by every form. Field errors are reported under the
// name in the field's form tag.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// messages maps "<form field>.<tag>" to the message shown for that
// failure.
type messages map[string]string

// checkStruct validates form and records the first failing rule of each
// field in errs.
func checkStruct(form any, msgs messages, errs Errors) {
	err := validate.Struct(form)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("form", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		msg, ok := msgs[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		errs.Add(fe.Field(), msg)
	}
}

// Errors collects per-field messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Has reports whether field has any message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message for field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Err returns a validation error, or nil if no field failed.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return apperr.ValidationFields(map[string][]string(e))
}
