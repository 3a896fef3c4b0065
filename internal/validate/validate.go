// Package validate wraps go-playground/validator with English messages and
// the course-specific rules shared by the wizard and the API.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/arturoeanton/coursepilot/internal/domain"
	"github.com/arturoeanton/coursepilot/internal/port"
)

// FieldError is one failed rule, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a set of field errors. It matches port.ErrValidation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *Error) Is(target error) bool { return target == port.ErrValidation }

// Message returns the message for field, or "".
func (e *Error) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Validator validates structs and single values.
type Validator struct {
	core  *validator.Validate
	trans ut.Translator
}

// New builds a validator with English translations and the "category" rule.
func New() *Validator {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(fmt.Errorf("register translations: %w", err))
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return slices.Contains(domain.Categories, fl.Field().String())
	})
	_ = v.RegisterTranslation("category", trans,
		func(ut ut.Translator) error {
			return ut.Add("category", "{0} must be one of the listed categories", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("category", fe.Field())
			return msg
		},
	)
	_ = v.RegisterTranslation("min", trans,
		func(ut ut.Translator) error {
			return ut.Add("min", "{0} must be at least {1} characters", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("min", fe.Field(), fe.Param())
			return msg
		},
	)

	return &Validator{core: v, trans: trans}
}

// Struct validates s and returns *Error on failure.
func (v *Validator) Struct(s any) error {
	return v.wrap(v.core.Struct(s))
}

// Field validates one field of a struct, e.g. Field(in, "Subject").
func (v *Validator) Field(s any, name string) error {
	return v.wrap(v.core.StructPartial(s, name))
}

func (v *Validator) wrap(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fe.Translate(v.trans)})
	}
	return out
}
