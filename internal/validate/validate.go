// Package validate checks structs against their `validate` tags and
// reports failures as translated field errors.
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

var (
	mu       sync.RWMutex
	messages = map[string]string{
		"required":   "This field is required",
		"printascii": "must contain only printable ASCII",
	}
)

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("validate: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("name"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

// Register adds a custom validation tag. msg is reported for fields that
// fail it.
func Register(tag string, fn validator.Func, msg string) error {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		return err
	}

	mu.Lock()
	messages[tag] = msg
	mu.Unlock()

	return nil
}

// Check validates val against its declared tags. Invalid fields are
// returned as [FieldErrors].
func Check(val any) error {
	if err := validate.Struct(val); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		var fields FieldErrors
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: verror.Field(),
				Err:   customErrForTag(verror.Tag(), verror),
			})
		}
		return fields
	}

	return nil
}

// FieldError is a single invalid field.
type FieldError struct {
	Field string
	Err   string
}

// FieldErrors is a collection of field errors.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

// Fields returns the names of the invalid fields in order.
func (fe FieldErrors) Fields() []string {
	names := make([]string, len(fe))
	for i, f := range fe {
		names[i] = f.Field
	}
	return names
}

func customErrForTag(tag string, verror validator.FieldError) string {
	mu.RLock()
	msg, ok := messages[tag]
	mu.RUnlock()

	if ok {
		return msg
	}

	return verror.Translate(translator)
}
