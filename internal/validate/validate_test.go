package validate_test

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/naett/internal/validate"
)

type target struct {
	Name  string `name:"name" validate:"required"`
	Count int    `name:"count" validate:"gte=0"`
	Ratio int    `name:"ratio" validate:"required_unless=Count 0"`
	Code  string `name:"code" validate:"omitempty,even_len"`
	Skip  string `name:"-" validate:"omitempty,printascii"`
}

func init() {
	err := validate.Register("even_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	}, "must have an even length")
	if err != nil {
		panic(err)
	}
}

func TestCheck(t *testing.T) {
	if err := validate.Check(target{Name: "ok", Code: "ab"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := validate.Check(target{Count: -1, Code: "abc", Skip: "\x01"})

	var fe validate.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %T: %v", err, err)
	}

	want := validate.FieldErrors{
		{Field: "name", Err: "This field is required"},
		{Field: "count", Err: "count must be 0 or greater"},
		{Field: "ratio", Err: "ratio is a required field"},
		{Field: "code", Err: "must have an even length"},
		{Field: "Skip", Err: "must contain only printable ASCII"},
	}
	if diff := cmp.Diff(want, fe); diff != "" {
		t.Errorf("field errors mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"name", "count", "ratio", "code", "Skip"}, fe.Fields()); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}
