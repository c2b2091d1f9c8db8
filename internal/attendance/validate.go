package attendance

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// phone must keep at least one digit once formatting is stripped; the
	// digits are the per-event uniqueness key.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return NormalizePhone(fl.Field().String()) != ""
	})
	return v
}

// FieldProblem is one failed validation rule.
type FieldProblem struct {
	Field string
	Tag   string
}

// validateStruct runs struct tag validation and returns the failing fields, if any.
func validateStruct(in any) ([]FieldProblem, error) {
	err := validate.Struct(in)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validate: %w", err)
	}
	out := make([]FieldProblem, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldProblem{Field: fe.Field(), Tag: fe.Tag()})
	}
	return out, nil
}

func describeProblems(problems []FieldProblem) string {
	parts := make([]string, 0, len(problems))
	for _, p := range problems {
		switch p.Tag {
		case "required":
			parts = append(parts, p.Field+" is required")
		case "email":
			parts = append(parts, p.Field+" is not a valid email")
		case "phone":
			parts = append(parts, p.Field+" must contain digits")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", p.Field, p.Tag))
		}
	}
	return strings.Join(parts, "; ")
}
