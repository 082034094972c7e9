package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// FieldProblem is one rejected request field.
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// messages are keyed by validator tag; %[1]s is the field, %[2]s the tag param.
var messages = map[string]string{
	"required": "%[1]s is required",
	"email":    "%[1]s must be a valid email address",
	"min":      "%[1]s must be at least %[2]s characters",
	"max":      "%[1]s must be at most %[2]s characters",
	"len":      "%[1]s must be exactly %[2]s characters",
	"numeric":  "%[1]s must contain digits only",
	"oneof":    "%[1]s must be one of: %[2]s",
	"eqfield":  "%[1]s must match %[2]s",
}

// BindingProblems lists the field-level failures carried by err, if any.
func BindingProblems(err error) []FieldProblem {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]FieldProblem, 0, len(ve))
	for _, fe := range ve {
		tmpl, ok := messages[fe.Tag()]
		if !ok {
			tmpl = "%[1]s is invalid"
		}
		out = append(out, FieldProblem{Field: fe.Field(), Message: fmt.Sprintf(tmpl, fe.Field(), fe.Param())})
	}
	return out
}

// FormatBindingError renders a decode or validation failure as one line.
func FormatBindingError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, io.EOF) {
		return "request body is empty"
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("malformed JSON at byte %d", syntaxErr.Offset)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)
	}

	if problems := BindingProblems(err); len(problems) > 0 {
		msgs := make([]string, len(problems))
		for i, p := range problems {
			msgs[i] = p.Message
		}
		return strings.Join(msgs, "; ")
	}

	return err.Error()
}
