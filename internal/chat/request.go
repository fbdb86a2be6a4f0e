// Package chat defines the inbound chat payload and its validation rules.
package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MohitGoyal09/portfolio/pkg/apierr"
)

// MaxMessageLength is the longest accepted message, in Unicode code points.
const MaxMessageLength = 500

// Turn roles accepted in the history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Request is a validated chat request.
type Request struct {
	Message string `json:"message" validate:"required,min=1,max=500"`
	History []Turn `json:"history" validate:"dive"`
}

// Turn is one prior exchange in the conversation.
type Turn struct {
	Role  string `json:"role" validate:"required,oneof=user model"`
	Parts []Part `json:"parts" validate:"required,dive"`
}

// Part is a text fragment of a turn. Text is a pointer so that a missing
// field can be told apart from an empty string.
type Part struct {
	Text *string `json:"text" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses and validates a JSON request body. Any failure rejects the
// whole request with an *apierr.ValidationError listing the failing fields.
// A missing or null history becomes an empty slice.
func Decode(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &apierr.ValidationError{Details: []apierr.FieldError{decodeFieldError(body, err)}}
	}
	if err := Validate(&req); err != nil {
		return nil, err
	}
	if req.History == nil {
		req.History = []Turn{}
	}
	return &req, nil
}

// Validate checks req against the field rules.
func Validate(req *Request) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &apierr.InternalError{Err: err}
	}

	details := make([]apierr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apierr.FieldError{
			Path:    fieldPath(fe.Namespace()),
			Message: describe(fe),
			Code:    fe.Tag(),
		})
	}
	return &apierr.ValidationError{Details: details}
}

// fieldPath drops the root struct name: "Request.history[0].role" → "history[0].role".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s character(s)", fe.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s character(s)", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func decodeFieldError(body []byte, err error) apierr.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apierr.FieldError{
			Path:    typeErr.Field,
			Message: fmt.Sprintf("expected %s, received %s", jsonKind(typeErr.Type), typeErr.Value),
			Code:    "invalid_type",
		}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return apierr.FieldError{Message: "request body is empty", Code: "invalid_json"}
	}
	return apierr.FieldError{Message: "malformed JSON: " + err.Error(), Code: "invalid_json"}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Ptr:
		return jsonKind(t.Elem())
	case reflect.Bool:
		return "boolean"
	default:
		return "number"
	}
}
