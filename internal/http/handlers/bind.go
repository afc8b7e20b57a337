package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}

		RespondError(ctx, status, "invalid_request", "Invalid request body", parseBindError(err))
		return false
	}

	return true
}

func parseBindError(err error) interface{} {
	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			fields = append(fields, FieldError{
				Field:   lowerFirst(fieldError.Field()),
				Rule:    fieldError.Tag(),
				Param:   fieldError.Param(),
				Message: validationMessage(fieldError.Tag(), fieldError.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}
	}

	var typeError *json.UnmarshalTypeError

	if errors.As(err, &typeError) {
		field := strings.TrimSpace(typeError.Field)

		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{
				{
					Field:   field,
					Rule:    "type",
					Message: fmt.Sprintf("must be of type %s", typeError.Type.String()),
				},
			},
		}
	}

	return gin.H{"reason": err.Error()}
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required", "notblank":
		return "is required"
	case "email", "emailshape":
		return "must be a valid email address"
	case "max":
		return "must be at most " + param
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// FlexibleID accepts a JSON string or number, so {"conferenceId": 1} and
// {"conferenceId": "1"} name the same event. Numbers are written in their shortest
// form (1.50 becomes "1.5") and 0 counts as missing.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = FlexibleID(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return &json.UnmarshalTypeError{Value: string(b), Type: reflect.TypeOf(""), Field: "conferenceId"}
	}
	if f == 0 {
		*id = ""
		return nil
	}
	*id = FlexibleID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// FlexibleBool takes any JSON value and keeps its truthiness: false, null, 0, ""
// and "false" are false, everything else is true.
type FlexibleBool bool

func (v *FlexibleBool) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch x := raw.(type) {
	case nil:
		*v = false
	case bool:
		*v = FlexibleBool(x)
	case float64:
		*v = x != 0
	case string:
		s := strings.TrimSpace(x)
		if parsed, err := strconv.ParseBool(s); err == nil {
			*v = FlexibleBool(parsed)
		} else {
			*v = s != ""
		}
	default:
		*v = true
	}
	return nil
}
