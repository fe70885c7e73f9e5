package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so clients can map errors to inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "request body is required")
		}
		return domain.NewValidationError("body", "invalid JSON body")
	}
	return validateStruct(dst)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return formatValidationError(verrs)
}

func formatValidationError(verrs validator.ValidationErrors) *domain.ValidationError {
	out := &domain.ValidationError{}
	for _, fe := range verrs {
		field := fe.Namespace()
		// Drop the root struct name.
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}

		switch fe.Tag() {
		case "required":
			out.Add(field, fmt.Sprintf("%s is required", fe.Field()))
		case "min":
			if fe.Kind() == reflect.String {
				out.Add(field, fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param()))
			} else {
				out.Add(field, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
			}
		case "gt":
			out.Add(field, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "gte":
			out.Add(field, fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param()))
		case "email":
			out.Add(field, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "oneof":
			out.Add(field, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			out.Add(field, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return out
}
