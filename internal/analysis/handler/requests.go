package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	id "numintel/pkg/domain"
	dErrors "numintel/pkg/domain-errors"
)

// validate is a package-level singleton; building a validator is expensive.
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

// AnalyzeRequest is the body of POST /analyze. Number accepts a JSON integer
// or a decimal string.
type AnalyzeRequest struct {
	Number *id.Number `json:"number" validate:"required"`
}

func (r *AnalyzeRequest) Validate() error {
	return validateStruct(r)
}

// BatchRequest is the body of POST /batch.
type BatchRequest struct {
	Numbers []id.Number `json:"numbers" validate:"required,min=1"`
}

func (r *BatchRequest) Validate() error {
	return validateStruct(r)
}

// Int64s returns the parsed numbers in request order.
func (r *BatchRequest) Int64s() []int64 {
	out := make([]int64, len(r.Numbers))
	for i, n := range r.Numbers {
		out[i] = n.Int64()
	}
	return out
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
	}
	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "min":
		msg = fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return dErrors.Wrap(err, dErrors.CodeValidation, msg)
}
