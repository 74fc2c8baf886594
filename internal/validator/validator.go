package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
)

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Validator wraps go-playground/validator with the domain rules registered
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

func New() *Validator {
	validate := validator.New()

	// Report json names so clients see the fields they sent
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	registerDomainRules(validate)

	return &Validator{
		validate: validate,
		business: &BusinessValidator{validate: validate},
	}
}

// Validate returns ValidationErrors when s breaks a struct rule, nil otherwise.
func (v *Validator) Validate(s interface{}) error {
	if errs := ToValidationErrors(v.validate.Struct(s)); len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// ToValidationErrors converts a validator error into ValidationErrors.
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error(), Rule: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func registerDomainRules(validate *validator.Validate) {
	validate.RegisterValidation("question_kind", func(fl validator.FieldLevel) bool {
		return models.QuestionKind(fl.Field().String()).Valid()
	})

	validate.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		return models.Tier(fl.Field().String()).Valid()
	})

	validate.RegisterValidation("hotspot_mode", func(fl validator.FieldLevel) bool {
		switch models.HotspotMode(fl.Field().String()) {
		case models.HotspotModeHotspot, models.HotspotModeLabeling, models.HotspotModeClickSequence:
			return true
		}
		return false
	})
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "gtfield":
		return fmt.Sprintf("must be after %s", strings.ToLower(fe.Param()))
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "question_kind":
		return fmt.Sprintf("must be one of %s", joinKinds())
	case "tier":
		return "must be free or pro"
	case "hotspot_mode":
		return "must be hotspot, labeling or click_sequence"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func joinKinds() string {
	names := make([]string, len(models.QuestionKinds))
	for i, k := range models.QuestionKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
