package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field failure.
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

// Validator wraps go-playground/validator with the domain rules registered.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()

	v := &Validator{validate: validate}
	v.registerDomainRules()

	return v
}

// Validate validates a struct; returns ValidationErrors on failure.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	return ToValidationErrors(fieldErrs)
}

// ToValidationErrors converts library field errors into the domain shape.
func ToValidationErrors(fieldErrs validator.ValidationErrors) ValidationErrors {
	errs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return errs
}

func (v *Validator) registerDomainRules() {
	// Geographic coordinate ranges
	v.validate.RegisterAlias("geo_latitude", "min=-90,max=90")
	v.validate.RegisterAlias("geo_longitude", "min=-180,max=180")

	// A zone smaller than 10m produces constant spurious crossings from GPS
	// jitter; larger than 10km is a configuration mistake.
	v.validate.RegisterAlias("zone_radius", "min=10,max=10000")

	// Manual marks accept present/absent only; leave is set through a
	// dedicated management flow.
	v.validate.RegisterAlias("manual_status", "oneof=present absent")

	v.validate.RegisterAlias("incident_severity", "oneof=low medium high")
	v.validate.RegisterAlias("crossing_kind", "oneof=enter exit")
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed rule %q", fe.Tag())
	}
}
