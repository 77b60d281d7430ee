package core

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"teanotify/internal/types"
)

// Validator wraps go-playground/validator with the domain's custom tags and
// converts validation failures into structured AppErrors.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator and registers the custom tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Enum tags for request structs.
	_ = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return types.EventType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("channel_type", func(fl validator.FieldLevel) bool {
		return types.ChannelType(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || types.Priority(s).IsValid()
	})

	return &Validator{validate: v}
}

// ValidateStruct validates the struct's tags, returning a
// validation_missing_required_field AppError whose details map each failing
// field to its violated rule.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"request validation failed",
		err,
		details,
	)
}
