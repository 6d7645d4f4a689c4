package validation

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// StructValidator is a singleton instance of the validator.
var StructValidator = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse represents a validation error message.
type ErrorResponse struct {
	FailedField string `json:"failed_field"`
	Tag         string `json:"tag"`
	Value       string `json:"value"`
	Message     string `json:"message"`
}

// ValidateStruct performs validation on a struct. It returns a slice of
// ErrorResponse if validation fails, or nil otherwise.
func ValidateStruct(payload interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := StructValidator.Struct(payload)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = fmt.Sprintf("%v", err.Value())
			element.Message = generateValidationMessage(err)
			errors = append(errors, &element)
		}
	}
	return errors
}

// generateValidationMessage creates a user-friendly message for a validation error.
func generateValidationMessage(err validator.FieldError) string {
	field := err.Field()
	tag := err.Tag()
	param := err.Param()
	kind := err.Kind()

	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "min":
		switch kind {
		case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
			return fmt.Sprintf("The %s field must have at least %s items/characters.", field, param)
		default:
			return fmt.Sprintf("The %s field must be at least %s.", field, param)
		}
	case "max":
		switch kind {
		case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
			return fmt.Sprintf("The %s field must have at most %s items/characters.", field, param)
		default:
			return fmt.Sprintf("The %s field must be at most %s.", field, param)
		}
	case "url":
		return fmt.Sprintf("The %s field must be a valid URL.", field)
	case "oneof":
		return fmt.Sprintf("The %s field must be one of: %s.", field, param)
	default:
		return fmt.Sprintf("The %s field is not valid (tag: %s).", field, tag)
	}
}

// ParseAndValidate parses the request body into payload and validates it. It
// returns true on success; on failure it has already written the error
// response.
func ParseAndValidate(c *fiber.Ctx, payload interface{}) bool {
	if err := c.BodyParser(payload); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}

	validationErrors := ValidateStruct(payload)
	if validationErrors != nil {
		errorMessages := make([]string, len(validationErrors))
		for i, ve := range validationErrors {
			errorMessages[i] = ve.Message
		}
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Validation failed",
			"details":  validationErrors,
			"messages": errorMessages,
		})
		return false
	}
	return true
}
