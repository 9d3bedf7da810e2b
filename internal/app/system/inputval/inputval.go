// Package inputval provides request input validation using waffle/pantry/validate.
//
// This package wraps pantry/validate to provide a convenient interface for
// validating JSON request bodies with struct tags. Define an input struct with
// validate tags, decode the body into it, and call Validate to get
// user-friendly error messages.
//
// Example:
//
//	type RegisterInput struct {
//	    FullName string `json:"fullName" validate:"required,max=200" label:"Full name"`
//	    Email    string `json:"email" validate:"required,email" label:"Email"`
//	}
//
//	if result := inputval.Validate(input); result.HasErrors() {
//	    jsonutil.BadRequest(w, result.First())
//	    return
//	}
package inputval

import (
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/waffle/pantry/validate"
	"github.com/unihub-ua/unihub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All returns all error messages joined with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// customValidator is a singleton validator with custom rules registered.
var (
	customValidator *validate.Validator
	validatorOnce   sync.Once
)

// getValidator returns the singleton validator with custom rules.
func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		customValidator = validate.New(validate.WithStopOnFirstError())

		// targettype: validates against the reaction/report target types
		customValidator.RegisterRuleFunc("targettype", func(value any) bool {
			if s, ok := value.(string); ok {
				return models.IsValidTargetType(models.TargetType(strings.ToLower(strings.TrimSpace(s))))
			}
			return false
		}, "targettype")

		// reaction: validates the signed reaction value (+1 or -1)
		customValidator.RegisterRuleFunc("reaction", func(value any) bool {
			switch v := value.(type) {
			case int:
				return models.IsValidReactionValue(v)
			case float64:
				return v == float64(int(v)) && models.IsValidReactionValue(int(v))
			}
			return false
		}, "reaction")

		// objectid: validates that string is a valid MongoDB ObjectID hex
		customValidator.RegisterRuleFunc("objectid", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsValidObjectID(s)
			}
			return false
		}, "objectid")
	})
	return customValidator
}

// Validate validates a struct and returns a Result with user-friendly errors.
// The struct should have `validate` tags for rules and optional `label` tags
// for user-friendly field names.
//
// Supported validation rules (from pantry/validate):
//   - required: field must not be empty
//   - email: field must be a valid email address
//   - oneof=a b c: field must be one of the specified values
//   - min=N: string length or numeric value must be >= N
//   - max=N: string length or numeric value must be <= N
//
// Custom validation rules (registered by this package):
//   - targettype: field must name a reactable target (announcement, comment, teacher, review)
//   - reaction: field must be a signed reaction value (+1 or -1)
//   - objectid: field must be a valid MongoDB ObjectID hex string
func Validate(s any) *Result {
	result := &Result{}

	v := getValidator()
	err := v.Struct(s)
	if err == nil {
		return result
	}

	// Get field labels from struct tags
	labels := getFieldLabels(s)

	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}

			msg := formatMessage(label, e.Rule, e.Param)
			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Message: msg,
			})
		}
	}

	return result
}

// getFieldLabels extracts the "label" tag from struct fields.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		// Get the field name (use json tag if available)
		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" && parts[0] != "-" {
				fieldName = parts[0]
			}
		}

		// Get the label
		if label := field.Tag.Get("label"); label != "" {
			labels[fieldName] = label
		}
	}

	return labels
}

// formatMessage creates a user-friendly message for a validation rule.
func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	case "targettype":
		return label + " must be one of: " + joinTargetTypes() + "."
	case "reaction":
		return label + " must be 1 (like) or -1 (dislike)."
	case "objectid":
		return label + " is not a valid ID."
	default:
		return label + " is invalid."
	}
}

func joinTargetTypes() string {
	types := models.AllTargetTypes()
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// IsValidEmail checks if the given string has a valid email format.
//
// This function uses Go's net/mail.ParseAddress for RFC 5322 compliant validation.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}

	// ParseAddress accepts "Name <email>" format, so verify the address
	// matches what we passed in (just the email part).
	return addr.Address == email
}

// IsInstitutionalEmail reports whether email is valid and belongs to one of
// the allowed university domains. An empty allowedDomains list accepts any
// valid email (useful for dev environments).
func IsInstitutionalEmail(email string, allowedDomains []string) bool {
	if !IsValidEmail(email) {
		return false
	}
	if len(allowedDomains) == 0 {
		return true
	}

	at := strings.LastIndex(email, "@")
	domain := strings.ToLower(email[at+1:])
	for _, d := range allowedDomains {
		if domain == strings.ToLower(strings.TrimSpace(d)) {
			return true
		}
	}
	return false
}

// IsValidObjectID checks if the given string is a valid MongoDB ObjectID hex.
func IsValidObjectID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}
