// Package formschema validates admission form definitions and the untrusted
// responses submitted against them.
package formschema

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\d{10,15}$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	phoneNoise   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// FieldError reports the first violation found in a response set.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// fieldCheck validates a non-empty value for one field type.
type fieldCheck func(field models.FormField, value interface{}) *FieldError

var checks = map[string]fieldCheck{
	models.FieldTypeText:     checkText,
	models.FieldTypeTextarea: checkText,
	models.FieldTypeNumber:   checkNumber,
	models.FieldTypeEmail:    checkEmail,
	models.FieldTypePhone:    checkPhone,
	models.FieldTypeGender:   checkGender,
	models.FieldTypeDate:     checkDate,
}

// IsKnownType reports whether the field type has a validator.
func IsKnownType(fieldType string) bool {
	_, ok := checks[strings.ToUpper(strings.TrimSpace(fieldType))]
	return ok
}

// ValidateResponses checks responses against the declared fields in declaration
// order and stops at the first violation. Keys that match no field by id or
// label are rejected.
func ValidateResponses(fields []models.FormField, responses map[string]interface{}) error {
	consumed := make(map[string]struct{}, len(responses))

	for _, field := range fields {
		key, value, found := resolve(field, responses)
		if found {
			consumed[key] = struct{}{}
		}

		if isEmpty(value) {
			if field.Required {
				return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s is required", field.Label)}
			}
			continue
		}

		check, ok := checks[strings.ToUpper(strings.TrimSpace(field.Type))]
		if !ok {
			continue
		}
		if err := check(field, value); err != nil {
			return err
		}
	}

	unknown := make([]string, 0)
	for key := range responses {
		if _, ok := consumed[key]; ok {
			continue
		}
		if matchesAnyField(fields, key) {
			continue
		}
		unknown = append(unknown, key)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &FieldError{Field: unknown[0], Message: fmt.Sprintf("Unknown field: %s", unknown[0])}
	}

	return nil
}

// resolve looks the value up by field id first, then by label.
func resolve(field models.FormField, responses map[string]interface{}) (string, interface{}, bool) {
	if field.ID != "" {
		if value, ok := responses[field.ID]; ok {
			return field.ID, value, true
		}
	}
	if value, ok := responses[field.Label]; ok {
		return field.Label, value, true
	}
	return "", nil, false
}

func matchesAnyField(fields []models.FormField, key string) bool {
	for _, field := range fields {
		if (field.ID != "" && field.ID == key) || field.Label == key {
			return true
		}
	}
	return false
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}

func checkText(field models.FormField, value interface{}) *FieldError {
	text, ok := value.(string)
	if !ok {
		return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s must be text", field.Label)}
	}
	if field.Validation == nil || field.Validation.Pattern == "" {
		return nil
	}
	pattern, err := regexp.Compile(field.Validation.Pattern)
	if err != nil || !pattern.MatchString(text) {
		return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s has an invalid format", field.Label)}
	}
	return nil
}

func checkNumber(field models.FormField, value interface{}) *FieldError {
	number, ok := toNumber(value)
	if !ok {
		return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s must be a number", field.Label)}
	}
	if field.Validation == nil {
		return nil
	}
	if field.Validation.Min != nil && number < *field.Validation.Min {
		return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s must be at least %s", field.Label, formatNumber(*field.Validation.Min))}
	}
	if field.Validation.Max != nil && number > *field.Validation.Max {
		return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s must be at most %s", field.Label, formatNumber(*field.Validation.Max))}
	}
	return nil
}

func checkEmail(field models.FormField, value interface{}) *FieldError {
	text, ok := value.(string)
	if !ok || !emailPattern.MatchString(strings.TrimSpace(text)) {
		return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s must be a valid email address", field.Label)}
	}
	return nil
}

func checkPhone(field models.FormField, value interface{}) *FieldError {
	text, ok := stringify(value)
	if !ok || !phonePattern.MatchString(phoneNoise.Replace(strings.TrimSpace(text))) {
		return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s must be a valid phone number with 10 to 15 digits", field.Label)}
	}
	return nil
}

func checkGender(field models.FormField, value interface{}) *FieldError {
	text, ok := value.(string)
	if ok {
		switch strings.ToUpper(strings.TrimSpace(text)) {
		case "MALE", "FEMALE", "OTHER":
			return nil
		}
	}
	return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s must be one of MALE, FEMALE or OTHER", field.Label)}
}

func checkDate(field models.FormField, value interface{}) *FieldError {
	text, ok := value.(string)
	if ok {
		text = strings.TrimSpace(text)
		if datePattern.MatchString(text) {
			if _, err := time.Parse("2006-01-02", text); err == nil {
				return nil
			}
		}
	}
	return &FieldError{Field: field.Label, Message: fmt.Sprintf("%s must be a valid date in YYYY-MM-DD format", field.Label)}
}

func toNumber(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func stringify(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
