package formschema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// NormalizeStructure validates an admin-supplied form definition and returns it
// with trimmed labels and upper-cased types.
func NormalizeStructure(fields []models.FormField) ([]models.FormField, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("form structure must declare at least one field")
	}

	labels := make(map[string]struct{}, len(fields))
	ids := make(map[string]struct{}, len(fields))
	normalized := make([]models.FormField, 0, len(fields))

	for i, field := range fields {
		field.Label = strings.TrimSpace(field.Label)
		field.ID = strings.TrimSpace(field.ID)
		field.Type = strings.ToUpper(strings.TrimSpace(field.Type))

		if field.Label == "" {
			return nil, fmt.Errorf("field %d must have a label", i+1)
		}
		if !IsKnownType(field.Type) {
			return nil, fmt.Errorf("field %s has unsupported type %q", field.Label, field.Type)
		}

		labelKey := strings.ToLower(field.Label)
		if _, exists := labels[labelKey]; exists {
			return nil, fmt.Errorf("duplicate field label: %s", field.Label)
		}
		labels[labelKey] = struct{}{}

		if field.ID != "" {
			if _, exists := ids[field.ID]; exists {
				return nil, fmt.Errorf("duplicate field id: %s", field.ID)
			}
			ids[field.ID] = struct{}{}
		}

		if v := field.Validation; v != nil {
			if v.Pattern != "" {
				if _, err := regexp.Compile(v.Pattern); err != nil {
					return nil, fmt.Errorf("field %s has an invalid pattern: %w", field.Label, err)
				}
			}
			if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
				return nil, fmt.Errorf("field %s has min greater than max", field.Label)
			}
		}

		normalized = append(normalized, field)
	}

	return normalized, nil
}
