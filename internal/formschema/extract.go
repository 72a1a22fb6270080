package formschema

import (
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// Candidate holds account fields guessed from free-form responses.
// Every field is optional: the form structure is admin-defined, so nothing
// guarantees any of them can be found.
type Candidate struct {
	Email      *string
	Name       *string
	Phone      *string
	Address    *string
	Gender     *string
	RollNumber *string
}

type target int

const (
	targetNone target = iota
	targetEmail
	targetRollNumber
	targetPhone
	targetAddress
	targetGender
	targetName
)

var nameExclusions = []string{"father", "mother", "parent", "guardian", "school", "college", "institute", "user"}

// ExtractCandidate maps responses to account fields by case-insensitive label
// matching. Declared fields are visited first, in order; the first match wins.
func ExtractCandidate(fields []models.FormField, responses map[string]interface{}) Candidate {
	var candidate Candidate

	for _, key := range orderedKeys(fields, responses) {
		value, ok := stringify(responses[key])
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch classify(labelFor(fields, key)) {
		case targetEmail:
			assign(&candidate.Email, strings.ToLower(value))
		case targetRollNumber:
			assign(&candidate.RollNumber, value)
		case targetPhone:
			assign(&candidate.Phone, value)
		case targetAddress:
			assign(&candidate.Address, value)
		case targetGender:
			assign(&candidate.Gender, strings.ToUpper(value))
		case targetName:
			assign(&candidate.Name, value)
		}
	}

	return candidate
}

func classify(label string) target {
	label = strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(label, "email"), strings.Contains(label, "e-mail"):
		return targetEmail
	case strings.Contains(label, "roll"):
		return targetRollNumber
	case strings.Contains(label, "phone"), strings.Contains(label, "mobile"), strings.Contains(label, "contact"):
		return targetPhone
	case strings.Contains(label, "address"):
		return targetAddress
	case strings.Contains(label, "gender"), label == "sex":
		return targetGender
	case strings.Contains(label, "name"):
		for _, excluded := range nameExclusions {
			if strings.Contains(label, excluded) {
				return targetNone
			}
		}
		return targetName
	default:
		return targetNone
	}
}

func assign(slot **string, value string) {
	if *slot != nil {
		return
	}
	v := value
	*slot = &v
}

func labelFor(fields []models.FormField, key string) string {
	for _, field := range fields {
		if field.ID != "" && field.ID == key {
			return field.Label
		}
	}
	return key
}

func orderedKeys(fields []models.FormField, responses map[string]interface{}) []string {
	seen := make(map[string]struct{}, len(responses))
	keys := make([]string, 0, len(responses))

	for _, field := range fields {
		key, _, found := resolve(field, responses)
		if !found {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	rest := make([]string, 0)
	for key := range responses {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	return append(keys, rest...)
}

// SanitizeResponses strips markup from string values and trims whitespace.
// Text is stored unescaped; email answers are only trimmed.
func SanitizeResponses(policy *bluemonday.Policy, fields []models.FormField, responses map[string]interface{}) map[string]interface{} {
	emailKeys := make(map[string]struct{})
	for _, field := range fields {
		if strings.ToUpper(field.Type) != models.FieldTypeEmail {
			continue
		}
		if key, _, found := resolve(field, responses); found {
			emailKeys[key] = struct{}{}
		}
	}

	cleaned := make(map[string]interface{}, len(responses))
	for key, value := range responses {
		text, ok := value.(string)
		if !ok {
			cleaned[key] = value
			continue
		}
		_, isEmail := emailKeys[key]
		if isEmail || classify(labelFor(fields, key)) == targetEmail || policy == nil {
			cleaned[key] = strings.TrimSpace(text)
			continue
		}
		cleaned[key] = strings.TrimSpace(html.UnescapeString(policy.Sanitize(text)))
	}
	return cleaned
}
