// Package scoring decides answer correctness and derives exam scores.
// Everything here is pure: no I/O, no panics on malformed question data.
package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// IsCorrect reports whether answer satisfies the question's answer key.
// Malformed keys, unexpected answer shapes and unknown question types all yield false.
func IsCorrect(question models.Question, answer interface{}) bool {
	if answer == nil {
		return false
	}

	switch strings.ToUpper(strings.TrimSpace(question.Type)) {
	case models.QuestionTypeMCQSingle:
		return isCorrectSingle(question.Metadata, answer)
	case models.QuestionTypeMCQMultiple:
		return isCorrectMultiple(question.Metadata, answer)
	case models.QuestionTypeSingleWord:
		return isCorrectWord(question.Metadata, answer)
	default:
		return false
	}
}

func isCorrectSingle(metadata map[string]interface{}, answer interface{}) bool {
	keys, ok := indexList(metadata["correct_answers"])
	if !ok || len(keys) != 1 {
		return false
	}
	key := keys[0]

	if text, isString := answer.(string); isString {
		trimmed := strings.TrimSpace(text)
		if optionText, found := optionAt(metadata, key); found && trimmed == optionText {
			return true
		}
		return trimmed == strconv.Itoa(key)
	}

	index, ok := asIndex(answer)
	return ok && index == key
}

func isCorrectMultiple(metadata map[string]interface{}, answer interface{}) bool {
	keys, ok := indexList(metadata["correct_answers"])
	if !ok || len(keys) == 0 {
		return false
	}

	given, ok := asSlice(answer)
	if !ok || len(given) != len(keys) {
		return false
	}

	expected := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		text, found := optionAt(metadata, key)
		if !found {
			return false
		}
		expected[text] = struct{}{}
	}

	actual := make(map[string]struct{}, len(given))
	for _, entry := range given {
		text, ok := normalizeChoice(metadata, entry)
		if !ok {
			return false
		}
		actual[text] = struct{}{}
	}

	if len(expected) != len(actual) {
		return false
	}
	for text := range expected {
		if _, found := actual[text]; !found {
			return false
		}
	}
	return true
}

func isCorrectWord(metadata map[string]interface{}, answer interface{}) bool {
	given, ok := answer.(string)
	if !ok {
		return false
	}
	expected, ok := metadata["correct_answer"].(string)
	if !ok {
		return false
	}
	return strings.ToLower(strings.TrimSpace(given)) == strings.ToLower(strings.TrimSpace(expected))
}

// normalizeChoice maps numeric entries to their option text and keeps strings as-is.
func normalizeChoice(metadata map[string]interface{}, entry interface{}) (string, bool) {
	if text, ok := entry.(string); ok {
		return strings.TrimSpace(text), true
	}
	index, ok := asIndex(entry)
	if !ok {
		return "", false
	}
	return optionAt(metadata, index)
}

func optionAt(metadata map[string]interface{}, index int) (string, bool) {
	options, ok := asSlice(metadata["options"])
	if !ok || index < 0 || index >= len(options) {
		return "", false
	}

	switch option := options[index].(type) {
	case map[string]interface{}:
		text, ok := option["text"].(string)
		if !ok {
			return "", false
		}
		return strings.TrimSpace(text), true
	case string:
		return strings.TrimSpace(option), true
	default:
		return "", false
	}
}

func indexList(value interface{}) ([]int, bool) {
	items, ok := asSlice(value)
	if !ok {
		return nil, false
	}
	indexes := make([]int, 0, len(items))
	for _, item := range items {
		index, ok := asIndex(item)
		if !ok {
			return nil, false
		}
		indexes = append(indexes, index)
	}
	return indexes, true
}

func asSlice(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []int:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []float64:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	default:
		return nil, false
	}
}

// asIndex accepts integral numbers only; strings are never coerced.
func asIndex(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case float32:
		return floatIndex(float64(v))
	case float64:
		return floatIndex(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatIndex(parsed)
	default:
		return 0, false
	}
}

func floatIndex(value float64) (int, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return 0, false
	}
	return int(value), true
}
