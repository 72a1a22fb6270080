package scoring

import (
	"fmt"
	"strings"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// Option is one answer choice of a multiple-choice question.
type Option struct {
	Text    string
	ImageID string
}

// Options returns the declared choices of a question in order.
func Options(metadata map[string]interface{}) []Option {
	items, ok := asSlice(metadata["options"])
	if !ok {
		return nil
	}

	options := make([]Option, 0, len(items))
	for _, item := range items {
		switch option := item.(type) {
		case map[string]interface{}:
			text, _ := option["text"].(string)
			imageID, _ := option["image_id"].(string)
			options = append(options, Option{Text: strings.TrimSpace(text), ImageID: strings.TrimSpace(imageID)})
		case string:
			options = append(options, Option{Text: strings.TrimSpace(option)})
		}
	}
	return options
}

// CorrectIndexes returns metadata.correct_answers when it is a list of integers.
func CorrectIndexes(metadata map[string]interface{}) []int {
	indexes, ok := indexList(metadata["correct_answers"])
	if !ok {
		return nil
	}
	return indexes
}

// ValidateDefinition checks that a question carries a usable answer key.
func ValidateDefinition(questionType string, metadata map[string]interface{}) error {
	switch questionType {
	case models.QuestionTypeMCQSingle, models.QuestionTypeMCQMultiple:
		options := Options(metadata)
		if len(options) < 2 {
			return fmt.Errorf("multiple choice questions need at least two options")
		}
		for i, option := range options {
			if option.Text == "" && option.ImageID == "" {
				return fmt.Errorf("option %d must have text or an image", i)
			}
		}
		indexes, ok := indexList(metadata["correct_answers"])
		if !ok || len(indexes) == 0 {
			return fmt.Errorf("correct_answers must list option indexes")
		}
		if questionType == models.QuestionTypeMCQSingle && len(indexes) != 1 {
			return fmt.Errorf("single choice questions need exactly one correct answer")
		}
		for _, index := range indexes {
			if index < 0 || index >= len(options) {
				return fmt.Errorf("correct answer index %d is out of range", index)
			}
		}
		return nil
	case models.QuestionTypeSingleWord:
		answer, ok := metadata["correct_answer"].(string)
		if !ok || strings.TrimSpace(answer) == "" {
			return fmt.Errorf("correct_answer must be a non-empty string")
		}
		return nil
	default:
		return fmt.Errorf("unsupported question type %q", questionType)
	}
}
