package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

func wordQuestion(id uint, answer string) models.Question {
	return models.Question{
		ID:       id,
		Type:     models.QuestionTypeSingleWord,
		Metadata: map[string]interface{}{"correct_answer": answer},
	}
}

func TestCalculateThreeCorrectOneBlank(t *testing.T) {
	questions := []models.Question{
		wordQuestion(1, "a"),
		wordQuestion(2, "b"),
		wordQuestion(3, "c"),
		wordQuestion(4, "d"),
	}
	answers := map[uint]interface{}{1: "a", 2: "B", 3: "c", 4: nil}

	tally := Calculate(questions, answers, 100)

	require.Equal(t, 25.0, tally.MarksPerQuestion)
	require.Equal(t, 75.0, tally.Score)
	require.Equal(t, 3, tally.Correct)
	require.Equal(t, 0, tally.Incorrect)
	require.Equal(t, 1, tally.NoAnswers)
	require.Equal(t, models.ResultMetadata{
		CorrectAnswer:    3,
		IncorrectAnswer:  0,
		NoAnswers:        1,
		TotalQuestions:   4,
		TotalMarks:       100,
		MarksPerQuestion: 25,
	}, tally.Metadata())
}

func TestCalculateRoundsToTwoDecimals(t *testing.T) {
	questions := []models.Question{wordQuestion(1, "a"), wordQuestion(2, "b"), wordQuestion(3, "c")}

	tally := Calculate(questions, map[uint]interface{}{1: "a", 2: "x"}, 10)

	require.Equal(t, 3.33, tally.Score)
	require.Equal(t, 1, tally.Incorrect)
	require.Equal(t, 1, tally.NoAnswers)
}

func TestCalculateWithoutQuestions(t *testing.T) {
	tally := Calculate(nil, map[uint]interface{}{1: "a"}, 50)

	require.Zero(t, tally.MarksPerQuestion)
	require.Zero(t, tally.Score)
	require.Zero(t, tally.TotalQuestions)
}

func TestCalculateIsDeterministic(t *testing.T) {
	questions := []models.Question{wordQuestion(1, "a"), wordQuestion(2, "b")}
	answers := map[uint]interface{}{1: "a", 2: "c"}

	require.Equal(t, Calculate(questions, answers, 7), Calculate(questions, answers, 7))
}

func TestPercentage(t *testing.T) {
	require.Equal(t, 90, Percentage(45, 50))
	require.Equal(t, 88, Percentage(44, 50))
	require.Equal(t, 0, Percentage(10, 0))
}
