package scoring

import (
	"math"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

// Tally is the outcome of scoring one attempt.
type Tally struct {
	Correct          int
	Incorrect        int
	NoAnswers        int
	TotalQuestions   int
	TotalMarks       float64
	MarksPerQuestion float64
	Score            float64
}

// Calculate scores answers (keyed by question id) against questions.
// A missing entry or a nil answer counts as unanswered.
func Calculate(questions []models.Question, answers map[uint]interface{}, totalMarks float64) Tally {
	tally := Tally{
		TotalQuestions: len(questions),
		TotalMarks:     totalMarks,
	}
	if tally.TotalQuestions > 0 {
		tally.MarksPerQuestion = totalMarks / float64(tally.TotalQuestions)
	}

	for _, question := range questions {
		answer, found := answers[question.ID]
		if !found || answer == nil {
			tally.NoAnswers++
			continue
		}
		if IsCorrect(question, answer) {
			tally.Correct++
		} else {
			tally.Incorrect++
		}
	}

	tally.Score = Round2(float64(tally.Correct) * tally.MarksPerQuestion)
	return tally
}

// Metadata converts the tally into the persisted diagnostic snapshot.
func (t Tally) Metadata() models.ResultMetadata {
	return models.ResultMetadata{
		CorrectAnswer:    t.Correct,
		IncorrectAnswer:  t.Incorrect,
		NoAnswers:        t.NoAnswers,
		TotalQuestions:   t.TotalQuestions,
		TotalMarks:       t.TotalMarks,
		MarksPerQuestion: t.MarksPerQuestion,
	}
}

// Round2 rounds to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Percentage returns round(score/total*100), or zero for a non-positive total.
func Percentage(score, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(score / total * 100))
}
