package formschema

import (
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-exam-api/internal/models"
)

func TestExtractCandidateMatchesLabels(t *testing.T) {
	fields := []models.FormField{
		{ID: "q1", Label: "Father's Name", Type: models.FieldTypeText},
		{ID: "q2", Label: "Student Name", Type: models.FieldTypeText},
		{ID: "q3", Label: "E-mail Address", Type: models.FieldTypeEmail},
		{Label: "Mobile", Type: models.FieldTypePhone},
		{Label: "Home Address", Type: models.FieldTypeTextarea},
		{Label: "Gender", Type: models.FieldTypeGender},
		{Label: "Roll Number", Type: models.FieldTypeText},
	}
	responses := map[string]interface{}{
		"q1":           "Ravi Verma",
		"q2":           "Asha Verma",
		"q3":           "Asha@Example.com",
		"Mobile":       float64(9876543210),
		"Home Address": "12 Lake Road",
		"Gender":       "female",
		"Roll Number":  "R-42",
	}

	candidate := ExtractCandidate(fields, responses)

	require.NotNil(t, candidate.Email)
	require.Equal(t, "asha@example.com", *candidate.Email)
	require.Equal(t, "Asha Verma", *candidate.Name)
	require.Equal(t, "9876543210", *candidate.Phone)
	require.Equal(t, "12 Lake Road", *candidate.Address)
	require.Equal(t, "FEMALE", *candidate.Gender)
	require.Equal(t, "R-42", *candidate.RollNumber)
}

func TestExtractCandidateLeavesMissingFieldsEmpty(t *testing.T) {
	candidate := ExtractCandidate(nil, map[string]interface{}{"Favourite colour": "blue", "email": ""})

	require.Nil(t, candidate.Email)
	require.Nil(t, candidate.Name)
	require.Nil(t, candidate.Phone)
}

func TestSanitizeResponsesStripsMarkup(t *testing.T) {
	cleaned := SanitizeResponses(bluemonday.StrictPolicy(), nil, map[string]interface{}{
		"Name": " <b>Asha</b><script>alert(1)</script> ",
		"Age":  float64(14),
	})

	require.Equal(t, "Asha", cleaned["Name"])
	require.Equal(t, float64(14), cleaned["Age"])
}

func TestSanitizeResponsesKeepsPunctuation(t *testing.T) {
	fields := []models.FormField{
		{ID: "q_mail", Label: "E-mail", Type: models.FieldTypeEmail},
		{Label: "Full Name", Type: models.FieldTypeText},
	}
	responses := map[string]interface{}{
		"q_mail":    " o'brien+kids@x.com ",
		"Full Name": "Tom O'Brien & Sons <i>Ltd</i>",
		"Guardian":  "Ann & Bob",
	}

	cleaned := SanitizeResponses(bluemonday.StrictPolicy(), fields, responses)

	require.Equal(t, "o'brien+kids@x.com", cleaned["q_mail"])
	require.Equal(t, "Ann & Bob", cleaned["Guardian"])
	require.Equal(t, "Tom O'Brien & Sons Ltd", cleaned["Full Name"])

	candidate := ExtractCandidate(fields, cleaned)
	require.Equal(t, "o'brien+kids@x.com", *candidate.Email)
	require.Equal(t, "Tom O'Brien & Sons Ltd", *candidate.Name)
}
