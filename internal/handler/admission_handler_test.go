package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-exam-api/internal/dto"
	"github.com/noah-isme/gema-exam-api/internal/handler"
	"github.com/noah-isme/gema-exam-api/internal/models"
)

func TestPublicAdmissionFlow(t *testing.T) {
	a := setupApp(t)
	admin := a.createUser(t, "registrar@school.test", models.RoleAdmin, 9)
	exam := a.createExam(t, admin, map[string]interface{}{"totalMarks": 20})

	status, env := a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admission-form/%d", exam.ID), admin, map[string]interface{}{
		"form_structure": []map[string]interface{}{
			{"label": "Full Name", "type": models.FieldTypeText, "required": true},
			{"label": "Email", "type": models.FieldTypeEmail, "required": true},
		},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	require.Equal(t, handler.CodeFormCreated, env.ResponseCode)

	status, env = a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admission-form/%d/public-link", exam.ID), admin, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	var linked dto.AdmissionFormResponse
	decodePayload(t, env, &linked)
	require.NotNil(t, linked.PublicToken)
	token := *linked.PublicToken

	status, env = a.do(t, http.MethodGet, "/api/v1/admission-form/public/"+token, anonymous, nil)
	require.Equal(t, http.StatusOK, status)
	var public dto.AdmissionFormResponse
	decodePayload(t, env, &public)
	require.Nil(t, public.PublicToken)
	require.Len(t, public.FormStructure, 2)

	status, env = a.do(t, http.MethodPost, "/api/v1/admission-form/public/"+token, anonymous, map[string]interface{}{
		"form_responses": map[string]interface{}{"Full Name": "Ana Lee"},
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_ERROR", env.ResponseCode)
	require.Equal(t, "Email is required", env.Message)

	status, env = a.do(t, http.MethodPost, "/api/v1/admission-form/public/"+token, anonymous, map[string]interface{}{
		"form_responses": map[string]interface{}{"Full Name": "Ana Lee", "Email": "ana@home.test"},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var submission dto.AdmissionSubmissionResponse
	decodePayload(t, env, &submission)
	require.Equal(t, models.AdmissionStatusPending, submission.Status)

	status, env = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admission-form/%d/submissions", exam.ID), admin, nil)
	require.Equal(t, http.StatusOK, status)
	var listed []dto.AdmissionSubmissionResponse
	decodePayload(t, env, &listed)
	require.Len(t, listed, 1)

	status, env = a.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/admission-form-submission/%d/status", submission.ID), admin, map[string]interface{}{
		"action": "APPROVE",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	require.Equal(t, handler.CodeSubmissionApproved, env.ResponseCode)

	var created models.User
	require.NoError(t, a.db.Where("email = ?", "ana@home.test").First(&created).Error)
	require.Equal(t, models.RoleStudent, created.Role)
	require.Equal(t, exam.EntityID, created.EntityID)
}

func TestPublicAdmissionUnknownToken(t *testing.T) {
	a := setupApp(t)

	status, env := a.do(t, http.MethodGet, "/api/v1/admission-form/public/missing-token", anonymous, nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "Admission form not found", env.Message)
}

func TestSubmissionStatusRouteIsAdminOnly(t *testing.T) {
	a := setupApp(t)
	student := a.createUser(t, "jo@school.test", models.RoleStudent, 9)

	status, env := a.do(t, http.MethodPatch, "/api/v1/admission-form-submission/1/status", student, map[string]interface{}{
		"action": "approve",
	})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "AUTHORIZATION_FAILED", env.ResponseCode)
}
