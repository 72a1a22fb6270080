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

func TestResumptionRequestAndApproval(t *testing.T) {
	a := setupApp(t)
	admin := a.createUser(t, "proctor@school.test", models.RoleAdmin, 2)
	student := a.createUser(t, "lee@school.test", models.RoleStudent, 2)
	exam := a.createExam(t, admin, map[string]interface{}{"totalMarks": 10})

	enrollment := models.Enrollment{ExamID: exam.ID, UserID: student.ID, Status: models.EnrollmentStatusOngoing}
	require.NoError(t, a.db.Create(&enrollment).Error)

	status, env := a.do(t, http.MethodPost, "/api/v1/resumption-request/request", student, map[string]interface{}{
		"enrollment_id": enrollment.ID,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	require.Equal(t, handler.CodeResumptionRequested, env.ResponseCode)
	var requested dto.ResumptionResponse
	decodePayload(t, env, &requested)
	require.Equal(t, models.ResumptionStatusPending, requested.Status)

	status, env = a.do(t, http.MethodPost, "/api/v1/resumption-request/request", student, map[string]interface{}{
		"enrollment_id": enrollment.ID,
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "CONFLICT", env.ResponseCode)

	status, env = a.do(t, http.MethodPost, "/api/v1/resumption-request/approve", admin, map[string]interface{}{
		"request_id": requested.ID,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	require.Equal(t, handler.CodeResumptionApproved, env.ResponseCode)

	status, env = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/resumption-request/%d", enrollment.ID), admin, nil)
	require.Equal(t, http.StatusOK, status)
	var history []dto.ResumptionResponse
	decodePayload(t, env, &history)
	require.Len(t, history, 1)
	require.Equal(t, models.ResumptionStatusApproved, history[0].Status)
	require.NotNil(t, history[0].ApprovedBy)
	require.Equal(t, admin.ID, *history[0].ApprovedBy)
}

func TestResumptionRejectsBadEnrollmentID(t *testing.T) {
	a := setupApp(t)
	admin := a.createUser(t, "proctor@college.test", models.RoleAdmin, 2)

	status, env := a.do(t, http.MethodGet, "/api/v1/resumption-request/zero", admin, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "invalid enrollment id", env.Message)
}
