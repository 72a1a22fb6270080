package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-exam-api/internal/utils"
)

func TestSendSuccessWrapsPayload(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "EXAM_CREATED", "exam created", map[string]string{"title": "Algebra"})
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Status       string            `json:"status"`
		ResponseCode string            `json:"responseCode"`
		Message      string            `json:"message"`
		Payload      map[string]string `json:"payload"`
	}
	decode(t, resp, &payload)

	require.Equal(t, utils.StatusSuccess, payload.Status)
	require.Equal(t, "EXAM_CREATED", payload.ResponseCode)
	require.Equal(t, "Algebra", payload.Payload["title"])
}

func TestSendErrorOmitsPayload(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusNotFound, "NOT_FOUND", "Exam not found")
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var payload map[string]interface{}
	decode(t, resp, &payload)

	require.Equal(t, utils.StatusFailure, payload["status"])
	require.Equal(t, "NOT_FOUND", payload["responseCode"])
	require.Equal(t, "Exam not found", payload["message"])
	_, hasPayload := payload["payload"]
	require.False(t, hasPayload)
}

func performRequest(t *testing.T, app *fiber.App, method, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
