package utils

import "github.com/gofiber/fiber/v2"

// Envelope status values.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// APIResponse describes the common structure for API responses.
type APIResponse struct {
	Status       string      `json:"status"`
	ResponseCode string      `json:"responseCode"`
	Message      string      `json:"message,omitempty"`
	Payload      interface{} `json:"payload,omitempty"`
}

// SendSuccess sends a 200 response tagged with the given response code.
func SendSuccess(c *fiber.Ctx, code, message string, payload interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, code, message, payload)
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, code, message string, payload interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	if code == "" {
		code = "SUCCESS"
	}

	return c.Status(status).JSON(APIResponse{
		Status:       StatusSuccess,
		ResponseCode: code,
		Message:      message,
		Payload:      payload,
	})
}

// SendError sends a failure envelope with the given status and response code.
func SendError(c *fiber.Ctx, status int, code, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(APIResponse{
		Status:       StatusFailure,
		ResponseCode: code,
		Message:      message,
	})
}
