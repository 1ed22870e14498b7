package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// failInternal logs err against the request and answers with an opaque 500.
// Deadline errors are returned as-is so the timeout middleware answers 408.
func failInternal(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	LoggerFromCtx(c.UserContext()).Error(msg, "error", err)
	return errInternal(c, msg)
}

// ErrorHandler renders errors that escape handlers (fiber errors, timeouts,
// panics recovered upstream) in the APIError envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "internal_error"
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		msg = fe.Message
		switch status {
		case fiber.StatusNotFound:
			code = "not_found"
		case fiber.StatusRequestTimeout:
			code = "timeout"
		case fiber.StatusTooManyRequests:
			code = "rate_limited"
		case fiber.StatusUpgradeRequired:
			code = "upgrade_required"
		default:
			if status < 500 {
				code = "bad_request"
			}
		}
	}
	return newError(c, status, code, msg)
}
