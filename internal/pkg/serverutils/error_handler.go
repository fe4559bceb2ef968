package serverutils

import (
	"errors"

	"ai-taskchat-be/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrorHandlerMiddleware converts errors escaping the handlers into the
// {code, message} envelope. Unknown errors get a request id so the log line
// can be correlated with the client report.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var apiErr *ApiError
		if errors.As(err, &apiErr) {
			return ctx.Status(apiErr.Status).JSON(ErrorResponse(apiErr.Code, apiErr.Message))
		}

		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) {
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse("VALIDATION_ERROR", valErrs.Error()))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse("REQUEST_ERROR", fiberErr.Message))
		}

		requestId := uuid.NewString()
		log.Error("http", "unhandled error", map[string]interface{}{
			"request_id": requestId,
			"path":       ctx.Path(),
			"method":     ctx.Method(),
			"error":      err.Error(),
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":       "INTERNAL_ERROR",
			"message":    "Internal server error",
			"request_id": requestId,
		})
	}
}
