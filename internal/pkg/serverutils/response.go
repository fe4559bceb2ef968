package serverutils

import "github.com/gofiber/fiber/v2"

// ApiError is an error the controller layer can return to have the central
// error handler translate it into the {code, message} envelope.
type ApiError struct {
	Status  int
	Code    string
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(status int, code, message string) *ApiError {
	return &ApiError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func SuccessResponse(message string, data interface{}) fiber.Map {
	return fiber.Map{
		"message": message,
		"data":    data,
	}
}

func ErrorResponse(code, message string) fiber.Map {
	return fiber.Map{
		"code":    code,
		"message": message,
	}
}
