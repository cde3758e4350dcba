package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ErrorHandler is the centralized Fiber error handler. Invalid input maps to
// 400 and upstream failures to 502.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		code, msg := statusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": msg,
		})
	}
}

func statusFor(err error) (int, string) {
	var (
		fe  *fiber.Error
		ve  validator.ValidationErrors
		fte *weather.FetchError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.As(err, &ve),
		errors.Is(err, weather.ErrInvalidCoordinates),
		errors.Is(err, weather.ErrInvalidUnits):
		return fiber.StatusBadRequest, err.Error()
	case errors.As(err, &fte):
		return fiber.StatusBadGateway, fte.Error()
	default:
		return fiber.StatusInternalServerError, err.Error()
	}
}

func badRequest(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}
