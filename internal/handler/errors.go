package handler

import (
	"errors"

	"github.com/arturoeanton/go-kb-answers/internal/port"
	"github.com/gofiber/fiber/v3"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrInvalidRequest),
		errors.Is(err, port.ErrUnknownWisdomLevel),
		errors.Is(err, port.ErrUnknownLocale),
		errors.Is(err, port.ErrEmptyResource):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrReferenceInUse):
		return fiber.StatusConflict
	case errors.Is(err, port.ErrUnsupportedFormat):
		return fiber.StatusUnsupportedMediaType
	}
	return fiber.StatusInternalServerError
}

func fail(c fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
