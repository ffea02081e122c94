package handler

import "github.com/gofiber/fiber/v3"

// HealthHandler reports liveness.
type HealthHandler struct {
	appName string
	backend string
	streams func() int
}

// NewHealthHandler creates a health handler. streams reports the number of
// tracked answer streams and may be nil.
func NewHealthHandler(appName, backend string, streams func() int) *HealthHandler {
	return &HealthHandler{appName: appName, backend: backend, streams: streams}
}

// Register sets up the health route.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health returns service status.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	body := fiber.Map{
		"status":         "healthy",
		"app":            h.appName,
		"version":        "1.0.0",
		"vector_backend": h.backend,
	}
	if h.streams != nil {
		body["active_streams"] = h.streams()
	}
	return c.JSON(body)
}
