package middleware

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/gofiber/fiber/v3"
)

// ClientIDHeader identifies the calling client in audit records.
const ClientIDHeader = "X-Client-Id"

const (
	auditActionKey   = "audit_action"
	auditResourceKey = "audit_resource"
)

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(clientID, action, resource, resourceID, details, ip, userAgent string) error
}

// SetAuditAction overrides the action and resource id recorded for the
// current request. resourceID may point into request buffers and is copied.
func SetAuditAction(c fiber.Ctx, action, resourceID string) {
	c.Locals(auditActionKey, action)
	c.Locals(auditResourceKey, strings.Clone(resourceID))
}

// AuditMiddleware logs every request for compliance purposes.
func AuditMiddleware(writer AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Copy request data BEFORE handler execution (Fiber reuses its buffers)
		method := strings.Clone(c.Method())
		path := strings.Clone(c.Path())
		ip := strings.Clone(c.IP())
		userAgent := strings.Clone(c.Get("User-Agent"))
		clientID := strings.Clone(c.Get(ClientIDHeader, "anonymous"))

		err := c.Next()

		action := domain.AuditActionHTTPRequest
		resourceID := path
		if a, ok := c.Locals(auditActionKey).(string); ok && a != "" {
			action = a
			if r, ok := c.Locals(auditResourceKey).(string); ok {
				resourceID = r
			}
		}

		details := map[string]interface{}{
			"method":      method,
			"path":        path,
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		detailsJSON, _ := json.Marshal(details)

		// All values are copied, safe to use in the goroutine
		go func() {
			if writeErr := writer.WriteAudit(
				clientID,
				action,
				"api",
				resourceID,
				string(detailsJSON),
				ip,
				userAgent,
			); writeErr != nil {
				slog.Error("failed to write audit log", "error", writeErr)
			}
		}()

		return err
	}
}
