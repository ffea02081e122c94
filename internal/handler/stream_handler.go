package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/go-kb-answers/internal/stream"
	"github.com/gofiber/fiber/v3"
)

const defaultHeartbeat = 15 * time.Second

// StreamHandler serves answer tokens as Server-Sent Events.
type StreamHandler struct {
	router    *stream.Router
	heartbeat time.Duration
}

// NewStreamHandler creates a new SSE stream handler. A zero heartbeat uses 15s.
func NewStreamHandler(router *stream.Router, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{router: router, heartbeat: heartbeat}
}

// Register sets up streaming routes.
func (h *StreamHandler) Register(router fiber.Router) {
	router.Get("/answers/:reference/stream", h.Stream)
}

// Stream relays the events of one reference until its terminal event.
// Leaving early cancels the answer that is still being generated.
func (h *StreamHandler) Stream(c fiber.Ctx) error {
	reference := c.Params("reference")
	sub, err := h.router.Subscribe(reference)
	if err != nil {
		return fail(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer sub.Close()

		for {
			ctx, cancel := context.WithTimeout(context.Background(), h.heartbeat)
			event, err := sub.Next(ctx)
			cancel()

			if errors.Is(err, context.DeadlineExceeded) {
				fmt.Fprint(w, ": keep-alive\n\n")
				if err := w.Flush(); err != nil {
					slog.Debug("SSE client gone", "reference", reference)
					return
				}
				continue
			}
			if err != nil {
				return
			}

			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, string(data))
			if err := w.Flush(); err != nil {
				slog.Debug("SSE client gone", "reference", reference)
				return
			}
			if event.Terminal() {
				return
			}
		}
	})
}
