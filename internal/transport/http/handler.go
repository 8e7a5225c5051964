// Package http exposes the tutor service over a standalone echo server.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"llm-tutor/internal/domain"
	"llm-tutor/internal/usecase"
)

// TutorService is the part of usecase.Service the routes depend on.
type TutorService interface {
	Initialize(ctx context.Context) domain.Outcome
	Chat(ctx context.Context, text string) (domain.Outcome, error)
	Reset(ctx context.Context) (json.RawMessage, error)
}

// Handler handles HTTP requests.
type Handler struct {
	svc    TutorService
	logger *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(svc TutorService, logger *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("http: service must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}, nil
}

// RegisterRoutes registers the tutor routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/initialization", h.Initialization)
	e.POST("/api/chat", h.Chat)
	e.POST("/api/reset", h.Reset)

	e.GET("/health", h.Health)
}

// Initialization runs the initialization script.
func (h *Handler) Initialization(c echo.Context) error {
	return h.writeOutcome(c, h.svc.Initialize(c.Request().Context()))
}

// Chat forwards the message content to the chat script.
func (h *Handler) Chat(c echo.Context) error {
	var in usecase.ChatRequest
	if err := c.Bind(&in); err != nil {
		return h.writeError(c, usecase.NewError(usecase.ErrorInvalidInput, "invalid_body", err))
	}
	out, err := h.svc.Chat(c.Request().Context(), in.Content())
	if err != nil {
		return h.writeError(c, err)
	}
	return h.writeOutcome(c, out)
}

// Reset proxies the reset request to the router.
func (h *Handler) Reset(c echo.Context) error {
	reply, err := h.svc.Reset(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSONBlob(http.StatusOK, reply)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *Handler) writeOutcome(c echo.Context, o domain.Outcome) error {
	body, err := o.Body()
	if err != nil {
		return h.writeError(c, usecase.NewError(usecase.ErrorInternal, "render_failed", err))
	}
	return c.JSONBlob(o.StatusCode(), body)
}

func (h *Handler) writeError(c echo.Context, err error) error {
	status, ue := usecase.Classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"code", ue.Code,
			"reason", ue.Reason,
			"err", err,
			"correlation_id", usecase.CorrelationID(c.Request().Context()),
		)
	}
	return c.JSON(status, ue.Body())
}
