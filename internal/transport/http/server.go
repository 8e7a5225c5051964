package http

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"llm-tutor/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// NewServer returns an echo server with the standard middleware and the
// handler's routes registered.
func NewServer(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(Correlation())

	h.RegisterRoutes(e)
	return e
}

// Correlation propagates X-Correlation-Id, generating one when the caller
// sent none, and attaches it to the request context.
func Correlation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(correlationHeader))
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(correlationHeader, id)
			req := c.Request()
			c.SetRequest(req.WithContext(usecase.WithCorrelationID(req.Context(), id)))
			return next(c)
		}
	}
}
