package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/handler"
	"github.com/iliyamo/museum-booking/internal/middleware"
)

// RegisterBookings registers the booking endpoints under /v1/bookings.
// Every route needs a valid JWT; what a role may do is decided by the
// booking service.  limit is the stricter bucket for booking writes.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings", middleware.JWTAuth(jwtSecret))

	g.POST("/tours", h.BookTour, limit)
	g.POST("/exhibitions", h.BookExhibition, limit)
	g.POST("/masterclasses", h.BookMasterclass, limit)

	g.GET("", h.ListMine)
	g.GET("/:kind/:id", h.Get)
	g.DELETE("/:kind/:id", h.Cancel, limit)
	// Older clients cancel by id alone.
	g.POST("/cancel/:id", h.CancelAnyKind, limit)
}
