package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/museum-booking/internal/handler"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/metrics"
	"github.com/iliyamo/museum-booking/internal/middleware"
	"github.com/iliyamo/museum-booking/internal/tracing"
)

// Setup installs the middleware every request passes through: panic
// recovery, request ids, tracing, metrics and the access log.
func Setup(e *echo.Echo, log *logger.Logger) {
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(tracing.Middleware())
	e.Use(metrics.Middleware())
	e.Use(middleware.AccessLog(log))
}

// RegisterRoutes registers the health checks and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the session endpoints under /v1/auth and the
// profile endpoints under /v1/me.  limit guards the credential endpoints.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout works with a refresh token alone; a bearer token, when
	// present, lets the caller revoke every session at once.
	g.POST("/logout", a.Logout, middleware.OptionalJWTAuth(jwtSecret))

	me := e.Group("/v1/me", middleware.JWTAuth(jwtSecret))
	me.GET("", a.Me)
	me.PUT("", a.UpdateMe)
}

// RegisterPublic registers the unauthenticated catalog.  List and detail
// responses go through the response cache; availability is cached per
// slot by the booking service instead.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, cache *middleware.ResponseCache, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", limit)
	cached := cache.Middleware()

	g.GET("/tours", p.ListTours, cached)
	g.GET("/tours/:id", p.GetTour, cached)
	g.GET("/exhibitions", p.ListExhibitions, cached)
	g.GET("/masterclasses", p.ListMasterclasses, cached)
	g.GET("/guides", p.ListGuides, cached)
	g.GET("/collections", p.ListCollections, cached)
	g.GET("/collections/:id/exhibits", p.ListExhibits, cached)

	g.GET("/audio-guides/available", p.AvailableAudioGuides)
	g.GET("/catalog/:kind/:id/availability", p.Availability)
}
