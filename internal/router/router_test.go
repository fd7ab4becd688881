package router_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/handler"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/middleware"
	"github.com/iliyamo/museum-booking/internal/router"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newServer(db handler.Pinger) *echo.Echo {
	e := echo.New()
	log := logger.Nop()
	router.Setup(e, log)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(config.Config{}, nil, nil, nil, log), "secret", passThrough)
	router.RegisterPublic(e, handler.NewCatalogHandler(nil, nil, 20, log), middleware.NewResponseCache(config.CacheConfig{}, nil, log), passThrough)
	router.RegisterBookings(e, handler.NewBookingHandler(nil), "secret", passThrough)
	router.RegisterAdmin(e, handler.NewAdminHandler(nil, nil, log), "secret")
	return e
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	e := newServer(pinger{})
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/readyz").Code)

	rec := serve(e, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	down := newServer(pinger{err: errors.New("connection refused")})
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, http.MethodGet, "/readyz").Code)
}

func TestRequestIDIsSet(t *testing.T) {
	rec := serve(newServer(pinger{}), http.MethodGet, "/healthz")
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestRouteTable(t *testing.T) {
	e := newServer(pinger{})
	registered := map[string]bool{}
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /v1/auth/register",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh",
		"POST /v1/auth/logout",
		"GET /v1/me",
		"PUT /v1/me",
		"GET /v1/tours",
		"GET /v1/tours/:id",
		"GET /v1/exhibitions",
		"GET /v1/masterclasses",
		"GET /v1/guides",
		"GET /v1/collections",
		"GET /v1/collections/:id/exhibits",
		"GET /v1/audio-guides/available",
		"GET /v1/catalog/:kind/:id/availability",
		"POST /v1/bookings/tours",
		"POST /v1/bookings/exhibitions",
		"POST /v1/bookings/masterclasses",
		"GET /v1/bookings",
		"GET /v1/bookings/:kind/:id",
		"DELETE /v1/bookings/:kind/:id",
		"POST /v1/bookings/cancel/:id",
		"GET /v1/admin/tours",
		"POST /v1/admin/tours",
		"PUT /v1/admin/tours/:id",
		"DELETE /v1/admin/tours/:id",
		"GET /v1/admin/exhibitions",
		"DELETE /v1/admin/exhibitions/:id",
		"GET /v1/admin/masterclasses",
		"DELETE /v1/admin/masterclasses/:id",
		"GET /v1/admin/guides",
		"POST /v1/admin/guides",
		"PUT /v1/admin/guides/:id",
		"DELETE /v1/admin/guides/:id",
		"GET /v1/admin/collections",
		"POST /v1/admin/collections",
		"PUT /v1/admin/collections/:id",
		"DELETE /v1/admin/collections/:id",
		"GET /v1/admin/exhibits",
		"POST /v1/admin/exhibits",
		"PUT /v1/admin/exhibits/:id",
		"DELETE /v1/admin/exhibits/:id",
		"GET /v1/admin/users",
		"POST /v1/admin/users",
		"GET /v1/admin/users/:id",
		"PATCH /v1/admin/users/:id",
		"DELETE /v1/admin/users/:id",
		"GET /v1/admin/audio-guides",
		"PUT /v1/admin/audio-guides/:id/status",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

// Tours are replaced with PUT only.  Users are the one admin resource
// edited with PATCH.
func TestPatchRoutes(t *testing.T) {
	e := newServer(pinger{})
	var patched []string
	for _, r := range e.Routes() {
		if r.Method == http.MethodPatch {
			patched = append(patched, r.Path)
		}
	}
	assert.Equal(t, []string{"/v1/admin/users/:id"}, patched)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newServer(pinger{})
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/v1/me"},
		{http.MethodGet, "/v1/bookings"},
		{http.MethodPost, "/v1/bookings/tours"},
		{http.MethodDelete, "/v1/bookings/tour/1"},
		{http.MethodPost, "/v1/admin/tours"},
		{http.MethodGet, "/v1/admin/audio-guides"},
		{http.MethodGet, "/v1/admin/users"},
		{http.MethodPatch, "/v1/admin/users/1"},
		{http.MethodDelete, "/v1/admin/guides/1"},
		{http.MethodPost, "/v1/admin/exhibits"},
	} {
		rec := serve(e, tc.method, tc.target)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.method+" "+tc.target)
	}
}
