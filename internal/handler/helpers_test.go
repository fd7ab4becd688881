package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/handler"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/middleware"
	"github.com/iliyamo/museum-booking/internal/model"
	"github.com/iliyamo/museum-booking/internal/repository/memstore"
	"github.com/iliyamo/museum-booking/internal/utils"
)

const secret = "handler-test-secret"

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func bookingConfig() config.BookingConfig {
	return config.BookingConfig{
		AudioGuideFeeCents:    2000,
		GuideFeeCents:         5000,
		DefaultBasePriceCents: 5000,
		MinChargeLevel:        20,
		RentalWindow:          24 * time.Hour,
		StoreTimeout:          time.Second,
	}
}

func cents(v int64) *int64 { return &v }

// bearer signs an access token the JWT middleware will accept.
func bearer(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	return e
}

// app wires the booking and admin handlers over an in-memory store.
type app struct {
	e       *echo.Echo
	store   *memstore.Store
	svc     *booking.Service
	visitor model.Visitor
	tour    model.Tour
	slot    time.Time
	purges  int
}

func newApp(t *testing.T) *app {
	t.Helper()
	st := memstore.New()
	a := &app{store: st}
	a.visitor = st.AddVisitor(model.Visitor{UserID: 100, FirstName: "Ada", Email: "ada@example.com"})
	a.tour = st.AddTour(model.Tour{
		Name:        "Impressionists",
		TourDate:    testNow.AddDate(0, 0, 7),
		MaxVisitors: 20,
		PriceCents:  cents(5000),
		Status:      model.TourScheduled,
	})
	a.slot = a.tour.TourDate.Add(2 * time.Hour)
	a.svc = booking.NewService(st, bookingConfig(), logger.Nop(), booking.WithClock(func() time.Time { return testNow }))
	admin := booking.NewAdminService(st, bookingConfig(), logger.Nop(),
		booking.WithBcryptCost(4), booking.WithAdminClock(func() time.Time { return testNow }))

	e := newEcho()
	bh := handler.NewBookingHandler(a.svc)
	ah := handler.NewAdminHandler(admin, countingPurger{&a.purges}, logger.Nop())
	ch := handler.NewCatalogHandler(nil, a.svc, 20, logger.Nop())

	e.GET("/v1/catalog/:kind/:id/availability", ch.Availability)
	v1 := e.Group("/v1", middleware.JWTAuth(secret))
	v1.POST("/bookings/tours", bh.BookTour)
	v1.POST("/bookings/exhibitions", bh.BookExhibition)
	v1.POST("/bookings/masterclasses", bh.BookMasterclass)
	v1.GET("/bookings", bh.ListMine)
	v1.GET("/bookings/:kind/:id", bh.Get)
	v1.DELETE("/bookings/:kind/:id", bh.Cancel)
	v1.POST("/bookings/cancel/:id", bh.CancelAnyKind)
	v1.GET("/admin/tours", ah.ListTours)
	v1.POST("/admin/tours", ah.CreateTour)
	v1.PUT("/admin/tours/:id", ah.UpdateTour)
	v1.DELETE("/admin/tours/:id", ah.DeleteTour)
	v1.GET("/admin/exhibitions", ah.ListExhibitions)
	v1.DELETE("/admin/exhibitions/:id", ah.DeleteExhibition)
	v1.GET("/admin/masterclasses", ah.ListMasterclasses)
	v1.DELETE("/admin/masterclasses/:id", ah.DeleteMasterclass)
	v1.GET("/admin/guides", ah.ListGuides)
	v1.POST("/admin/guides", ah.CreateGuide)
	v1.PUT("/admin/guides/:id", ah.UpdateGuide)
	v1.DELETE("/admin/guides/:id", ah.DeleteGuide)
	v1.GET("/admin/collections", ah.ListCollections)
	v1.POST("/admin/collections", ah.CreateCollection)
	v1.PUT("/admin/collections/:id", ah.UpdateCollection)
	v1.DELETE("/admin/collections/:id", ah.DeleteCollection)
	v1.GET("/admin/exhibits", ah.ListExhibits)
	v1.POST("/admin/exhibits", ah.CreateExhibit)
	v1.PUT("/admin/exhibits/:id", ah.UpdateExhibit)
	v1.DELETE("/admin/exhibits/:id", ah.DeleteExhibit)
	v1.GET("/admin/users", ah.ListUsers)
	v1.POST("/admin/users", ah.CreateUser)
	v1.GET("/admin/users/:id", ah.GetUser)
	v1.PATCH("/admin/users/:id", ah.UpdateUser)
	v1.DELETE("/admin/users/:id", ah.DeleteUser)
	v1.GET("/admin/audio-guides", ah.ListAudioGuides)
	v1.PUT("/admin/audio-guides/:id/status", ah.SetAudioGuideStatus)
	a.e = e
	return a
}

type countingPurger struct{ n *int }

func (p countingPurger) Purge(_ context.Context) error {
	*p.n++
	return nil
}

func do(t *testing.T, e *echo.Echo, method, target, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, target, r)
	if r != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	code, _ := decode(t, rec)["code"].(string)
	return code
}
