package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/logger"
)

func TestAccessLogWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/bookings")
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")

	h := AccessLog(log)(func(c echo.Context) error {
		c.Set(CtxIdentity, booking.Identity{UserID: 5, Role: "visitor"})
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "http", line["msg"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/v1/bookings", line["path"])
	assert.Equal(t, float64(200), line["status"])
	assert.Equal(t, "req-1", line["req_id"])
	assert.Equal(t, float64(5), line["user_id"])
}
