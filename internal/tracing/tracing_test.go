package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestParseOTLPEndpoint(t *testing.T) {
	cases := map[string]string{
		"collector:4318":             "collector:4318",
		"http://collector":           "collector:4318",
		"https://otel.example:55681": "otel.example:55681",
		"  ":                         "",
	}
	for in, want := range cases {
		got, err := parseOTLPEndpoint(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestInitWithoutEndpointIsDisabled(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	assert.Nil(t, Init("museum-booking"))
}

func TestMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/v1/tours/:id", func(c echo.Context) error { return c.String(http.StatusOK, c.Param("id")) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tours/5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Body.String())
}
