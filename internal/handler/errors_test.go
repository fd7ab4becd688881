package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/museum-booking/internal/booking"
)

func render(t *testing.T, err error) (int, errorBody) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, err))
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestWriteErrorStatusByKind(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{booking.NewValidation(booking.CodeInvalidHeadcount, "bad"), http.StatusBadRequest, booking.CodeInvalidHeadcount},
		{booking.NewNotFound(booking.CodeItemNotFound, "gone"), http.StatusNotFound, booking.CodeItemNotFound},
		{booking.NewConflict(booking.CodePoolExhausted, "none left"), http.StatusConflict, booking.CodePoolExhausted},
		{booking.NewForbidden("no"), http.StatusForbidden, booking.CodeForbidden},
		{fmt.Errorf("wrapped: %w", booking.NewConflict(booking.CodeDuplicateBooking, "dup")), http.StatusConflict, booking.CodeDuplicateBooking},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, booking.CodeTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			status, body := render(t, tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	status, body := render(t, errors.New("Error 1213: Deadlock found when trying to get lock"))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, booking.CodeInternal, body.Code)
	assert.Equal(t, "internal error", body.Error)
	assert.Empty(t, body.Details)
}

func TestWriteErrorKeepsDetails(t *testing.T) {
	err := booking.NewConflict(booking.CodeCapacityExceeded, "full").WithDetail("remaining", 2)
	_, body := render(t, err)
	assert.Equal(t, float64(2), body.Details["remaining"])
}

func TestValidationErrorUsesJSONNames(t *testing.T) {
	type payload struct {
		TourID uint64 `json:"tour_id" validate:"required"`
		Name   string `json:"tour_name" validate:"max=3"`
	}
	err := NewValidator().Validate(payload{Name: "too long"})
	require.Error(t, err)

	be := booking.AsError(validationError(err))
	assert.Equal(t, booking.KindValidation, be.Kind)
	assert.Equal(t, booking.CodeValidation, be.Code)
	assert.Equal(t, "required", be.Details["tour_id"])
	assert.Equal(t, "max=3", be.Details["tour_name"])
}
