package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/middleware"
)

// bind decodes and validates the request body into dst.  Failures come
// back as validation errors ready for writeError.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return booking.NewValidation(codeInvalidBody, "invalid request body")
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(dst); err != nil {
			return validationError(err)
		}
	}
	return nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func invalidID(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, errorBody{
		Error:   name + " must be a positive integer",
		Code:    codeInvalidID,
		Details: map[string]any{name: c.Param(name)},
	})
}

// identity returns the caller set by the JWT middleware.
func identity(c echo.Context) booking.Identity {
	return middleware.IdentityFrom(c)
}
