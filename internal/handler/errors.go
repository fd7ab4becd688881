package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/booking"
)

// Codes produced by the HTTP layer itself.
const (
	codeInvalidBody        = "INVALID_BODY"
	codeInvalidID          = "INVALID_ID"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeInvalidPassword    = "INVALID_PASSWORD"
	codeAccountDisabled    = "ACCOUNT_DISABLED"
	codeEmailExists        = "EMAIL_EXISTS"
	codeInvalidRefresh     = "INVALID_REFRESH"
	codeUnauthenticated    = "UNAUTHENTICATED"
	codeNotFound           = "NOT_FOUND"
)

var kindStatus = map[booking.ErrorKind]int{
	booking.KindValidation:    http.StatusBadRequest,
	booking.KindNotFound:      http.StatusNotFound,
	booking.KindConflict:      http.StatusConflict,
	booking.KindAuthorization: http.StatusForbidden,
	booking.KindInternal:      http.StatusInternalServerError,
}

type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// writeError renders err as {"error","code","details"}.  Anything that is
// not a *booking.Error is reported as a generic internal error; its cause
// never reaches the client.
func writeError(c echo.Context, err error) error {
	be := booking.AsError(err)
	status, ok := kindStatus[be.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if be.Code == booking.CodeTimeout {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, errorBody{Error: be.Message, Code: be.Code, Details: be.Details})
}

func jsonError(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, errorBody{Error: msg, Code: code})
}

// validationError turns validator failures into a booking validation
// error with one detail per offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return booking.NewValidation(booking.CodeValidation, "invalid request")
	}
	be := booking.NewValidation(booking.CodeValidation, "invalid request")
	for _, fe := range verrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		be.WithDetail(fe.Field(), msg)
	}
	return be
}
