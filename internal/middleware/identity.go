package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/booking"
)

// IdentityFrom returns the identity stored by JWTAuth, or the zero
// Identity for anonymous requests.
func IdentityFrom(c echo.Context) booking.Identity {
	if id, ok := c.Get(CtxIdentity).(booking.Identity); ok {
		return id
	}
	return booking.Identity{}
}

// userKey identifies the caller for rate limiting; "anon" when no token
// was validated on this route.
func userKey(c echo.Context) string {
	if id := IdentityFrom(c); id.UserID != 0 {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
