package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/booking"
)

// Context keys set by JWTAuth.
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxIdentity = "identity"
)

// JWTAuth validates a Bearer access token signed with secret and stores
// the caller's id, role and booking.Identity in the echo context.  Only
// HS256 tokens are accepted.  Authorization is left to the booking
// service.
func JWTAuth(secret string) echo.MiddlewareFunc {
	parser := newParser()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			id, msg := authenticate(parser, secret, auth)
			if msg != "" {
				return unauthorized(c, msg)
			}
			setIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalJWTAuth stores the identity when a valid bearer token is
// present and lets every request through.  Logout uses it so a refresh
// token alone is enough to end a session.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	parser := newParser()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.HasPrefix(auth, "Bearer ") {
				if id, msg := authenticate(parser, secret, auth); msg == "" {
					setIdentity(c, id)
				}
			}
			return next(c)
		}
	}
}

func newParser() *jwt.Parser {
	return jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
}

// authenticate returns the identity in the bearer header, or a non-empty
// message describing why it was rejected.
func authenticate(parser *jwt.Parser, secret, header string) (booking.Identity, string) {
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	tok, err := parser.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return booking.Identity{}, "invalid token"
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return booking.Identity{}, "invalid claims"
	}
	uid, ok := subject(claims)
	if !ok {
		return booking.Identity{}, "invalid subject"
	}
	role, _ := claims["role"].(string)
	return booking.Identity{UserID: uid, Role: role}, ""
}

func setIdentity(c echo.Context, id booking.Identity) {
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxRole, id.Role)
	c.Set(CtxIdentity, id)
}

// subject reads the numeric "sub" claim.  JSON numbers decode as float64.
func subject(claims jwt.MapClaims) (uint64, bool) {
	switch v := claims["sub"].(type) {
	case float64:
		if v < 1 || v != float64(uint64(v)) {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": "UNAUTHENTICATED"})
}
