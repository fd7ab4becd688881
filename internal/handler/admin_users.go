package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/booking"
)

type createUserReq struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Role      string `json:"role" validate:"omitempty,oneof=visitor guide admin"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone_number" validate:"max=32"`
}

// updateUserReq leaves absent fields untouched.
type updateUserReq struct {
	Email     *string `json:"email" validate:"omitempty,email,max=255"`
	Password  *string `json:"password" validate:"omitempty,min=8,max=72"`
	Role      *string `json:"role" validate:"omitempty,oneof=visitor guide admin"`
	IsActive  *bool   `json:"is_active"`
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone_number" validate:"omitempty,max=32"`
}

// ListUsers: GET /v1/admin/users
func (h *AdminHandler) ListUsers(c echo.Context) error {
	list, err := h.Svc.ListUsers(c.Request().Context(), identity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toUserView)})
}

// GetUser: GET /v1/admin/users/:id
func (h *AdminHandler) GetUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	u, err := h.Svc.GetUser(c.Request().Context(), identity(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserView(u))
}

// CreateUser: POST /v1/admin/users
// Opens an account with any role; registration only ever creates visitors.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	u, err := h.Svc.CreateUser(c.Request().Context(), identity(c), booking.UserInput{
		Email: req.Email, Password: req.Password, Role: req.Role,
		FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toUserView(u))
}

// UpdateUser: PATCH /v1/admin/users/:id
// Role changes take effect when the user's current access token expires.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	u, err := h.Svc.UpdateUser(c.Request().Context(), identity(c), id, booking.UserUpdate{
		Email: req.Email, Password: req.Password, Role: req.Role, IsActive: req.IsActive,
		FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toUserView(u))
}

// DeleteUser: DELETE /v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	if err := h.Svc.DeleteUser(c.Request().Context(), identity(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
