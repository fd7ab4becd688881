package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/model"
	"github.com/iliyamo/museum-booking/internal/repository"
	"github.com/iliyamo/museum-booking/internal/utils"
)

// AccountStore is the part of repository.UserRepo the auth endpoints use.
type AccountStore interface {
	CreateWithVisitor(ctx context.Context, reg repository.Registration, cost int) (model.User, model.Visitor, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateProfile(ctx context.Context, userID uint64, u repository.ProfileUpdate) (model.Visitor, error)
}

// SessionStore is the part of repository.TokenRepo the auth endpoints use.
type SessionStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type VisitorStore interface {
	GetByUserID(ctx context.Context, userID uint64) (model.Visitor, error)
}

// AuthHandler bundles dependencies for auth and profile endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    AccountStore
	Tokens   SessionStore
	Visitors VisitorStore
	Log      *logger.Logger
}

func NewAuthHandler(cfg config.Config, u AccountStore, t SessionStore, v VisitorStore, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Visitors: v, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Phone     string `json:"phone_number" validate:"omitempty,max=32"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type profileReq struct {
	FirstName       *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName        *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email           *string `json:"email" validate:"omitempty,email,max=255"`
	Phone           *string `json:"phone_number" validate:"omitempty,max=32"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password" validate:"omitempty,min=8,max=72"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type visitorPart struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
}

type authResp struct {
	User    userPart     `json:"user"`
	Visitor *visitorPart `json:"visitor,omitempty"`
	Access  tokenPart    `json:"access"`
	Refresh tokenPart    `json:"refresh"`
}

func toVisitorPart(v model.Visitor) *visitorPart {
	return &visitorPart{ID: v.ID, FirstName: v.FirstName, LastName: v.LastName, Email: v.Email, Phone: v.Phone}
}

func (h *AuthHandler) timeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// issue creates an access token and stores a fresh refresh token.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (utils.AccessToken, utils.RefreshToken, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	return access, refresh, nil
}

func (h *AuthHandler) fail(c echo.Context, op string, err error) error {
	h.Log.Error("auth operation failed", "op", op, "error", err)
	return jsonError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}

// Register creates the account and its visitor profile and signs the
// caller in.  New accounts always get the visitor role.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	u, v, err := h.Users.CreateWithVisitor(ctx, repository.Registration{
		Email:     req.Email,
		Password:  req.Password,
		Role:      model.RoleVisitor,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return jsonError(c, http.StatusConflict, codeEmailExists, "email already exists")
	}
	if err != nil {
		return h.fail(c, "register", err)
	}

	access, refresh, err := h.issue(ctx, u)
	if err != nil {
		return h.fail(c, "issue tokens", err)
	}
	h.Log.Info("user registered", "user_id", u.ID, "visitor_id", v.ID)
	return c.JSON(http.StatusCreated, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Visitor: toVisitorPart(v),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Login verifies the password and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := h.timeout(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials")
	}
	if err != nil {
		return h.fail(c, "login", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return jsonError(c, http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials")
	}
	if !u.IsActive {
		return jsonError(c, http.StatusForbidden, codeAccountDisabled, "account is disabled")
	}

	access, refresh, err := h.issue(ctx, u)
	if err != nil {
		return h.fail(c, "issue tokens", err)
	}
	return c.JSON(http.StatusOK, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Refresh exchanges a live refresh token for a new pair.  The old token
// is revoked in the same transaction that stores the new one.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return jsonError(c, http.StatusBadRequest, codeInvalidBody, "refresh_token required")
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := h.timeout(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, oldHash)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusUnauthorized, codeInvalidRefresh, "invalid refresh token")
	}
	if err != nil {
		return h.fail(c, "validate refresh", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.IsActive) {
		return jsonError(c, http.StatusUnauthorized, codeInvalidRefresh, "invalid refresh token")
	}
	if err != nil {
		return h.fail(c, "load user", err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return h.fail(c, "issue access", err)
	}
	next, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return h.fail(c, "issue refresh", err)
	}
	err = h.Tokens.Rotate(ctx, u.ID, oldHash, utils.HashRefreshRaw(next.Raw), next.Exp)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusUnauthorized, codeInvalidRefresh, "invalid refresh token")
	}
	if err != nil {
		return h.fail(c, "rotate refresh", err)
	}

	return c.JSON(http.StatusOK, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: next.Raw, Expires: next.Exp},
	})
}

// Logout revokes the refresh token in the body, or every refresh token of
// the authenticated caller when no body token is sent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)
	id := identity(c)

	ctx, cancel := h.timeout(c)
	defer cancel()

	switch {
	case raw != "":
		hash := utils.HashRefreshRaw(raw)
		userID, err := h.Tokens.ValidateRefresh(ctx, hash)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && id.UserID != 0 && userID != id.UserID) {
			return jsonError(c, http.StatusUnauthorized, codeInvalidRefresh, "invalid refresh token")
		}
		if err != nil {
			return h.fail(c, "validate refresh", err)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return h.fail(c, "revoke refresh", err)
		}
	case id.UserID != 0:
		if err := h.Tokens.RevokeAllForUser(ctx, id.UserID); err != nil {
			return h.fail(c, "revoke all", err)
		}
	default:
		return jsonError(c, http.StatusBadRequest, codeInvalidBody, "provide Authorization header or refresh_token")
	}
	return c.NoContent(http.StatusNoContent)
}

type meResp struct {
	User    userPart     `json:"user"`
	Visitor *visitorPart `json:"visitor,omitempty"`
	IsAdmin bool         `json:"is_admin"`
	IsGuide bool         `json:"is_guide"`
}

// Me returns the caller's account and visitor profile.
func (h *AuthHandler) Me(c echo.Context) error {
	id := identity(c)
	ctx, cancel := h.timeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, codeNotFound, "user not found")
	}
	if err != nil {
		return h.fail(c, "load user", err)
	}
	resp := meResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		IsAdmin: u.Role == model.RoleAdmin,
		IsGuide: u.Role == model.RoleGuide,
	}
	v, err := h.Visitors.GetByUserID(ctx, u.ID)
	switch {
	case err == nil:
		resp.Visitor = toVisitorPart(v)
	case !errors.Is(err, repository.ErrNotFound):
		return h.fail(c, "load visitor", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateMe edits the caller's profile.  Changing the email or the
// password requires the current password.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	id := identity(c)
	ctx, cancel := h.timeout(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, codeNotFound, "user not found")
	}
	if err != nil {
		return h.fail(c, "load user", err)
	}

	upd := repository.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	emailChanged := req.Email != nil && !strings.EqualFold(strings.TrimSpace(*req.Email), u.Email)
	if emailChanged || req.NewPassword != "" {
		if req.CurrentPassword == "" || !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
			return jsonError(c, http.StatusBadRequest, codeInvalidPassword, "current password is incorrect")
		}
	}
	if emailChanged {
		upd.Email = req.Email
	}
	if req.NewPassword != "" {
		hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
		if err != nil {
			return h.fail(c, "hash password", err)
		}
		upd.PasswordHash = &hash
	}

	v, err := h.Users.UpdateProfile(ctx, u.ID, upd)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return jsonError(c, http.StatusConflict, codeEmailExists, "email already exists")
	case errors.Is(err, repository.ErrNotFound):
		return jsonError(c, http.StatusNotFound, codeNotFound, "visitor profile not found")
	case err != nil:
		return h.fail(c, "update profile", err)
	}
	if emailChanged {
		u.Email = v.Email
	}
	return c.JSON(http.StatusOK, meResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Visitor: toVisitorPart(v),
		IsAdmin: u.Role == model.RoleAdmin,
		IsGuide: u.Role == model.RoleGuide,
	})
}
