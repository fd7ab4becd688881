package booking

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/museum-booking/internal/model"
	"github.com/iliyamo/museum-booking/internal/utils"
)

// MinPasswordLength matches the self-service registration rule.
const MinPasswordLength = 8

// UserInput creates an account.  An empty role means visitor.
type UserInput struct {
	Email     string
	Password  string
	Role      string
	FirstName string
	LastName  string
	Phone     string
}

// UserUpdate edits an account.  Nil fields keep their stored value.
type UserUpdate struct {
	Email     *string
	Password  *string
	Role      *string
	IsActive  *bool
	FirstName *string
	LastName  *string
	Phone     *string
}

func validRole(r string) bool {
	switch r {
	case model.RoleVisitor, model.RoleGuide, model.RoleAdmin:
		return true
	}
	return false
}

func checkAccount(u model.UserAccount, verr *Error) {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		verr.WithDetail("email", "must be an email address")
	}
	if !validRole(u.Role) {
		verr.WithDetail("role", "must be visitor, guide or admin")
	}
}

func checkPassword(pw string, verr *Error) {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		verr.WithDetail("password", "must be at least 8 characters")
	}
}

// ListUsers returns every account with its profile, newest first.
func (a *AdminService) ListUsers(ctx context.Context, id Identity) ([]model.UserAccount, error) {
	return list(ctx, a, id, PermManageUsers, "list users", a.store.ListUsers)
}

func (a *AdminService) GetUser(ctx context.Context, id Identity, userID uint64) (model.UserAccount, error) {
	if err := Authorize(id, PermManageUsers); err != nil {
		return model.UserAccount{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.user(ctx, userID)
}

func (a *AdminService) user(ctx context.Context, userID uint64) (model.UserAccount, error) {
	u, err := a.store.UserByID(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return model.UserAccount{}, NewNotFound(CodeUserNotFound, "user not found").WithDetail("id", userID)
	}
	if err != nil {
		return model.UserAccount{}, a.internal("get user", err)
	}
	return u, nil
}

// CreateUser opens an account with any role, together with its visitor
// profile.
func (a *AdminService) CreateUser(ctx context.Context, id Identity, in UserInput) (model.UserAccount, error) {
	if err := Authorize(id, PermManageUsers); err != nil {
		return model.UserAccount{}, err
	}
	u := model.UserAccount{
		User: model.User{
			Email:    strings.ToLower(strings.TrimSpace(in.Email)),
			Role:     strings.ToLower(strings.TrimSpace(in.Role)),
			IsActive: true,
		},
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
	}
	if u.Role == "" {
		u.Role = model.RoleVisitor
	}
	verr := NewValidation(CodeValidation, "invalid user")
	checkAccount(u, verr)
	checkPassword(in.Password, verr)
	if len(verr.Details) > 0 {
		return model.UserAccount{}, verr
	}

	hash, err := utils.HashPassword(in.Password, a.bcryptCost)
	if err != nil {
		return model.UserAccount{}, a.internal("hash password", err)
	}
	u.PasswordHash = hash
	if err := a.save(ctx, "create user", func(ctx context.Context) error { return a.store.CreateUser(ctx, &u) }, nil); err != nil {
		return model.UserAccount{}, err
	}
	a.log.Info("user created", "user_id", u.ID, "role", u.Role, "by_user", id.UserID)
	return u, nil
}

// UpdateUser applies the non-nil fields of in.  Administrators cannot
// demote or deactivate their own account.
func (a *AdminService) UpdateUser(ctx context.Context, id Identity, userID uint64, in UserUpdate) (model.UserAccount, error) {
	if err := Authorize(id, PermManageUsers); err != nil {
		return model.UserAccount{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	u, err := a.user(ctx, userID)
	if err != nil {
		return model.UserAccount{}, err
	}
	before := u.Role
	if in.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Role != nil {
		u.Role = strings.ToLower(strings.TrimSpace(*in.Role))
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}

	verr := NewValidation(CodeValidation, "invalid user")
	checkAccount(u, verr)
	if in.Password != nil {
		checkPassword(*in.Password, verr)
	}
	if userID == id.UserID && (u.Role != before || !u.IsActive) {
		verr.WithDetail("id", "administrators cannot demote or deactivate themselves")
	}
	if len(verr.Details) > 0 {
		return model.UserAccount{}, verr
	}

	u.PasswordHash = ""
	if in.Password != nil {
		if u.PasswordHash, err = utils.HashPassword(*in.Password, a.bcryptCost); err != nil {
			return model.UserAccount{}, a.internal("hash password", err)
		}
	}
	err = a.save(ctx, "update user", func(ctx context.Context) error { return a.store.UpdateUser(ctx, u) },
		NewNotFound(CodeUserNotFound, "user not found").WithDetail("id", userID))
	if err != nil {
		return model.UserAccount{}, err
	}
	if u.Role != before {
		a.log.Info("user role changed", "user_id", userID, "from", before, "to", u.Role, "by_user", id.UserID)
	}
	u.PasswordHash = ""
	return u, nil
}

// DeleteUser removes an account and its profile.  It refuses for the
// caller's own account and while the visitor holds reservations.
func (a *AdminService) DeleteUser(ctx context.Context, id Identity, userID uint64) error {
	if err := Authorize(id, PermManageUsers); err != nil {
		return err
	}
	if userID == id.UserID {
		return NewValidation(CodeValidation, "administrators cannot delete their own account").WithDetail("id", userID)
	}
	return a.remove(ctx, id, "delete user", userID, a.store.DeleteUser,
		NewNotFound(CodeUserNotFound, "user not found").WithDetail("id", userID),
		NewConflict(CodeStillReferenced, "user has reservations"))
}
