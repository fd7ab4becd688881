package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/museum-booking/internal/model"
	"github.com/iliyamo/museum-booking/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,role,is_active,created_at,updated_at"

// Registration is the data needed to open an account.
type Registration struct {
	Email     string
	Password  string
	Role      string
	FirstName string
	LastName  string
	Phone     string
}

// CreateWithVisitor inserts the user and its visitor profile in one
// transaction.  The password is hashed with the given bcrypt cost.
func (r *UserRepo) CreateWithVisitor(ctx context.Context, reg Registration, cost int) (model.User, model.Visitor, error) {
	email := normalizeEmail(reg.Email)
	hash, err := utils.HashPassword(reg.Password, cost)
	if err != nil {
		return model.User{}, model.Visitor{}, err
	}
	role := reg.Role
	if role == "" {
		role = model.RoleVisitor
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, model.Visitor{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, model.Visitor{}, ErrEmailExists
		}
		return model.User{}, model.Visitor{}, err
	}
	userID, err := res.LastInsertId()
	if err != nil {
		return model.User{}, model.Visitor{}, err
	}

	v := model.Visitor{
		UserID:    uint64(userID),
		FirstName: strings.TrimSpace(reg.FirstName),
		LastName:  strings.TrimSpace(reg.LastName),
		Email:     email,
		Phone:     strings.TrimSpace(reg.Phone),
	}
	res, err = tx.ExecContext(ctx,
		"INSERT INTO visitors (user_id, first_name, last_name, email, phone_number) VALUES (?,?,?,?,?)",
		v.UserID, v.FirstName, v.LastName, v.Email, v.Phone)
	if err != nil {
		return model.User{}, model.Visitor{}, err
	}
	visitorID, err := res.LastInsertId()
	if err != nil {
		return model.User{}, model.Visitor{}, err
	}
	v.ID = uint64(visitorID)

	if err := tx.Commit(); err != nil {
		return model.User{}, model.Visitor{}, err
	}
	committed = true

	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	u := model.User{
		ID:           uint64(userID),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return u, v, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// ProfileUpdate carries the editable account fields.  Nil fields are
// left unchanged; PasswordHash must already be hashed.
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	Email        *string
	Phone        *string
	PasswordHash *string
}

// UpdateProfile applies u to the visitor row and, for email and password,
// to the user row, atomically.  The login email and the visitor's
// contact email are kept in sync.
func (r *UserRepo) UpdateProfile(ctx context.Context, userID uint64, u ProfileUpdate) (model.Visitor, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Visitor{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	v, err := visitorByUserID(ctx, tx, userID, true)
	if err != nil {
		return model.Visitor{}, err
	}
	if u.FirstName != nil {
		v.FirstName = strings.TrimSpace(*u.FirstName)
	}
	if u.LastName != nil {
		v.LastName = strings.TrimSpace(*u.LastName)
	}
	if u.Phone != nil {
		v.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Email != nil {
		v.Email = normalizeEmail(*u.Email)
		if _, err := tx.ExecContext(ctx, "UPDATE users SET email=? WHERE id=?", v.Email, userID); err != nil {
			if isDuplicate(err) {
				return model.Visitor{}, ErrEmailExists
			}
			return model.Visitor{}, err
		}
	}
	if u.PasswordHash != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", *u.PasswordHash, userID); err != nil {
			return model.Visitor{}, err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE visitors SET first_name=?, last_name=?, email=?, phone_number=? WHERE id=?",
		v.FirstName, v.LastName, v.Email, v.Phone, v.ID); err != nil {
		return model.Visitor{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Visitor{}, err
	}
	committed = true
	v.UpdatedAt = time.Now().UTC()
	return v, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
