package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/museum-booking/internal/model"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const visitorColumns = "id,user_id,first_name,last_name,email,phone_number,created_at,updated_at"

// visitorByUserID loads the visitor profile of a user, optionally
// locking the row.
func visitorByUserID(ctx context.Context, q queryer, userID uint64, forUpdate bool) (model.Visitor, error) {
	query := "SELECT " + visitorColumns + " FROM visitors WHERE user_id=? LIMIT 1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	var v model.Visitor
	err := q.QueryRowContext(ctx, query, userID).Scan(
		&v.ID, &v.UserID, &v.FirstName, &v.LastName, &v.Email, &v.Phone, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Visitor{}, ErrNotFound
	}
	return v, err
}

type VisitorRepo struct{ DB *sql.DB }

func NewVisitorRepo(db *sql.DB) *VisitorRepo { return &VisitorRepo{DB: db} }

// GetByUserID returns the profile attached to a user account.
func (r *VisitorRepo) GetByUserID(ctx context.Context, userID uint64) (model.Visitor, error) {
	return visitorByUserID(ctx, r.DB, userID, false)
}
