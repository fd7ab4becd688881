package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

// refError maps a foreign key naming a missing guide or collection to
// booking.ErrMissingReference.
func refError(err error) error {
	if err != nil && isMissingRef(err) {
		return booking.ErrMissingReference
	}
	return err
}

// inTx runs fn in a transaction that is rolled back unless fn succeeds.
func (s *BookingStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// mustExist returns booking.ErrRecordNotFound unless table has row id.
// table is always a constant from this package.
func (s *BookingStore) mustExist(ctx context.Context, table string, id uint64) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = ?)", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return booking.ErrRecordNotFound
	}
	return nil
}

// deleteGuarded locks row id of table, counts its dependents and deletes
// the row only when there are none.  Every placeholder in dependents is
// bound to id.
func (s *BookingStore) deleteGuarded(ctx context.Context, table string, id uint64, dependents string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var locked uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE id = ? FOR UPDATE", id).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return booking.ErrRecordNotFound
		}
		if err != nil {
			return err
		}

		args := make([]any, strings.Count(dependents, "?"))
		for i := range args {
			args[i] = id
		}
		var n int
		if err := tx.QueryRowContext(ctx, dependents, args...).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return booking.ErrRecordInUse
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
		return err
	})
}

// deleteItem removes a tour, exhibition or masterclass.  Cancelled orders
// go with it through ON DELETE CASCADE.
func (s *BookingStore) deleteItem(ctx context.Context, kind model.Kind, id uint64) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	return s.deleteGuarded(ctx, t.items, id,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND status = 'confirmed'", t.orders, t.itemCol))
}

func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ---- tours, exhibitions, masterclasses ----

// ListTours returns every tour regardless of status, latest first.
func (s *BookingStore) ListTours(ctx context.Context) ([]model.Tour, error) {
	rows, err := s.db.QueryContext(ctx, tourSelect+" ORDER BY t.tour_date DESC, t.id DESC")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTour)
}

const exhibitionSelect = `SELECT id, exhibition_name, COALESCE(description, ''), start_date, end_date,
		location, max_visitors, ticket_price_cents, status
	FROM exhibitions`

func scanExhibition(s rowScanner) (model.Exhibition, error) {
	var (
		e     model.Exhibition
		price sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.Name, &e.Description, &e.StartDate, &e.EndDate,
		&e.Location, &e.MaxVisitors, &price, &e.Status); err != nil {
		return model.Exhibition{}, err
	}
	e.TicketPriceCents = int64Ptr(price)
	return e, nil
}

// ListExhibitions returns every exhibition, closed ones included.
func (s *BookingStore) ListExhibitions(ctx context.Context) ([]model.Exhibition, error) {
	rows, err := s.db.QueryContext(ctx, exhibitionSelect+" ORDER BY start_date DESC, id DESC")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanExhibition)
}

func (s *BookingStore) DeleteExhibition(ctx context.Context, id uint64) error {
	return s.deleteItem(ctx, model.KindExhibition, id)
}

const masterclassSelect = `SELECT id, masterclass_name, COALESCE(description, ''), masterclass_date,
		duration_minutes, max_participants, price_cents, instructor_name,
		location, skill_level, status
	FROM masterclasses`

func scanMasterclass(s rowScanner) (model.Masterclass, error) {
	var (
		m     model.Masterclass
		price sql.NullInt64
	)
	if err := s.Scan(&m.ID, &m.Name, &m.Description, &m.Date,
		&m.DurationMinutes, &m.MaxParticipants, &price, &m.InstructorName,
		&m.Location, &m.SkillLevel, &m.Status); err != nil {
		return model.Masterclass{}, err
	}
	m.PriceCents = int64Ptr(price)
	return m, nil
}

// ListMasterclasses returns every masterclass, latest first.
func (s *BookingStore) ListMasterclasses(ctx context.Context) ([]model.Masterclass, error) {
	rows, err := s.db.QueryContext(ctx, masterclassSelect+" ORDER BY masterclass_date DESC, id DESC")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMasterclass)
}

func (s *BookingStore) DeleteMasterclass(ctx context.Context, id uint64) error {
	return s.deleteItem(ctx, model.KindMasterclass, id)
}

// ---- guides ----

const guideSelect = `SELECT id, first_name, last_name, phone_number, email, specialization, status, hire_date
	FROM guides`

func scanGuide(s rowScanner) (model.Guide, error) {
	var g model.Guide
	err := s.Scan(&g.ID, &g.FirstName, &g.LastName, &g.Phone, &g.Email,
		&g.Specialization, &g.Status, &g.HireDate)
	return g, err
}

func (s *BookingStore) ListGuides(ctx context.Context) ([]model.Guide, error) {
	rows, err := s.db.QueryContext(ctx, guideSelect+" ORDER BY last_name ASC, first_name ASC, id ASC")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanGuide)
}

func (s *BookingStore) CreateGuide(ctx context.Context, g *model.Guide) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO guides (first_name, last_name, phone_number, email, specialization, status, hire_date)
		VALUES (?,?,?,?,?,?,?)`,
		g.FirstName, g.LastName, g.Phone, g.Email, g.Specialization, g.Status, g.HireDate.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

func (s *BookingStore) UpdateGuide(ctx context.Context, g model.Guide) error {
	if err := s.mustExist(ctx, "guides", g.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE guides SET first_name = ?, last_name = ?, phone_number = ?, email = ?,
			specialization = ?, status = ?, hire_date = ?
		WHERE id = ?`,
		g.FirstName, g.LastName, g.Phone, g.Email, g.Specialization, g.Status, g.HireDate.UTC(), g.ID)
	return err
}

// DeleteGuide refuses while any tour names the guide.
func (s *BookingStore) DeleteGuide(ctx context.Context, id uint64) error {
	return s.deleteGuarded(ctx, "guides", id, "SELECT COUNT(*) FROM tours WHERE guide_id = ?")
}

// ---- collections ----

func (s *BookingStore) ListCollections(ctx context.Context) ([]model.Collection, error) {
	return NewCatalogRepo(s.db).ListCollections(ctx)
}

func (s *BookingStore) CreateCollection(ctx context.Context, c *model.Collection) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO collections (collection_name, creation_year) VALUES (?,?)", c.Name, c.CreationYear)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

func (s *BookingStore) UpdateCollection(ctx context.Context, c model.Collection) error {
	if err := s.mustExist(ctx, "collections", c.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE collections SET collection_name = ?, creation_year = ? WHERE id = ?", c.Name, c.CreationYear, c.ID)
	return err
}

// DeleteCollection refuses while exhibits belong to the collection.
// Tours keep running with their collection_id set to NULL.
func (s *BookingStore) DeleteCollection(ctx context.Context, id uint64) error {
	return s.deleteGuarded(ctx, "collections", id, "SELECT COUNT(*) FROM exhibits WHERE collection_id = ?")
}

// ---- exhibits ----

const exhibitSelect = `SELECT e.id, e.exhibit_name, e.creation_year, e.exhibit_type, e.condition_status,
		e.collection_id, COALESCE(c.collection_name, '')
	FROM exhibits e
	LEFT JOIN collections c ON c.id = e.collection_id`

func scanExhibit(s rowScanner) (model.Exhibit, error) {
	var (
		e   model.Exhibit
		col sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.Name, &e.CreationYear, &e.ExhibitType, &e.ConditionStatus,
		&col, &e.CollectionName); err != nil {
		return model.Exhibit{}, err
	}
	e.CollectionID = uint64Ptr(col)
	return e, nil
}

func (s *BookingStore) ListExhibits(ctx context.Context) ([]model.Exhibit, error) {
	rows, err := s.db.QueryContext(ctx, exhibitSelect+" ORDER BY e.exhibit_name ASC, e.id ASC")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanExhibit)
}

func (s *BookingStore) CreateExhibit(ctx context.Context, e *model.Exhibit) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exhibits (exhibit_name, creation_year, exhibit_type, condition_status, collection_id)
		VALUES (?,?,?,?,?)`,
		e.Name, e.CreationYear, e.ExhibitType, e.ConditionStatus, nullable(e.CollectionID))
	if err != nil {
		return refError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (s *BookingStore) UpdateExhibit(ctx context.Context, e model.Exhibit) error {
	if err := s.mustExist(ctx, "exhibits", e.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE exhibits SET exhibit_name = ?, creation_year = ?, exhibit_type = ?, condition_status = ?,
			collection_id = ?
		WHERE id = ?`,
		e.Name, e.CreationYear, e.ExhibitType, e.ConditionStatus, nullable(e.CollectionID), e.ID)
	return refError(err)
}

func (s *BookingStore) DeleteExhibit(ctx context.Context, id uint64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM exhibits WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return booking.ErrRecordNotFound
	}
	return nil
}

// ---- users ----

const accountSelect = `SELECT u.id, u.email, u.password_hash, u.role, u.is_active, u.created_at, u.updated_at,
		COALESCE(v.first_name, ''), COALESCE(v.last_name, ''), COALESCE(v.phone_number, '')
	FROM users u
	LEFT JOIN visitors v ON v.user_id = u.id`

func scanAccount(s rowScanner) (model.UserAccount, error) {
	var u model.UserAccount
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
		&u.FirstName, &u.LastName, &u.Phone)
	return u, err
}

// ListUsers returns every account, newest first.
func (s *BookingStore) ListUsers(ctx context.Context) ([]model.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, accountSelect+" ORDER BY u.created_at DESC, u.id DESC")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAccount)
}

func (s *BookingStore) UserByID(ctx context.Context, id uint64) (model.UserAccount, error) {
	u, err := scanAccount(s.db.QueryRowContext(ctx, accountSelect+" WHERE u.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.UserAccount{}, booking.ErrRecordNotFound
	}
	return u, err
}

// CreateUser inserts the account and its visitor profile in one
// transaction.
func (s *BookingStore) CreateUser(ctx context.Context, u *model.UserAccount) error {
	now := time.Now().UTC()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (email, password_hash, role, is_active) VALUES (?,?,?,?)",
			u.Email, u.PasswordHash, u.Role, u.IsActive)
		if err != nil {
			if isDuplicate(err) {
				return booking.ErrDuplicateEmail
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO visitors (user_id, first_name, last_name, email, phone_number) VALUES (?,?,?,?,?)",
			id, u.FirstName, u.LastName, u.Email, u.Phone); err != nil {
			return err
		}
		u.ID = uint64(id)
		u.CreatedAt, u.UpdatedAt = now, now
		return nil
	})
}

// UpdateUser writes the account and its profile.  An empty PasswordHash
// keeps the stored hash.
func (s *BookingStore) UpdateUser(ctx context.Context, u model.UserAccount) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var locked uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id = ? FOR UPDATE", u.ID).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return booking.ErrRecordNotFound
		}
		if err != nil {
			return err
		}

		q := "UPDATE users SET email = ?, role = ?, is_active = ?"
		args := []any{u.Email, u.Role, u.IsActive}
		if u.PasswordHash != "" {
			q += ", password_hash = ?"
			args = append(args, u.PasswordHash)
		}
		if _, err := tx.ExecContext(ctx, q+" WHERE id = ?", append(args, u.ID)...); err != nil {
			if isDuplicate(err) {
				return booking.ErrDuplicateEmail
			}
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE visitors SET first_name = ?, last_name = ?, email = ?, phone_number = ? WHERE user_id = ?",
			u.FirstName, u.LastName, u.Email, u.Phone, u.ID)
		return err
	})
}

// DeleteUser refuses while the user's visitor profile holds any
// reservation, cancelled ones included, since orders keep their visitor.
// The profile and refresh tokens cascade.
func (s *BookingStore) DeleteUser(ctx context.Context, id uint64) error {
	const reservations = `SELECT
		(SELECT COUNT(*) FROM tour_orders o JOIN visitors v ON v.id = o.visitor_id WHERE v.user_id = ?) +
		(SELECT COUNT(*) FROM exhibition_orders o JOIN visitors v ON v.id = o.visitor_id WHERE v.user_id = ?) +
		(SELECT COUNT(*) FROM masterclass_orders o JOIN visitors v ON v.id = o.visitor_id WHERE v.user_id = ?)`
	return s.deleteGuarded(ctx, "users", id, reservations)
}
