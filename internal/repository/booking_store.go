package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

// BookingStore implements booking.Store and booking.AdminStore on MySQL.
// Transactions rely on InnoDB row locks: the catalog row serialises
// bookings of one item and audio-guide rows are claimed with SKIP LOCKED.
type BookingStore struct {
	db *sql.DB
}

func NewBookingStore(db *sql.DB) *BookingStore { return &BookingStore{db: db} }

var (
	_ booking.Store      = (*BookingStore)(nil)
	_ booking.AdminStore = (*BookingStore)(nil)
	_ booking.Tx         = (*bookingTx)(nil)
)

type bookingTx struct {
	tx *sql.Tx
}

// WithinTx runs fn inside a transaction and commits only when fn succeeds.
func (s *BookingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
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

	if err := fn(ctx, &bookingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *BookingStore) VisitorByUserID(ctx context.Context, userID uint64) (model.Visitor, error) {
	v, err := visitorByUserID(ctx, s.db, userID, false)
	if errors.Is(err, ErrNotFound) {
		return model.Visitor{}, booking.ErrRecordNotFound
	}
	return v, err
}

func (s *BookingStore) CatalogItem(ctx context.Context, kind model.Kind, id uint64) (model.CatalogItem, error) {
	return catalogItem(ctx, s.db, kind, id, false)
}

func (s *BookingStore) ConfirmedHeadcount(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (int, error) {
	return confirmedHeadcount(ctx, s.db, kind, itemID, slot)
}

func (s *BookingStore) ReservationsByVisitor(ctx context.Context, visitorID uint64) ([]model.Reservation, error) {
	return reservationsByVisitor(ctx, s.db, visitorID)
}

func (s *BookingStore) Reservation(ctx context.Context, kind model.Kind, id uint64) (model.Reservation, error) {
	return reservationByID(ctx, s.db, kind, id, false)
}

func (b *bookingTx) LockCatalogItem(ctx context.Context, kind model.Kind, id uint64) (model.CatalogItem, error) {
	return catalogItem(ctx, b.tx, kind, id, true)
}

func (b *bookingTx) ConfirmedHeadcount(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (int, error) {
	return confirmedHeadcount(ctx, b.tx, kind, itemID, slot)
}

// catalogItem reads the booking-relevant columns of a tour, exhibition
// or masterclass.
func catalogItem(ctx context.Context, q queryer, kind model.Kind, id uint64, forUpdate bool) (model.CatalogItem, error) {
	lock := ""
	if forUpdate {
		lock = " FOR UPDATE"
	}
	var (
		item  model.CatalogItem
		price sql.NullInt64
		err   error
	)
	switch kind {
	case model.KindTour:
		var guide sql.NullInt64
		err = q.QueryRowContext(ctx,
			"SELECT id, tour_name, price_cents, tour_date, max_visitors, status, guide_id FROM tours WHERE id = ?"+lock, id).
			Scan(&item.ID, &item.Name, &price, &item.ScheduledAt, &item.Capacity, &item.Status, &guide)
		item.GuideID = uint64Ptr(guide)
	case model.KindExhibition:
		var end time.Time
		err = q.QueryRowContext(ctx,
			"SELECT id, exhibition_name, ticket_price_cents, start_date, end_date, max_visitors, status FROM exhibitions WHERE id = ?"+lock, id).
			Scan(&item.ID, &item.Name, &price, &item.ScheduledAt, &end, &item.Capacity, &item.Status)
		end = end.UTC()
		item.EndsAt = &end
	case model.KindMasterclass:
		err = q.QueryRowContext(ctx,
			"SELECT id, masterclass_name, price_cents, masterclass_date, max_participants, status FROM masterclasses WHERE id = ?"+lock, id).
			Scan(&item.ID, &item.Name, &price, &item.ScheduledAt, &item.Capacity, &item.Status)
	default:
		return model.CatalogItem{}, booking.ErrRecordNotFound
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.CatalogItem{}, booking.ErrRecordNotFound
	}
	if err != nil {
		return model.CatalogItem{}, err
	}
	item.Kind = kind
	item.ScheduledAt = item.ScheduledAt.UTC()
	item.BasePriceCents = int64Ptr(price)
	return item, nil
}

// ---- booking.AdminStore ----

func (s *BookingStore) TourByID(ctx context.Context, id uint64) (model.Tour, error) {
	t, err := tourByID(ctx, s.db, id)
	if errors.Is(err, ErrNotFound) {
		return model.Tour{}, booking.ErrRecordNotFound
	}
	return t, err
}

func (s *BookingStore) CreateTour(ctx context.Context, t *model.Tour) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tours (tour_name, tour_date, tour_type, hall_numbers, max_visitors, duration_minutes,
			price_cents, status, collection_id, guide_id)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.Name, t.TourDate.UTC(), t.TourType, t.HallNumbers, t.MaxVisitors, t.DurationMinutes,
		nullable(t.PriceCents), t.Status, nullable(t.CollectionID), nullable(t.GuideID))
	if err != nil {
		return refError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.CreatedAt = time.Now().UTC()
	return nil
}

// UpdateTour replaces every writable column.  MySQL reports zero affected
// rows for an unchanged row, so existence is checked separately.
func (s *BookingStore) UpdateTour(ctx context.Context, t model.Tour) error {
	if err := s.mustExist(ctx, "tours", t.ID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE tours SET tour_name = ?, tour_date = ?, tour_type = ?, hall_numbers = ?, max_visitors = ?,
			duration_minutes = ?, price_cents = ?, status = ?, collection_id = ?, guide_id = ?
		WHERE id = ?`,
		t.Name, t.TourDate.UTC(), t.TourType, t.HallNumbers, t.MaxVisitors,
		t.DurationMinutes, nullable(t.PriceCents), t.Status, nullable(t.CollectionID), nullable(t.GuideID),
		t.ID)
	return refError(err)
}

// DeleteTour refuses while confirmed reservations exist and deletes the
// tour together with its cancelled orders.
func (s *BookingStore) DeleteTour(ctx context.Context, id uint64) error {
	return s.deleteItem(ctx, model.KindTour, id)
}
