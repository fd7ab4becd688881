package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

// orderTable names the per-kind reservation table and the catalog table
// it references.  Reservation ids are per table.
type orderTable struct {
	orders  string
	itemCol string
	items   string
	nameCol string
}

var orderTables = map[model.Kind]orderTable{
	model.KindTour:        {orders: "tour_orders", itemCol: "tour_id", items: "tours", nameCol: "tour_name"},
	model.KindExhibition:  {orders: "exhibition_orders", itemCol: "exhibition_id", items: "exhibitions", nameCol: "exhibition_name"},
	model.KindMasterclass: {orders: "masterclass_orders", itemCol: "masterclass_id", items: "masterclasses", nameCol: "masterclass_name"},
}

func tableFor(kind model.Kind) (orderTable, error) {
	t, ok := orderTables[kind]
	if !ok {
		return orderTable{}, booking.ErrRecordNotFound
	}
	return t, nil
}

func (t orderTable) selectSQL() string {
	return fmt.Sprintf(`SELECT o.id, o.visitor_id, o.%[1]s, COALESCE(i.%[2]s, ''),
			o.visitors_count, o.total_cents, o.scheduled_at, o.status, o.add_on,
			o.audio_guide_id, o.guide_id, o.created_at, o.cancelled_at
		FROM %[3]s o
		LEFT JOIN %[4]s i ON i.id = o.%[1]s`, t.itemCol, t.nameCol, t.orders, t.items)
}

func scanReservation(s rowScanner, kind model.Kind) (model.Reservation, error) {
	var (
		r         model.Reservation
		audio     sql.NullInt64
		guide     sql.NullInt64
		cancelled sql.NullTime
	)
	if err := s.Scan(&r.ID, &r.VisitorID, &r.ItemID, &r.ItemName,
		&r.Headcount, &r.TotalCents, &r.ScheduledAt, &r.Status, &r.AddOn,
		&audio, &guide, &r.CreatedAt, &cancelled); err != nil {
		return model.Reservation{}, err
	}
	r.Kind = kind
	r.ScheduledAt = r.ScheduledAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.AudioGuideID = uint64Ptr(audio)
	r.GuideID = uint64Ptr(guide)
	r.CancelledAt = timePtr(cancelled)
	return r, nil
}

// reservationByID loads one reservation, optionally locking its row.
func reservationByID(ctx context.Context, q queryer, kind model.Kind, id uint64, forUpdate bool) (model.Reservation, error) {
	t, err := tableFor(kind)
	if err != nil {
		return model.Reservation{}, err
	}
	query := t.selectSQL() + " WHERE o.id = ?"
	if forUpdate {
		query += " FOR UPDATE OF o"
	}
	r, err := scanReservation(q.QueryRowContext(ctx, query, id), kind)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, booking.ErrRecordNotFound
	}
	return r, err
}

// reservationsByVisitor reads the three ledgers for one visitor.
func reservationsByVisitor(ctx context.Context, db *sql.DB, visitorID uint64) ([]model.Reservation, error) {
	out := []model.Reservation{}
	for _, kind := range model.Kinds {
		t := orderTables[kind]
		rows, err := db.QueryContext(ctx, t.selectSQL()+" WHERE o.visitor_id = ? ORDER BY o.created_at DESC, o.id DESC", visitorID)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", t.orders, err)
		}
		for rows.Next() {
			r, err := scanReservation(rows, kind)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, r)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func confirmedHeadcount(ctx context.Context, q queryer, kind model.Kind, itemID uint64, slot time.Time) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var n int
	err = q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(visitors_count), 0) FROM "+t.orders+" WHERE "+t.itemCol+" = ? AND scheduled_at = ? AND status = 'confirmed'",
		itemID, slot.UTC()).Scan(&n)
	return n, err
}

func (b *bookingTx) HasConfirmedBooking(ctx context.Context, visitorID uint64, kind model.Kind, itemID uint64, slot time.Time) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var exists bool
	err = b.tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM "+t.orders+" WHERE visitor_id = ? AND "+t.itemCol+" = ? AND scheduled_at = ? AND status = 'confirmed')",
		visitorID, itemID, slot.UTC()).Scan(&exists)
	return exists, err
}

func (b *bookingTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	t, err := tableFor(r.Kind)
	if err != nil {
		return err
	}
	res, err := b.tx.ExecContext(ctx,
		"INSERT INTO "+t.orders+" (visitor_id, "+t.itemCol+", visitors_count, total_cents, scheduled_at, status, add_on, audio_guide_id, guide_id, created_at) VALUES (?,?,?,?,?,?,?,?,?,?)",
		r.VisitorID, r.ItemID, r.Headcount, r.TotalCents, r.ScheduledAt.UTC(), string(r.Status), string(r.AddOn),
		nullable(r.AudioGuideID), nullable(r.GuideID), r.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

func (b *bookingTx) ReservationForUpdate(ctx context.Context, kind model.Kind, id uint64) (model.Reservation, error) {
	return reservationByID(ctx, b.tx, kind, id, true)
}

// MarkReservationCancelled only touches confirmed rows; a reservation
// that is already cancelled is reported as not found.
func (b *bookingTx) MarkReservationCancelled(ctx context.Context, kind model.Kind, id uint64, at time.Time) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := b.tx.ExecContext(ctx,
		"UPDATE "+t.orders+" SET status = 'cancelled', cancelled_at = ? WHERE id = ? AND status = 'confirmed'",
		at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrRecordNotFound
	}
	return nil
}

func (b *bookingTx) InsertRental(ctx context.Context, r *model.RentalRecord) error {
	res, err := b.tx.ExecContext(ctx,
		`INSERT INTO audio_guide_rentals
			(reservation_kind, reservation_id, visitor_id, audio_guide_id, rent_date, return_date, rental_fee_cents, status)
		VALUES (?,?,?,?,?,?,?,?)`,
		string(r.ReservationKind), r.ReservationID, r.VisitorID, r.UnitID,
		r.RentDate.UTC(), r.ReturnDate.UTC(), r.FeeCents, string(r.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

func (b *bookingTx) ActiveRentalForUpdate(ctx context.Context, kind model.Kind, reservationID uint64) (model.RentalRecord, error) {
	var (
		r        model.RentalRecord
		returned sql.NullTime
	)
	err := b.tx.QueryRowContext(ctx,
		`SELECT id, reservation_kind, reservation_id, visitor_id, audio_guide_id,
			rent_date, return_date, rental_fee_cents, status, returned_at
		FROM audio_guide_rentals
		WHERE reservation_kind = ? AND reservation_id = ? AND status = 'active'
		LIMIT 1 FOR UPDATE`,
		string(kind), reservationID).Scan(&r.ID, &r.ReservationKind, &r.ReservationID, &r.VisitorID, &r.UnitID,
		&r.RentDate, &r.ReturnDate, &r.FeeCents, &r.Status, &returned)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RentalRecord{}, booking.ErrRecordNotFound
	}
	if err != nil {
		return model.RentalRecord{}, err
	}
	r.ReturnedAt = timePtr(returned)
	return r, nil
}

func (b *bookingTx) MarkRentalReturned(ctx context.Context, rentalID uint64, at time.Time) error {
	_, err := b.tx.ExecContext(ctx,
		"UPDATE audio_guide_rentals SET status = 'returned', returned_at = ? WHERE id = ?",
		at.UTC(), rentalID)
	return err
}
