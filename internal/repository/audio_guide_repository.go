package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

// NextAudioGuide picks the preferred available unit and locks it.  Rows
// locked by concurrent bookings are skipped rather than waited on, so two
// transactions never contend for the same unit.
func (b *bookingTx) NextAudioGuide(ctx context.Context, minCharge int) (model.AudioGuideUnit, error) {
	u, err := scanAudioGuide(b.tx.QueryRowContext(ctx,
		"SELECT "+audioGuideColumns+" FROM audio_guides WHERE status = 'available' AND charge_level > ? "+
			audioGuideOrder+" LIMIT 1 FOR UPDATE SKIP LOCKED",
		minCharge))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AudioGuideUnit{}, booking.ErrRecordNotFound
	}
	return u, err
}

func (b *bookingTx) AudioGuideForUpdate(ctx context.Context, id uint64) (model.AudioGuideUnit, error) {
	u, err := scanAudioGuide(b.tx.QueryRowContext(ctx,
		"SELECT "+audioGuideColumns+" FROM audio_guides WHERE id = ? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AudioGuideUnit{}, booking.ErrRecordNotFound
	}
	return u, err
}

func (b *bookingTx) UpdateAudioGuideStatus(ctx context.Context, id uint64, from, to model.AudioGuideStatus) (bool, error) {
	res, err := b.tx.ExecContext(ctx,
		"UPDATE audio_guides SET status = ? WHERE id = ? AND status = ?",
		string(to), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (b *bookingTx) GuideStatus(ctx context.Context, guideID uint64) (string, error) {
	var status string
	err := b.tx.QueryRowContext(ctx, "SELECT status FROM guides WHERE id = ?", guideID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", booking.ErrRecordNotFound
	}
	return status, err
}

// ListAudioGuides returns the whole pool in allocation order.
func (s *BookingStore) ListAudioGuides(ctx context.Context) ([]model.AudioGuideUnit, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+audioGuideColumns+" FROM audio_guides "+audioGuideOrder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AudioGuideUnit{}
	for rows.Next() {
		u, err := scanAudioGuide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
