package memstore

import (
	"context"
	"time"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

// tx operates on a private copy of the state.  The owning Store holds its
// write lock for the lifetime of the transaction.
type tx struct {
	st    *state
	store *Store
}

func (t *tx) LockCatalogItem(ctx context.Context, kind model.Kind, id uint64) (model.CatalogItem, error) {
	if err := t.store.fault("LockCatalogItem"); err != nil {
		return model.CatalogItem{}, err
	}
	return t.st.catalogItem(kind, id)
}

func (t *tx) ConfirmedHeadcount(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (int, error) {
	return t.st.confirmedHeadcount(kind, itemID, slot), nil
}

func (t *tx) HasConfirmedBooking(ctx context.Context, visitorID uint64, kind model.Kind, itemID uint64, slot time.Time) (bool, error) {
	for _, r := range t.st.reservations {
		if r.VisitorID == visitorID && r.Kind == kind && r.ItemID == itemID &&
			r.ScheduledAt.Equal(slot) && r.Status == model.ReservationConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) GuideStatus(ctx context.Context, guideID uint64) (string, error) {
	g, ok := t.st.guides[guideID]
	if !ok {
		return "", booking.ErrRecordNotFound
	}
	return g.Status, nil
}

func (t *tx) NextAudioGuide(ctx context.Context, minCharge int) (model.AudioGuideUnit, error) {
	if err := t.store.fault("NextAudioGuide"); err != nil {
		return model.AudioGuideUnit{}, err
	}
	units := make([]model.AudioGuideUnit, 0, len(t.st.units))
	for _, u := range t.st.units {
		units = append(units, u)
	}
	u, ok := booking.SelectBest(units, minCharge)
	if !ok {
		return model.AudioGuideUnit{}, booking.ErrRecordNotFound
	}
	return u, nil
}

func (t *tx) AudioGuideForUpdate(ctx context.Context, id uint64) (model.AudioGuideUnit, error) {
	u, ok := t.st.units[id]
	if !ok {
		return model.AudioGuideUnit{}, booking.ErrRecordNotFound
	}
	return u, nil
}

func (t *tx) UpdateAudioGuideStatus(ctx context.Context, id uint64, from, to model.AudioGuideStatus) (bool, error) {
	if err := t.store.fault("UpdateAudioGuideStatus"); err != nil {
		return false, err
	}
	u, ok := t.st.units[id]
	if !ok || u.Status != from {
		return false, nil
	}
	u.Status = to
	t.st.units[id] = u
	return true, nil
}

func (t *tx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	if err := t.store.fault("InsertReservation"); err != nil {
		return err
	}
	t.st.nextRes[r.Kind]++
	r.ID = t.st.nextRes[r.Kind]
	t.st.reservations[resKey{r.Kind, r.ID}] = *r
	return nil
}

func (t *tx) ReservationForUpdate(ctx context.Context, kind model.Kind, id uint64) (model.Reservation, error) {
	r, ok := t.st.reservations[resKey{kind, id}]
	if !ok {
		return model.Reservation{}, booking.ErrRecordNotFound
	}
	return r, nil
}

func (t *tx) MarkReservationCancelled(ctx context.Context, kind model.Kind, id uint64, at time.Time) error {
	if err := t.store.fault("MarkReservationCancelled"); err != nil {
		return err
	}
	r, ok := t.st.reservations[resKey{kind, id}]
	if !ok {
		return booking.ErrRecordNotFound
	}
	r.Status = model.ReservationCancelled
	r.CancelledAt = &at
	t.st.reservations[resKey{kind, id}] = r
	return nil
}

func (t *tx) InsertRental(ctx context.Context, r *model.RentalRecord) error {
	if err := t.store.fault("InsertRental"); err != nil {
		return err
	}
	t.st.nextRental++
	r.ID = t.st.nextRental
	t.st.rentals[r.ID] = *r
	return nil
}

func (t *tx) ActiveRentalForUpdate(ctx context.Context, kind model.Kind, reservationID uint64) (model.RentalRecord, error) {
	for _, r := range t.st.rentals {
		if r.ReservationKind == kind && r.ReservationID == reservationID && r.Status == model.RentalActive {
			return r, nil
		}
	}
	return model.RentalRecord{}, booking.ErrRecordNotFound
}

func (t *tx) MarkRentalReturned(ctx context.Context, rentalID uint64, at time.Time) error {
	r, ok := t.st.rentals[rentalID]
	if !ok {
		return booking.ErrRecordNotFound
	}
	r.Status = model.RentalReturned
	r.ReturnedAt = &at
	t.st.rentals[rentalID] = r
	return nil
}
