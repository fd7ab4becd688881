package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/museum-booking/internal/model"
)

// Ledger owns the confirmed -> cancelled state machine for all three
// reservation kinds.  Every transition runs in a single transaction so a
// pending reservation is never visible; a failed create rolls back the
// audio-guide allocation together with everything else.
type Ledger struct {
	store        Store
	pool         *Pool
	pricing      Pricing
	rentalWindow time.Duration
	now          func() time.Time
}

func NewLedger(store Store, pool *Pool, pricing Pricing, rentalWindow time.Duration, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, pool: pool, pricing: pricing, rentalWindow: rentalWindow, now: now}
}

// CreateRequest is a validated booking ready to be written.
type CreateRequest struct {
	VisitorID uint64
	Kind      model.Kind
	ItemID    uint64
	Headcount int
	Slot      time.Time
	AddOn     model.AddOn
	GuideID   *uint64
}

// Create writes a confirmed reservation and, for the audio add-on, the
// rental that holds the allocated unit.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (model.Reservation, error) {
	var out model.Reservation
	req.Slot = NormalizeSlot(req.Slot)
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		now := l.now()

		item, err := tx.LockCatalogItem(ctx, req.Kind, req.ItemID)
		if err != nil {
			return catalogLookupError(req.Kind, req.ItemID, err)
		}
		if err := CheckBookable(item, now); err != nil {
			return err
		}

		dup, err := tx.HasConfirmedBooking(ctx, req.VisitorID, req.Kind, req.ItemID, req.Slot)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if dup {
			return NewConflict(CodeDuplicateBooking, "you already hold a reservation for this slot")
		}

		booked, err := tx.ConfirmedHeadcount(ctx, req.Kind, req.ItemID, req.Slot)
		if err != nil {
			return fmt.Errorf("count headcount: %w", err)
		}
		if booked+req.Headcount > item.Capacity {
			return NewConflict(CodeCapacityExceeded, "not enough places left for this slot").
				WithDetail("capacity", item.Capacity).
				WithDetail("remaining", max(item.Capacity-booked, 0))
		}

		quote, err := l.pricing.Compute(item.BasePriceCents, req.Headcount, req.AddOn)
		if err != nil {
			return err
		}

		res := model.Reservation{
			VisitorID:   req.VisitorID,
			Kind:        req.Kind,
			ItemID:      req.ItemID,
			ItemName:    item.Name,
			Headcount:   req.Headcount,
			TotalCents:  quote.TotalCents,
			ScheduledAt: req.Slot,
			Status:      model.ReservationConfirmed,
			AddOn:       req.AddOn,
			CreatedAt:   now,
		}

		switch req.AddOn {
		case model.AddOnGuide:
			status, err := tx.GuideStatus(ctx, *req.GuideID)
			if err != nil && !errors.Is(err, ErrRecordNotFound) {
				return fmt.Errorf("guide status: %w", err)
			}
			if err != nil || status != model.GuideActive {
				return NewValidation(CodeGuideUnavailable, "selected guide is not available").
					WithDetail("guide_id", *req.GuideID)
			}
			gid := *req.GuideID
			res.GuideID = &gid
		case model.AddOnAudioGuide:
			unit, err := l.pool.Allocate(ctx, tx)
			if errors.Is(err, ErrPoolExhausted) {
				return NewConflict(CodePoolExhausted, "no audio guide is available")
			}
			if err != nil {
				return fmt.Errorf("allocate audio guide: %w", err)
			}
			uid := unit.ID
			res.AudioGuideID = &uid
		}

		if err := tx.InsertReservation(ctx, &res); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		if res.AudioGuideID != nil {
			rental := model.RentalRecord{
				ReservationKind: res.Kind,
				ReservationID:   res.ID,
				VisitorID:       res.VisitorID,
				UnitID:          *res.AudioGuideID,
				RentDate:        now,
				ReturnDate:      now.Add(l.rentalWindow),
				FeeCents:        quote.RentalFeeCents,
				Status:          model.RentalActive,
			}
			if err := tx.InsertRental(ctx, &rental); err != nil {
				return fmt.Errorf("insert rental: %w", err)
			}
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return out, nil
}

// Cancel moves a confirmed reservation owned by visitorID to cancelled,
// returns its rental and releases the unit.  An empty kind searches tour,
// exhibition and masterclass in that order and cancels the first match.
func (l *Ledger) Cancel(ctx context.Context, visitorID uint64, kind model.Kind, id uint64) (model.Reservation, error) {
	kinds := model.Kinds
	if kind != "" {
		kinds = []model.Kind{kind}
	}

	var out model.Reservation
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		res, found, err := findOwnedConfirmed(ctx, tx, visitorID, kinds, id)
		if err != nil {
			return err
		}
		if !found {
			return NewNotFound(CodeReservationAbsent, "reservation not found").WithDetail("id", id)
		}

		now := l.now()
		if err := tx.MarkReservationCancelled(ctx, res.Kind, res.ID, now); err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
		res.Status = model.ReservationCancelled
		res.CancelledAt = &now

		unitID := res.AudioGuideID
		rental, err := tx.ActiveRentalForUpdate(ctx, res.Kind, res.ID)
		switch {
		case err == nil:
			if err := tx.MarkRentalReturned(ctx, rental.ID, now); err != nil {
				return fmt.Errorf("return rental: %w", err)
			}
			unitID = &rental.UnitID
		case !errors.Is(err, ErrRecordNotFound):
			return fmt.Errorf("load rental: %w", err)
		}
		if unitID != nil {
			if err := l.pool.Release(ctx, tx, *unitID); err != nil {
				return fmt.Errorf("release audio guide: %w", err)
			}
		}
		out = res
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return out, nil
}

func findOwnedConfirmed(ctx context.Context, tx Tx, visitorID uint64, kinds []model.Kind, id uint64) (model.Reservation, bool, error) {
	for _, k := range kinds {
		res, err := tx.ReservationForUpdate(ctx, k, id)
		if errors.Is(err, ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return model.Reservation{}, false, fmt.Errorf("load %s reservation: %w", k, err)
		}
		if res.VisitorID == visitorID && res.Status == model.ReservationConfirmed {
			return res, true, nil
		}
	}
	return model.Reservation{}, false, nil
}
