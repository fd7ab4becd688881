package booking

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/museum-booking/internal/model"
)

// Catalog resolves bookable items.  It never writes.
type Catalog struct {
	store Store
	now   func() time.Time
}

func NewCatalog(store Store, now func() time.Time) *Catalog {
	if now == nil {
		now = time.Now
	}
	return &Catalog{store: store, now: now}
}

// GetItem returns the item when it exists and can currently be booked.
func (c *Catalog) GetItem(ctx context.Context, kind model.Kind, id uint64) (model.CatalogItem, error) {
	item, err := c.store.CatalogItem(ctx, kind, id)
	if err != nil {
		return model.CatalogItem{}, catalogLookupError(kind, id, err)
	}
	if err := CheckBookable(item, c.now()); err != nil {
		return model.CatalogItem{}, err
	}
	return item, nil
}

func catalogLookupError(kind model.Kind, id uint64, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return NewNotFound(CodeItemNotFound, string(kind)+" not found").WithDetail("id", id)
	}
	return err
}

// CheckBookable rejects items whose status or dates rule out new
// reservations, and items without capacity.
func CheckBookable(item model.CatalogItem, now time.Time) error {
	today := startOfDay(now)
	unavailable := func(reason string) error {
		return NewConflict(CodeItemUnavailable, string(item.Kind)+" is not available for booking").
			WithDetail("reason", reason).
			WithDetail("status", item.Status)
	}

	switch item.Kind {
	case model.KindTour:
		if item.Status != model.TourScheduled {
			return unavailable("status")
		}
		if item.ScheduledAt.Before(today) {
			return unavailable("past")
		}
	case model.KindExhibition:
		if item.Status != model.ExhibitionUpcoming && item.Status != model.ExhibitionActive {
			return unavailable("status")
		}
		if item.EndsAt != nil && item.EndsAt.Before(today) {
			return unavailable("past")
		}
	case model.KindMasterclass:
		if item.Status != model.MasterclassScheduled {
			return unavailable("status")
		}
		if item.ScheduledAt.Before(today) {
			return unavailable("past")
		}
	default:
		return NewValidation(CodeValidation, "unknown reservation kind").WithDetail("kind", string(item.Kind))
	}
	if item.Capacity <= 0 {
		return unavailable("capacity")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
