package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/model"
)

// Defaults applied to tours created without explicit values.
const (
	DefaultTourMaxVisitors = 20
	DefaultTourDuration    = 60
)

// AdminService manages the catalog, user accounts and the audio-guide
// pool.  Every method requires an admin identity.
type AdminService struct {
	store      AdminStore
	log        *logger.Logger
	timeout    time.Duration
	bcryptCost int
	now        func() time.Time
}

type AdminOption func(*AdminService)

// WithBcryptCost sets the cost used to hash passwords of accounts created
// or reset by an administrator.
func WithBcryptCost(cost int) AdminOption { return func(a *AdminService) { a.bcryptCost = cost } }

// WithAdminClock replaces time.Now for defaults such as a guide's hire date.
func WithAdminClock(now func() time.Time) AdminOption { return func(a *AdminService) { a.now = now } }

func NewAdminService(store AdminStore, cfg config.BookingConfig, log *logger.Logger, opts ...AdminOption) *AdminService {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	a := &AdminService{store: store, log: log, timeout: timeout, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TourInput carries the writable tour fields.  Nil optionals take the
// defaults (20 visitors, 60 minutes, scheduled).
type TourInput struct {
	Name            string
	TourDate        time.Time
	TourType        string
	HallNumbers     string
	MaxVisitors     *int
	DurationMinutes *int
	PriceCents      *int64
	Status          string
	CollectionID    *uint64
	GuideID         *uint64
}

func (in TourInput) toModel(id uint64) (model.Tour, error) {
	t := model.Tour{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		TourDate:        in.TourDate,
		TourType:        strings.TrimSpace(in.TourType),
		HallNumbers:     strings.TrimSpace(in.HallNumbers),
		MaxVisitors:     DefaultTourMaxVisitors,
		DurationMinutes: DefaultTourDuration,
		PriceCents:      in.PriceCents,
		Status:          in.Status,
		CollectionID:    in.CollectionID,
		GuideID:         in.GuideID,
	}
	if in.MaxVisitors != nil {
		t.MaxVisitors = *in.MaxVisitors
	}
	if in.DurationMinutes != nil {
		t.DurationMinutes = *in.DurationMinutes
	}
	if t.Status == "" {
		t.Status = model.TourScheduled
	}

	verr := NewValidation(CodeValidation, "invalid tour")
	if t.Name == "" {
		verr.WithDetail("tour_name", "required")
	}
	if t.TourDate.IsZero() {
		verr.WithDetail("tour_date", "required")
	}
	if t.MaxVisitors < 1 {
		verr.WithDetail("max_visitors", "must be at least 1")
	}
	if t.DurationMinutes < 1 {
		verr.WithDetail("duration_minutes", "must be at least 1")
	}
	if t.PriceCents != nil && *t.PriceCents < 0 {
		verr.WithDetail("price", "must not be negative")
	}
	switch t.Status {
	case model.TourScheduled, model.TourCancelled, model.TourFinished:
	default:
		verr.WithDetail("status", "must be scheduled, cancelled or finished")
	}
	if len(verr.Details) > 0 {
		return model.Tour{}, verr
	}
	return t, nil
}

func (a *AdminService) CreateTour(ctx context.Context, id Identity, in TourInput) (model.Tour, error) {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return model.Tour{}, err
	}
	t, err := in.toModel(0)
	if err != nil {
		return model.Tour{}, err
	}
	err = a.save(ctx, "create tour", func(ctx context.Context) error { return a.store.CreateTour(ctx, &t) }, nil)
	if err != nil {
		return model.Tour{}, err
	}
	a.log.Info("tour created", "tour_id", t.ID, "by_user", id.UserID)
	return t, nil
}

// UpdateTour replaces every writable field; omitted optionals take their
// defaults again.
func (a *AdminService) UpdateTour(ctx context.Context, id Identity, tourID uint64, in TourInput) (model.Tour, error) {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return model.Tour{}, err
	}
	t, err := in.toModel(tourID)
	if err != nil {
		return model.Tour{}, err
	}
	err = a.save(ctx, "update tour", func(ctx context.Context) error { return a.store.UpdateTour(ctx, t) },
		NewNotFound(CodeItemNotFound, "tour not found").WithDetail("id", tourID))
	if err != nil {
		return model.Tour{}, err
	}
	return t, nil
}

// DeleteTour refuses while confirmed reservations reference the tour.
func (a *AdminService) DeleteTour(ctx context.Context, id Identity, tourID uint64) error {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return err
	}
	return a.remove(ctx, id, "delete tour", tourID, a.store.DeleteTour,
		NewNotFound(CodeItemNotFound, "tour not found").WithDetail("id", tourID),
		NewConflict(CodeItemHasBookings, "tour has confirmed reservations"))
}

// ListTours returns every tour in any status, latest date first.
func (a *AdminService) ListTours(ctx context.Context, id Identity) ([]model.Tour, error) {
	return list(ctx, a, id, PermManageCatalog, "list tours", a.store.ListTours)
}

// ListExhibitions returns every exhibition in any status, latest start
// first.
func (a *AdminService) ListExhibitions(ctx context.Context, id Identity) ([]model.Exhibition, error) {
	return list(ctx, a, id, PermManageCatalog, "list exhibitions", a.store.ListExhibitions)
}

// DeleteExhibition refuses while confirmed reservations reference it.
func (a *AdminService) DeleteExhibition(ctx context.Context, id Identity, exhibitionID uint64) error {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return err
	}
	return a.remove(ctx, id, "delete exhibition", exhibitionID, a.store.DeleteExhibition,
		NewNotFound(CodeItemNotFound, "exhibition not found").WithDetail("id", exhibitionID),
		NewConflict(CodeItemHasBookings, "exhibition has confirmed reservations"))
}

// ListMasterclasses returns every masterclass in any status, latest date
// first.
func (a *AdminService) ListMasterclasses(ctx context.Context, id Identity) ([]model.Masterclass, error) {
	return list(ctx, a, id, PermManageCatalog, "list masterclasses", a.store.ListMasterclasses)
}

// DeleteMasterclass refuses while confirmed reservations reference it.
func (a *AdminService) DeleteMasterclass(ctx context.Context, id Identity, masterclassID uint64) error {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return err
	}
	return a.remove(ctx, id, "delete masterclass", masterclassID, a.store.DeleteMasterclass,
		NewNotFound(CodeItemNotFound, "masterclass not found").WithDetail("id", masterclassID),
		NewConflict(CodeItemHasBookings, "masterclass has confirmed reservations"))
}

func (a *AdminService) ListAudioGuides(ctx context.Context, id Identity) ([]model.AudioGuideUnit, error) {
	if err := Authorize(id, PermManagePool); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	units, err := a.store.ListAudioGuides(ctx)
	if err != nil {
		return nil, a.internal("list audio guides", err)
	}
	return units, nil
}

// SetAudioGuideStatus moves a unit between available and maintenance.
// in_use is owned by the ledger and can neither be set nor overridden
// here.
func (a *AdminService) SetAudioGuideStatus(ctx context.Context, id Identity, unitID uint64, status model.AudioGuideStatus) (model.AudioGuideUnit, error) {
	if err := Authorize(id, PermManagePool); err != nil {
		return model.AudioGuideUnit{}, err
	}
	if status != model.AudioGuideAvailable && status != model.AudioGuideMaintenance {
		return model.AudioGuideUnit{}, NewValidation(CodeValidation, "status must be available or maintenance").
			WithDetail("status", string(status))
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var out model.AudioGuideUnit
	err := a.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		unit, err := tx.AudioGuideForUpdate(ctx, unitID)
		if errors.Is(err, ErrRecordNotFound) {
			return NewNotFound(CodeUnitNotFound, "audio guide not found").WithDetail("id", unitID)
		}
		if err != nil {
			return err
		}
		if unit.Status == model.AudioGuideInUse {
			return NewConflict(CodeUnitInUse, "audio guide is rented out")
		}
		if unit.Status != status {
			if _, err := tx.UpdateAudioGuideStatus(ctx, unitID, unit.Status, status); err != nil {
				return err
			}
			unit.Status = status
		}
		out = unit
		return nil
	})
	if err != nil {
		if KindOf(err) == KindInternal {
			return model.AudioGuideUnit{}, a.internal("set audio guide status", err)
		}
		return model.AudioGuideUnit{}, AsError(err)
	}
	return out, nil
}

func (a *AdminService) internal(op string, err error) error {
	be := AsError(fmt.Errorf("%s: %w", op, err))
	a.log.Error("admin operation failed", "op", op, "code", be.Code, "error", err)
	return be
}

// list authorizes p and runs fetch under the store timeout.
func list[T any](ctx context.Context, a *AdminService, id Identity, p Permission, op string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if err := Authorize(id, p); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := fetch(ctx)
	if err != nil {
		return nil, a.internal(op, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// remove runs del under the store timeout and maps the store sentinels to
// notFound and inUse.  The caller has already authorized.
func (a *AdminService) remove(ctx context.Context, who Identity, op string, recordID uint64,
	del func(context.Context, uint64) error, notFound, inUse *Error) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	switch err := del(ctx, recordID); {
	case err == nil:
		a.log.Info("record deleted", "op", op, "id", recordID, "by_user", who.UserID)
		return nil
	case errors.Is(err, ErrRecordNotFound):
		return notFound
	case errors.Is(err, ErrRecordInUse) && inUse != nil:
		return inUse
	default:
		return a.internal(op, err)
	}
}

// save runs write under the store timeout; ErrRecordNotFound becomes
// notFound.
func (a *AdminService) save(ctx context.Context, op string, write func(context.Context) error, notFound *Error) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	err := write(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRecordNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, ErrDuplicateEmail):
		return NewConflict(CodeEmailTaken, "email is already registered")
	case errors.Is(err, ErrMissingReference):
		return NewValidation(CodeValidation, "referenced guide or collection does not exist")
	default:
		return a.internal(op, err)
	}
}
