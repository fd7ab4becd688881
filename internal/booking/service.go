package booking

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/metrics"
	"github.com/iliyamo/museum-booking/internal/model"
	"github.com/iliyamo/museum-booking/internal/queue"
)

const tracerName = "museum-booking/booking"

// Publisher delivers booking events after a transaction commits.  A
// publish failure is logged and never fails the booking.
type Publisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// Availability is the remaining capacity of one item and time slot.
type Availability struct {
	Kind      model.Kind `json:"kind"`
	ItemID    uint64     `json:"item_id"`
	Slot      time.Time  `json:"slot"`
	Capacity  int        `json:"capacity"`
	Booked    int        `json:"booked"`
	Remaining int        `json:"remaining"`
}

// AvailabilityCache memoises Availability between bookings.  Book and
// Cancel invalidate the affected slot after commit, which also bumps the
// slot's version.  Get reports the current version even on a miss; Set
// tags the entry with the version read before it was computed, and an
// entry whose version is no longer current is a miss.
type AvailabilityCache interface {
	Get(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (a Availability, version int64, ok bool)
	Set(ctx context.Context, a Availability, version int64)
	Invalidate(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time)
}

// BookRequest is one booking as submitted by a caller.
type BookRequest struct {
	Kind        model.Kind
	ItemID      uint64
	Headcount   int
	ScheduledAt time.Time
	AddOn       model.AddOn
	GuideID     *uint64
}

// Service is the booking orchestrator.  Every exported method checks the
// caller's permission first, bounds its storage work by the configured
// timeout and returns either a result or a *Error.
type Service struct {
	store   Store
	catalog *Catalog
	ledger  *Ledger
	cache   AvailabilityCache
	events  Publisher
	log     *logger.Logger
	tracer  trace.Tracer
	timeout time.Duration
	now     func() time.Time
}

type Option func(*Service)

func WithCache(c AvailabilityCache) Option { return func(s *Service) { s.cache = c } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithClock replaces time.Now; tests use it to pin "today".
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store Store, cfg config.BookingConfig, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		log:     log,
		tracer:  otel.Tracer(tracerName),
		timeout: cfg.StoreTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	s.catalog = NewCatalog(store, s.now)
	s.ledger = NewLedger(store, NewPool(cfg.MinChargeLevel), NewPricing(cfg), cfg.RentalWindow, s.now)
	return s
}

// Book validates, prices and writes one reservation.
func (s *Service) Book(ctx context.Context, id Identity, req BookRequest) (res model.Reservation, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Book", trace.WithAttributes(
		attribute.String("booking.kind", string(req.Kind)),
		attribute.Int64("booking.item_id", int64(req.ItemID)),
		attribute.Int("booking.headcount", req.Headcount),
		attribute.String("booking.add_on", string(req.AddOn)),
	))
	start := time.Now()
	defer func() { err = s.finish(span, "book", req.Kind, start, err) }()

	if err := Authorize(id, PermBook); err != nil {
		return model.Reservation{}, err
	}

	req.ScheduledAt = NormalizeSlot(req.ScheduledAt)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	visitor, err := s.visitor(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	item, err := s.catalog.GetItem(ctx, req.Kind, req.ItemID)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := s.validate(req, item); err != nil {
		return model.Reservation{}, err
	}

	res, err = s.ledger.Create(ctx, CreateRequest{
		VisitorID: visitor.ID,
		Kind:      req.Kind,
		ItemID:    req.ItemID,
		Headcount: req.Headcount,
		Slot:      req.ScheduledAt,
		AddOn:     req.AddOn,
		GuideID:   req.GuideID,
	})
	if err != nil {
		return model.Reservation{}, err
	}

	span.SetAttributes(attribute.Int64("booking.reservation_id", int64(res.ID)))
	s.log.Info("reservation confirmed",
		"kind", res.Kind, "reservation_id", res.ID, "visitor_id", res.VisitorID,
		"item_id", res.ItemID, "headcount", res.Headcount, "total_cents", res.TotalCents)
	s.afterCommit(ctx, queue.EventBookingConfirmed, id, res)
	return res, nil
}

// Cancel cancels a reservation owned by the caller.  kind may be empty,
// in which case every ledger is searched.
func (s *Service) Cancel(ctx context.Context, id Identity, kind model.Kind, reservationID uint64) (res model.Reservation, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(
		attribute.String("booking.kind", string(kind)),
		attribute.Int64("booking.reservation_id", int64(reservationID)),
	))
	start := time.Now()
	defer func() { err = s.finish(span, "cancel", kind, start, err) }()

	if err := Authorize(id, PermCancel); err != nil {
		return model.Reservation{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	visitor, err := s.visitor(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	res, err = s.ledger.Cancel(ctx, visitor.ID, kind, reservationID)
	if err != nil {
		return model.Reservation{}, err
	}

	s.log.Info("reservation cancelled",
		"kind", res.Kind, "reservation_id", res.ID, "visitor_id", res.VisitorID,
		"audio_guide_released", res.AudioGuideID != nil)
	s.afterCommit(ctx, queue.EventBookingCancelled, id, res)
	return res, nil
}

// ListMine returns all of the caller's reservations across kinds, newest
// first.
func (s *Service) ListMine(ctx context.Context, id Identity) (out []model.Reservation, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.ListMine")
	start := time.Now()
	defer func() { err = s.finish(span, "list", "", start, err) }()

	if err := Authorize(id, PermViewOwn); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	visitor, err := s.visitor(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err = s.store.ReservationsByVisitor(ctx, visitor.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Get returns one reservation.  Callers without PermViewAll only see
// their own; anything else is reported as not found.
func (s *Service) Get(ctx context.Context, id Identity, kind model.Kind, reservationID uint64) (res model.Reservation, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Get")
	start := time.Now()
	defer func() { err = s.finish(span, "get", kind, start, err) }()

	if err := Authorize(id, PermViewOwn); err != nil {
		return model.Reservation{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	notFound := NewNotFound(CodeReservationAbsent, "reservation not found").WithDetail("id", reservationID)
	res, err = s.store.Reservation(ctx, kind, reservationID)
	if errors.Is(err, ErrRecordNotFound) {
		return model.Reservation{}, notFound
	}
	if err != nil {
		return model.Reservation{}, err
	}
	if id.Can(PermViewAll) {
		return res, nil
	}
	visitor, err := s.visitor(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if res.VisitorID != visitor.ID {
		return model.Reservation{}, notFound
	}
	return res, nil
}

// Availability reports remaining capacity for an item and slot.  It does
// not require an identity.
func (s *Service) Availability(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (a Availability, err error) {
	ctx, span := s.tracer.Start(ctx, "booking.Availability")
	start := time.Now()
	defer func() { err = s.finish(span, "availability", kind, start, err) }()

	slot = NormalizeSlot(slot)
	var version int64
	if s.cache != nil {
		cached, v, ok := s.cache.Get(ctx, kind, itemID, slot)
		if ok {
			return cached, nil
		}
		version = v
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	item, err := s.store.CatalogItem(ctx, kind, itemID)
	if err != nil {
		return Availability{}, catalogLookupError(kind, itemID, err)
	}
	booked, err := s.store.ConfirmedHeadcount(ctx, kind, itemID, slot)
	if err != nil {
		return Availability{}, err
	}
	a = Availability{
		Kind:      kind,
		ItemID:    itemID,
		Slot:      slot,
		Capacity:  item.Capacity,
		Booked:    booked,
		Remaining: max(item.Capacity-booked, 0),
	}
	if s.cache != nil {
		s.cache.Set(ctx, a, version)
	}
	return a, nil
}

func (s *Service) visitor(ctx context.Context, id Identity) (model.Visitor, error) {
	v, err := s.store.VisitorByUserID(ctx, id.UserID)
	if errors.Is(err, ErrRecordNotFound) {
		return model.Visitor{}, NewNotFound(CodeVisitorNotFound, "visitor profile not found")
	}
	return v, err
}

// validate checks the request against the resolved item: add-ons are a
// tour-only feature, and the slot must lie in the future and, for
// exhibitions, inside the exhibition's run.
func (s *Service) validate(req BookRequest, item model.CatalogItem) error {
	if req.Headcount < 1 {
		return NewValidation(CodeInvalidHeadcount, "visitors_count must be a positive integer").
			WithDetail("visitors_count", req.Headcount)
	}
	switch req.AddOn {
	case model.AddOnNone:
		if req.GuideID != nil && req.Kind == model.KindTour {
			return NewValidation(CodeInvalidAddOn, "guide_id requires the guide add-on")
		}
	case model.AddOnAudioGuide:
		if req.GuideID != nil {
			return NewValidation(CodeInvalidAddOn, "choose either an audio guide or a guide, not both")
		}
	case model.AddOnGuide:
		if req.GuideID == nil || *req.GuideID == 0 {
			return NewValidation(CodeInvalidAddOn, "guide_id is required for the guide add-on")
		}
	default:
		return NewValidation(CodeInvalidAddOn, "unknown add-on").WithDetail("add_on", string(req.AddOn))
	}
	if req.AddOn != model.AddOnNone && req.Kind != model.KindTour {
		return NewValidation(CodeInvalidAddOn, "add-ons are only offered with tours")
	}

	if req.ScheduledAt.IsZero() {
		return NewValidation(CodeInvalidSchedule, "schedule time is required")
	}
	if req.ScheduledAt.Before(s.now()) {
		return NewValidation(CodeInvalidSchedule, "schedule time is in the past")
	}
	if item.Kind == model.KindExhibition {
		if req.ScheduledAt.Before(startOfDay(item.ScheduledAt)) ||
			(item.EndsAt != nil && !req.ScheduledAt.Before(startOfDay(*item.EndsAt).AddDate(0, 0, 1))) {
			return NewValidation(CodeInvalidSchedule, "schedule time is outside the exhibition dates")
		}
	}
	return nil
}

func (s *Service) afterCommit(ctx context.Context, eventType string, id Identity, res model.Reservation) {
	// The request context may already be near its deadline; event delivery
	// gets its own short budget.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if s.cache != nil {
		s.cache.Invalidate(ctx, res.Kind, res.ItemID, res.ScheduledAt)
	}
	if s.events == nil {
		return
	}
	ev := queue.NewBookingEvent(eventType, id.UserID, res, s.now())
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish booking event failed", "event", eventType, "reservation_id", res.ID, "error", err)
	}
}

// finish converts err at the service boundary and records the outcome on
// the span and in metrics.
func (s *Service) finish(span trace.Span, op string, kind model.Kind, start time.Time, err error) error {
	defer span.End()
	be := AsError(err)
	outcome := "ok"
	if be != nil {
		outcome = string(be.Kind)
		span.SetStatus(codes.Error, be.Code)
		span.SetAttributes(attribute.String("booking.error_code", be.Code))
		if be.Kind == KindInternal {
			span.RecordError(err)
			s.log.Error("booking operation failed", "op", op, "kind", kind, "code", be.Code, "error", err)
		}
	}
	metrics.ObserveBooking(op, string(kind), outcome, time.Since(start))
	if be == nil {
		return nil
	}
	return be
}
