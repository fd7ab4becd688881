package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/model"
	"github.com/iliyamo/museum-booking/internal/queue"
	"github.com/iliyamo/museum-booking/internal/repository/memstore"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

// tickClock advances one second per call so CreatedAt values are ordered.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(time.Second)
	return now
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []queue.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.BookingEvent(nil), p.events...)
}

func testConfig() config.BookingConfig {
	return config.BookingConfig{
		AudioGuideFeeCents:    2000,
		GuideFeeCents:         5000,
		DefaultBasePriceCents: 5000,
		MinChargeLevel:        20,
		RentalWindow:          24 * time.Hour,
		StoreTimeout:          time.Second,
	}
}

func cents(v int64) *int64 { return &v }

func id64(v uint64) *uint64 { return &v }

type fixture struct {
	store   *memstore.Store
	svc     *booking.Service
	events  *recordingPublisher
	visitor model.Visitor
	who     booking.Identity
	tour    model.Tour
	slot    time.Time
}

func newFixture(t *testing.T, opts ...booking.Option) *fixture {
	t.Helper()
	st := memstore.New()
	v := st.AddVisitor(model.Visitor{UserID: 100, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})
	tour := st.AddTour(model.Tour{
		Name:        "Impressionists",
		TourDate:    testNow.AddDate(0, 0, 7),
		MaxVisitors: 20,
		PriceCents:  cents(5000),
		Status:      model.TourScheduled,
	})
	pub := &recordingPublisher{}
	clock := &tickClock{t: testNow}
	all := append([]booking.Option{booking.WithClock(clock.Now), booking.WithPublisher(pub)}, opts...)
	svc := booking.NewService(st, testConfig(), logger.Nop(), all...)
	return &fixture{
		store:   st,
		svc:     svc,
		events:  pub,
		visitor: v,
		who:     booking.Identity{UserID: 100, Role: model.RoleVisitor},
		tour:    tour,
		slot:    tour.TourDate.Add(10 * time.Hour),
	}
}

// addVisitor registers another visitor and returns its identity.
func (f *fixture) addVisitor(userID uint64) (model.Visitor, booking.Identity) {
	v := f.store.AddVisitor(model.Visitor{UserID: userID})
	return v, booking.Identity{UserID: userID, Role: model.RoleVisitor}
}

func (f *fixture) bookTour(t *testing.T, who booking.Identity, headcount int, addOn model.AddOn, guide *uint64) (model.Reservation, error) {
	t.Helper()
	return f.svc.Book(context.Background(), who, booking.BookRequest{
		Kind:        model.KindTour,
		ItemID:      f.tour.ID,
		Headcount:   headcount,
		ScheduledAt: f.slot,
		AddOn:       addOn,
		GuideID:     guide,
	})
}

func requireKind(t *testing.T, err error, kind booking.ErrorKind, code string) {
	t.Helper()
	require.Error(t, err)
	var be *booking.Error
	require.True(t, errors.As(err, &be), "want *booking.Error, got %T: %v", err, err)
	require.Equal(t, kind, be.Kind, be.Error())
	if code != "" {
		require.Equal(t, code, be.Code)
	}
}
