// Package memstore is an in-memory implementation of booking.Store and
// booking.AdminStore.  WithinTx serialises transactions and works on a
// copy of the state that is swapped in only on success, so a failing
// callback leaves nothing behind.  It backs the booking and handler
// tests.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

type resKey struct {
	kind model.Kind
	id   uint64
}

type state struct {
	visitors      map[uint64]model.Visitor
	tours         map[uint64]model.Tour
	exhibitions   map[uint64]model.Exhibition
	masterclasses map[uint64]model.Masterclass
	guides        map[uint64]model.Guide
	collections   map[uint64]model.Collection
	exhibits      map[uint64]model.Exhibit
	users         map[uint64]model.User
	units         map[uint64]model.AudioGuideUnit
	reservations  map[resKey]model.Reservation
	rentals       map[uint64]model.RentalRecord
	nextRes       map[model.Kind]uint64
	nextRental    uint64
	nextID        uint64
}

func newState() *state {
	return &state{
		visitors:      map[uint64]model.Visitor{},
		tours:         map[uint64]model.Tour{},
		exhibitions:   map[uint64]model.Exhibition{},
		masterclasses: map[uint64]model.Masterclass{},
		guides:        map[uint64]model.Guide{},
		collections:   map[uint64]model.Collection{},
		exhibits:      map[uint64]model.Exhibit{},
		users:         map[uint64]model.User{},
		units:         map[uint64]model.AudioGuideUnit{},
		reservations:  map[resKey]model.Reservation{},
		rentals:       map[uint64]model.RentalRecord{},
		nextRes:       map[model.Kind]uint64{},
	}
}

func (s *state) clone() *state {
	return &state{
		visitors:      maps.Clone(s.visitors),
		tours:         maps.Clone(s.tours),
		exhibitions:   maps.Clone(s.exhibitions),
		masterclasses: maps.Clone(s.masterclasses),
		guides:        maps.Clone(s.guides),
		collections:   maps.Clone(s.collections),
		exhibits:      maps.Clone(s.exhibits),
		users:         maps.Clone(s.users),
		units:         maps.Clone(s.units),
		reservations:  maps.Clone(s.reservations),
		rentals:       maps.Clone(s.rentals),
		nextRes:       maps.Clone(s.nextRes),
		nextRental:    s.nextRental,
		nextID:        s.nextID,
	}
}

// Store holds all state behind one lock.
type Store struct {
	mu      sync.RWMutex
	st      *state
	faults  map[string]error
	latency time.Duration
}

func New() *Store {
	return &Store{st: newState(), faults: map[string]error{}}
}

// FailOn makes the named Tx or Store method return err until cleared
// with FailOn(op, nil).
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// SetLatency delays every read and transaction by d, honouring ctx.
func (s *Store) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

func (s *Store) wait(ctx context.Context) error {
	s.mu.RLock()
	d := s.latency
	s.mu.RUnlock()
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Store) fault(op string) error {
	return s.faults[op]
}

// ---- seeding and inspection ----

// AddVisitor stores v, assigning an id when v.ID is zero.
func (s *Store) AddVisitor(v model.Visitor) model.Visitor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == 0 {
		s.st.nextID++
		v.ID = s.st.nextID
	}
	s.st.visitors[v.ID] = v
	return v
}

func (s *Store) AddTour(t model.Tour) model.Tour {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		s.st.nextID++
		t.ID = s.st.nextID
	}
	s.st.tours[t.ID] = t
	return t
}

func (s *Store) AddExhibition(e model.Exhibition) model.Exhibition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.st.nextID++
		e.ID = s.st.nextID
	}
	s.st.exhibitions[e.ID] = e
	return e
}

func (s *Store) AddMasterclass(m model.Masterclass) model.Masterclass {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		s.st.nextID++
		m.ID = s.st.nextID
	}
	s.st.masterclasses[m.ID] = m
	return m
}

// AddGuide stores a guide with the given id and status.
func (s *Store) AddGuide(id uint64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.guides[id] = model.Guide{ID: id, Status: status}
}

func (s *Store) AddCollection(c model.Collection) model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		s.st.nextID++
		c.ID = s.st.nextID
	}
	s.st.collections[c.ID] = c
	return c
}

func (s *Store) AddExhibit(e model.Exhibit) model.Exhibit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.st.nextID++
		e.ID = s.st.nextID
	}
	s.st.exhibits[e.ID] = e
	return e
}

// AddUser stores u, assigning an id when u.ID is zero.  Pair it with
// AddVisitor for a bookable account.
func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.st.nextID++
		u.ID = s.st.nextID
	}
	s.st.users[u.ID] = u
	return u
}

func (s *Store) AddAudioGuide(u model.AudioGuideUnit) model.AudioGuideUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		s.st.nextID++
		u.ID = s.st.nextID
	}
	if u.Status == "" {
		u.Status = model.AudioGuideAvailable
	}
	s.st.units[u.ID] = u
	return u
}

func (s *Store) AudioGuide(id uint64) (model.AudioGuideUnit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.st.units[id]
	return u, ok
}

// AllReservations returns every reservation of every visitor.
func (s *Store) AllReservations() []model.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reservation, 0, len(s.st.reservations))
	for _, r := range s.st.reservations {
		out = append(out, r)
	}
	return out
}

func (s *Store) Rentals() []model.RentalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.RentalRecord, 0, len(s.st.rentals))
	for _, r := range s.st.rentals {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- booking.Store ----

func (s *Store) VisitorByUserID(ctx context.Context, userID uint64) (model.Visitor, error) {
	if err := s.wait(ctx); err != nil {
		return model.Visitor{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("VisitorByUserID"); err != nil {
		return model.Visitor{}, err
	}
	for _, v := range s.st.visitors {
		if v.UserID == userID {
			return v, nil
		}
	}
	return model.Visitor{}, booking.ErrRecordNotFound
}

func (s *Store) CatalogItem(ctx context.Context, kind model.Kind, id uint64) (model.CatalogItem, error) {
	if err := s.wait(ctx); err != nil {
		return model.CatalogItem{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.catalogItem(kind, id)
}

func (s *Store) ConfirmedHeadcount(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (int, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.confirmedHeadcount(kind, itemID, slot), nil
}

func (s *Store) ReservationsByVisitor(ctx context.Context, visitorID uint64) ([]model.Reservation, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault("ReservationsByVisitor"); err != nil {
		return nil, err
	}
	var out []model.Reservation
	for _, r := range s.st.reservations {
		if r.VisitorID == visitorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Reservation(ctx context.Context, kind model.Kind, id uint64) (model.Reservation, error) {
	if err := s.wait(ctx); err != nil {
		return model.Reservation{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.st.reservations[resKey{kind, id}]
	if !ok {
		return model.Reservation{}, booking.ErrRecordNotFound
	}
	return r, nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx booking.Tx) error) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault("WithinTx"); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, &tx{st: work, store: s}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

// ---- state helpers ----

func (st *state) catalogItem(kind model.Kind, id uint64) (model.CatalogItem, error) {
	switch kind {
	case model.KindTour:
		if t, ok := st.tours[id]; ok {
			return t.CatalogItem(), nil
		}
	case model.KindExhibition:
		if e, ok := st.exhibitions[id]; ok {
			return e.CatalogItem(), nil
		}
	case model.KindMasterclass:
		if m, ok := st.masterclasses[id]; ok {
			return m.CatalogItem(), nil
		}
	}
	return model.CatalogItem{}, booking.ErrRecordNotFound
}

func (st *state) confirmedHeadcount(kind model.Kind, itemID uint64, slot time.Time) int {
	n := 0
	for _, r := range st.reservations {
		if r.Kind == kind && r.ItemID == itemID && r.ScheduledAt.Equal(slot) && r.Status == model.ReservationConfirmed {
			n += r.Headcount
		}
	}
	return n
}
