package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

// ---- booking.AdminStore ----

var _ booking.AdminStore = (*Store)(nil)

// read runs fn under the read lock after the configured latency and any
// fault registered for op.
func (s *Store) read(ctx context.Context, op string, fn func(st *state) error) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault(op); err != nil {
		return err
	}
	return fn(s.st)
}

// write is read with the write lock.
func (s *Store) write(ctx context.Context, op string, fn func(st *state) error) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(op); err != nil {
		return err
	}
	return fn(s.st)
}

func (st *state) newID() uint64 {
	st.nextID++
	return st.nextID
}

// ---- tours, exhibitions and masterclasses ----

func (s *Store) TourByID(ctx context.Context, id uint64) (model.Tour, error) {
	var out model.Tour
	err := s.read(ctx, "TourByID", func(st *state) error {
		t, ok := st.tours[id]
		if !ok {
			return booking.ErrRecordNotFound
		}
		out = st.joinTour(t)
		return nil
	})
	return out, err
}

func (s *Store) ListTours(ctx context.Context) ([]model.Tour, error) {
	var out []model.Tour
	err := s.read(ctx, "ListTours", func(st *state) error {
		for _, t := range st.tours {
			out = append(out, st.joinTour(t))
		}
		slices.SortFunc(out, func(a, b model.Tour) int {
			if c := b.TourDate.Compare(a.TourDate); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
		return nil
	})
	return out, err
}

func (s *Store) CreateTour(ctx context.Context, t *model.Tour) error {
	return s.write(ctx, "CreateTour", func(st *state) error {
		if err := st.checkTourRefs(*t); err != nil {
			return err
		}
		t.ID = st.newID()
		t.CreatedAt = time.Now().UTC()
		st.tours[t.ID] = *t
		return nil
	})
}

func (s *Store) UpdateTour(ctx context.Context, t model.Tour) error {
	return s.write(ctx, "UpdateTour", func(st *state) error {
		old, ok := st.tours[t.ID]
		if !ok {
			return booking.ErrRecordNotFound
		}
		if err := st.checkTourRefs(t); err != nil {
			return err
		}
		t.CreatedAt = old.CreatedAt
		st.tours[t.ID] = t
		return nil
	})
}

func (s *Store) DeleteTour(ctx context.Context, id uint64) error {
	return s.write(ctx, "DeleteTour", func(st *state) error {
		if _, ok := st.tours[id]; !ok {
			return booking.ErrRecordNotFound
		}
		return st.deleteItem(model.KindTour, id, func() { delete(st.tours, id) })
	})
}

func (s *Store) ListExhibitions(ctx context.Context) ([]model.Exhibition, error) {
	var out []model.Exhibition
	err := s.read(ctx, "ListExhibitions", func(st *state) error {
		for _, e := range st.exhibitions {
			out = append(out, e)
		}
		slices.SortFunc(out, func(a, b model.Exhibition) int {
			if c := b.StartDate.Compare(a.StartDate); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
		return nil
	})
	return out, err
}

func (s *Store) DeleteExhibition(ctx context.Context, id uint64) error {
	return s.write(ctx, "DeleteExhibition", func(st *state) error {
		if _, ok := st.exhibitions[id]; !ok {
			return booking.ErrRecordNotFound
		}
		return st.deleteItem(model.KindExhibition, id, func() { delete(st.exhibitions, id) })
	})
}

func (s *Store) ListMasterclasses(ctx context.Context) ([]model.Masterclass, error) {
	var out []model.Masterclass
	err := s.read(ctx, "ListMasterclasses", func(st *state) error {
		for _, m := range st.masterclasses {
			out = append(out, m)
		}
		slices.SortFunc(out, func(a, b model.Masterclass) int {
			if c := b.Date.Compare(a.Date); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
		return nil
	})
	return out, err
}

func (s *Store) DeleteMasterclass(ctx context.Context, id uint64) error {
	return s.write(ctx, "DeleteMasterclass", func(st *state) error {
		if _, ok := st.masterclasses[id]; !ok {
			return booking.ErrRecordNotFound
		}
		return st.deleteItem(model.KindMasterclass, id, func() { delete(st.masterclasses, id) })
	})
}

// deleteItem refuses while confirmed reservations reference the item and
// otherwise drops it along with its cancelled reservations.
func (st *state) deleteItem(kind model.Kind, id uint64, drop func()) error {
	for _, r := range st.reservations {
		if r.Kind == kind && r.ItemID == id && r.Status == model.ReservationConfirmed {
			return booking.ErrRecordInUse
		}
	}
	for k, r := range st.reservations {
		if r.Kind == kind && r.ItemID == id {
			delete(st.reservations, k)
		}
	}
	drop()
	return nil
}

func (st *state) checkTourRefs(t model.Tour) error {
	if t.GuideID != nil {
		if _, ok := st.guides[*t.GuideID]; !ok {
			return booking.ErrMissingReference
		}
	}
	if t.CollectionID != nil {
		if _, ok := st.collections[*t.CollectionID]; !ok {
			return booking.ErrMissingReference
		}
	}
	return nil
}

func (st *state) joinTour(t model.Tour) model.Tour {
	t.CollectionName, t.GuideName = "", ""
	if t.CollectionID != nil {
		t.CollectionName = st.collections[*t.CollectionID].Name
	}
	if t.GuideID != nil {
		if g, ok := st.guides[*t.GuideID]; ok {
			t.GuideName = strings.TrimSpace(g.FirstName + " " + g.LastName)
		}
	}
	return t
}

// ---- guides ----

func (s *Store) ListGuides(ctx context.Context) ([]model.Guide, error) {
	var out []model.Guide
	err := s.read(ctx, "ListGuides", func(st *state) error {
		for _, g := range st.guides {
			out = append(out, g)
		}
		slices.SortFunc(out, func(a, b model.Guide) int {
			return cmp.Or(
				cmp.Compare(a.LastName, b.LastName),
				cmp.Compare(a.FirstName, b.FirstName),
				cmp.Compare(a.ID, b.ID),
			)
		})
		return nil
	})
	return out, err
}

func (s *Store) CreateGuide(ctx context.Context, g *model.Guide) error {
	return s.write(ctx, "CreateGuide", func(st *state) error {
		g.ID = st.newID()
		st.guides[g.ID] = *g
		return nil
	})
}

func (s *Store) UpdateGuide(ctx context.Context, g model.Guide) error {
	return s.write(ctx, "UpdateGuide", func(st *state) error {
		if _, ok := st.guides[g.ID]; !ok {
			return booking.ErrRecordNotFound
		}
		st.guides[g.ID] = g
		return nil
	})
}

func (s *Store) DeleteGuide(ctx context.Context, id uint64) error {
	return s.write(ctx, "DeleteGuide", func(st *state) error {
		if _, ok := st.guides[id]; !ok {
			return booking.ErrRecordNotFound
		}
		for _, t := range st.tours {
			if t.GuideID != nil && *t.GuideID == id {
				return booking.ErrRecordInUse
			}
		}
		delete(st.guides, id)
		return nil
	})
}

// ---- collections and exhibits ----

func (s *Store) ListCollections(ctx context.Context) ([]model.Collection, error) {
	var out []model.Collection
	err := s.read(ctx, "ListCollections", func(st *state) error {
		counts := map[uint64]int{}
		for _, e := range st.exhibits {
			if e.CollectionID != nil {
				counts[*e.CollectionID]++
			}
		}
		for _, c := range st.collections {
			c.ExhibitCount = counts[c.ID]
			out = append(out, c)
		}
		slices.SortFunc(out, func(a, b model.Collection) int {
			return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		})
		return nil
	})
	return out, err
}

func (s *Store) CreateCollection(ctx context.Context, c *model.Collection) error {
	return s.write(ctx, "CreateCollection", func(st *state) error {
		c.ID = st.newID()
		c.ExhibitCount = 0
		st.collections[c.ID] = *c
		return nil
	})
}

func (s *Store) UpdateCollection(ctx context.Context, c model.Collection) error {
	return s.write(ctx, "UpdateCollection", func(st *state) error {
		if _, ok := st.collections[c.ID]; !ok {
			return booking.ErrRecordNotFound
		}
		st.collections[c.ID] = c
		return nil
	})
}

func (s *Store) DeleteCollection(ctx context.Context, id uint64) error {
	return s.write(ctx, "DeleteCollection", func(st *state) error {
		if _, ok := st.collections[id]; !ok {
			return booking.ErrRecordNotFound
		}
		for _, e := range st.exhibits {
			if e.CollectionID != nil && *e.CollectionID == id {
				return booking.ErrRecordInUse
			}
		}
		for tid, t := range st.tours {
			if t.CollectionID != nil && *t.CollectionID == id {
				t.CollectionID = nil
				st.tours[tid] = t
			}
		}
		delete(st.collections, id)
		return nil
	})
}

func (s *Store) ListExhibits(ctx context.Context) ([]model.Exhibit, error) {
	var out []model.Exhibit
	err := s.read(ctx, "ListExhibits", func(st *state) error {
		for _, e := range st.exhibits {
			if e.CollectionID != nil {
				e.CollectionName = st.collections[*e.CollectionID].Name
			}
			out = append(out, e)
		}
		slices.SortFunc(out, func(a, b model.Exhibit) int {
			return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		})
		return nil
	})
	return out, err
}

func (s *Store) CreateExhibit(ctx context.Context, e *model.Exhibit) error {
	return s.write(ctx, "CreateExhibit", func(st *state) error {
		if err := st.checkCollection(e.CollectionID); err != nil {
			return err
		}
		e.ID = st.newID()
		st.exhibits[e.ID] = *e
		return nil
	})
}

func (s *Store) UpdateExhibit(ctx context.Context, e model.Exhibit) error {
	return s.write(ctx, "UpdateExhibit", func(st *state) error {
		if _, ok := st.exhibits[e.ID]; !ok {
			return booking.ErrRecordNotFound
		}
		if err := st.checkCollection(e.CollectionID); err != nil {
			return err
		}
		st.exhibits[e.ID] = e
		return nil
	})
}

func (s *Store) DeleteExhibit(ctx context.Context, id uint64) error {
	return s.write(ctx, "DeleteExhibit", func(st *state) error {
		if _, ok := st.exhibits[id]; !ok {
			return booking.ErrRecordNotFound
		}
		delete(st.exhibits, id)
		return nil
	})
}

func (st *state) checkCollection(id *uint64) error {
	if id == nil {
		return nil
	}
	if _, ok := st.collections[*id]; !ok {
		return booking.ErrMissingReference
	}
	return nil
}

// ---- users ----

func (s *Store) ListUsers(ctx context.Context) ([]model.UserAccount, error) {
	var out []model.UserAccount
	err := s.read(ctx, "ListUsers", func(st *state) error {
		for _, u := range st.users {
			out = append(out, st.account(u))
		}
		slices.SortFunc(out, func(a, b model.UserAccount) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(b.ID, a.ID)
		})
		return nil
	})
	return out, err
}

func (s *Store) UserByID(ctx context.Context, id uint64) (model.UserAccount, error) {
	var out model.UserAccount
	err := s.read(ctx, "UserByID", func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return booking.ErrRecordNotFound
		}
		out = st.account(u)
		return nil
	})
	return out, err
}

func (s *Store) CreateUser(ctx context.Context, u *model.UserAccount) error {
	return s.write(ctx, "CreateUser", func(st *state) error {
		if st.emailTaken(u.Email, 0) {
			return booking.ErrDuplicateEmail
		}
		now := time.Now().UTC()
		u.ID = st.newID()
		u.CreatedAt, u.UpdatedAt = now, now
		st.users[u.ID] = u.User
		v := model.Visitor{
			ID: st.newID(), UserID: u.ID, FirstName: u.FirstName, LastName: u.LastName,
			Email: u.Email, Phone: u.Phone, CreatedAt: now, UpdatedAt: now,
		}
		st.visitors[v.ID] = v
		return nil
	})
}

func (s *Store) UpdateUser(ctx context.Context, u model.UserAccount) error {
	return s.write(ctx, "UpdateUser", func(st *state) error {
		old, ok := st.users[u.ID]
		if !ok {
			return booking.ErrRecordNotFound
		}
		if st.emailTaken(u.Email, u.ID) {
			return booking.ErrDuplicateEmail
		}
		next := u.User
		next.CreatedAt = old.CreatedAt
		next.UpdatedAt = time.Now().UTC()
		if next.PasswordHash == "" {
			next.PasswordHash = old.PasswordHash
		}
		st.users[u.ID] = next
		for id, v := range st.visitors {
			if v.UserID == u.ID {
				v.FirstName, v.LastName, v.Email, v.Phone = u.FirstName, u.LastName, u.Email, u.Phone
				v.UpdatedAt = next.UpdatedAt
				st.visitors[id] = v
			}
		}
		return nil
	})
}

// DeleteUser refuses while the user's visitor profile holds any
// reservation, confirmed or cancelled.
func (s *Store) DeleteUser(ctx context.Context, id uint64) error {
	return s.write(ctx, "DeleteUser", func(st *state) error {
		if _, ok := st.users[id]; !ok {
			return booking.ErrRecordNotFound
		}
		var profiles []uint64
		for vid, v := range st.visitors {
			if v.UserID == id {
				profiles = append(profiles, vid)
			}
		}
		for _, r := range st.reservations {
			if slices.Contains(profiles, r.VisitorID) {
				return booking.ErrRecordInUse
			}
		}
		for _, vid := range profiles {
			delete(st.visitors, vid)
		}
		delete(st.users, id)
		return nil
	})
}

func (st *state) account(u model.User) model.UserAccount {
	out := model.UserAccount{User: u}
	for _, v := range st.visitors {
		if v.UserID == u.ID {
			out.FirstName, out.LastName, out.Phone = v.FirstName, v.LastName, v.Phone
			break
		}
	}
	return out
}

func (st *state) emailTaken(email string, except uint64) bool {
	for _, u := range st.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// ---- audio guides ----

func (s *Store) ListAudioGuides(ctx context.Context) ([]model.AudioGuideUnit, error) {
	var out []model.AudioGuideUnit
	err := s.read(ctx, "ListAudioGuides", func(st *state) error {
		out = make([]model.AudioGuideUnit, 0, len(st.units))
		for _, u := range st.units {
			out = append(out, u)
		}
		booking.SortByPreference(out)
		return nil
	})
	return out, err
}
