package booking

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/museum-booking/internal/model"
)

// Sentinel errors storage implementations return so the booking core can
// tell "absent" and "still referenced" apart from failures.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrRecordInUse    = errors.New("record in use")
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrMissingReference reports a foreign key naming a row that does
	// not exist, such as a tour's guide or an exhibit's collection.
	ErrMissingReference = errors.New("referenced record does not exist")
)

// Store is the persistent state the booking core reads and writes.  All
// writes go through WithinTx.
type Store interface {
	VisitorByUserID(ctx context.Context, userID uint64) (model.Visitor, error)
	CatalogItem(ctx context.Context, kind model.Kind, id uint64) (model.CatalogItem, error)
	ConfirmedHeadcount(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (int, error)
	ReservationsByVisitor(ctx context.Context, visitorID uint64) ([]model.Reservation, error)
	Reservation(ctx context.Context, kind model.Kind, id uint64) (model.Reservation, error)

	// WithinTx runs fn in one transaction.  fn returning an error rolls
	// every write back, including audio-guide status changes.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view used by the ledger, the pool and the admin
// service.  Methods ending in ForUpdate lock the returned row until the
// transaction ends.
type Tx interface {
	LockCatalogItem(ctx context.Context, kind model.Kind, id uint64) (model.CatalogItem, error)
	ConfirmedHeadcount(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (int, error)
	HasConfirmedBooking(ctx context.Context, visitorID uint64, kind model.Kind, itemID uint64, slot time.Time) (bool, error)
	GuideStatus(ctx context.Context, guideID uint64) (string, error)

	// NextAudioGuide returns the best available unit above minCharge in
	// pool order, skipping rows other transactions hold.
	NextAudioGuide(ctx context.Context, minCharge int) (model.AudioGuideUnit, error)
	AudioGuideForUpdate(ctx context.Context, id uint64) (model.AudioGuideUnit, error)
	// UpdateAudioGuideStatus moves a unit from one status to another and
	// reports false when the unit was not in the from status.
	UpdateAudioGuideStatus(ctx context.Context, id uint64, from, to model.AudioGuideStatus) (bool, error)

	InsertReservation(ctx context.Context, r *model.Reservation) error
	ReservationForUpdate(ctx context.Context, kind model.Kind, id uint64) (model.Reservation, error)
	MarkReservationCancelled(ctx context.Context, kind model.Kind, id uint64, at time.Time) error

	InsertRental(ctx context.Context, r *model.RentalRecord) error
	ActiveRentalForUpdate(ctx context.Context, kind model.Kind, reservationID uint64) (model.RentalRecord, error)
	MarkRentalReturned(ctx context.Context, rentalID uint64, at time.Time) error
}

// AdminStore backs AdminService.  Delete methods return ErrRecordNotFound
// for an unknown id and ErrRecordInUse while other rows still depend on
// the record: confirmed reservations for catalog items, any reservation
// for users, tours for guides and exhibits for collections.
type AdminStore interface {
	TourByID(ctx context.Context, id uint64) (model.Tour, error)
	ListTours(ctx context.Context) ([]model.Tour, error)
	CreateTour(ctx context.Context, t *model.Tour) error
	UpdateTour(ctx context.Context, t model.Tour) error
	DeleteTour(ctx context.Context, id uint64) error

	ListExhibitions(ctx context.Context) ([]model.Exhibition, error)
	DeleteExhibition(ctx context.Context, id uint64) error
	ListMasterclasses(ctx context.Context) ([]model.Masterclass, error)
	DeleteMasterclass(ctx context.Context, id uint64) error

	ListGuides(ctx context.Context) ([]model.Guide, error)
	CreateGuide(ctx context.Context, g *model.Guide) error
	UpdateGuide(ctx context.Context, g model.Guide) error
	DeleteGuide(ctx context.Context, id uint64) error

	ListCollections(ctx context.Context) ([]model.Collection, error)
	CreateCollection(ctx context.Context, c *model.Collection) error
	UpdateCollection(ctx context.Context, c model.Collection) error
	DeleteCollection(ctx context.Context, id uint64) error

	ListExhibits(ctx context.Context) ([]model.Exhibit, error)
	CreateExhibit(ctx context.Context, e *model.Exhibit) error
	UpdateExhibit(ctx context.Context, e model.Exhibit) error
	DeleteExhibit(ctx context.Context, id uint64) error

	// CreateUser inserts the user together with its visitor profile.
	// UpdateUser keeps the stored password when PasswordHash is empty.
	// Both return ErrDuplicateEmail when the email belongs to another
	// account.
	ListUsers(ctx context.Context) ([]model.UserAccount, error)
	UserByID(ctx context.Context, id uint64) (model.UserAccount, error)
	CreateUser(ctx context.Context, u *model.UserAccount) error
	UpdateUser(ctx context.Context, u model.UserAccount) error
	DeleteUser(ctx context.Context, id uint64) error

	ListAudioGuides(ctx context.Context) ([]model.AudioGuideUnit, error)
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
