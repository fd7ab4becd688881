package booking

import (
	"context"
	"errors"
	"sort"

	"github.com/iliyamo/museum-booking/internal/model"
)

// ErrPoolExhausted is returned by Allocate when no unit qualifies.
var ErrPoolExhausted = errors.New("audio guide pool exhausted")

// maxAllocateAttempts bounds retries when a picked unit was taken between
// the read and the conditional update.
const maxAllocateAttempts = 3

// Pool allocates audio-guide units inside a booking transaction.
type Pool struct {
	minCharge int
}

func NewPool(minCharge int) *Pool { return &Pool{minCharge: minCharge} }

// Allocate picks the best available unit and marks it in_use within tx.
func (p *Pool) Allocate(ctx context.Context, tx Tx) (model.AudioGuideUnit, error) {
	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		unit, err := tx.NextAudioGuide(ctx, p.minCharge)
		if errors.Is(err, ErrRecordNotFound) {
			return model.AudioGuideUnit{}, ErrPoolExhausted
		}
		if err != nil {
			return model.AudioGuideUnit{}, err
		}
		ok, err := tx.UpdateAudioGuideStatus(ctx, unit.ID, model.AudioGuideAvailable, model.AudioGuideInUse)
		if err != nil {
			return model.AudioGuideUnit{}, err
		}
		if ok {
			unit.Status = model.AudioGuideInUse
			return unit, nil
		}
	}
	return model.AudioGuideUnit{}, ErrPoolExhausted
}

// Release returns a unit to the pool.  A unit that is not in_use is left
// untouched.
func (p *Pool) Release(ctx context.Context, tx Tx, unitID uint64) error {
	_, err := tx.UpdateAudioGuideStatus(ctx, unitID, model.AudioGuideInUse, model.AudioGuideAvailable)
	return err
}

// Eligible reports whether u may be handed out.
func Eligible(u model.AudioGuideUnit, minCharge int) bool {
	return u.Status == model.AudioGuideAvailable && u.ChargeLevel > minCharge
}

// SortByPreference orders units best first: highest charge, then most
// recently serviced (never serviced sorts last), then lowest id.
func SortByPreference(units []model.AudioGuideUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if a.ChargeLevel != b.ChargeLevel {
			return a.ChargeLevel > b.ChargeLevel
		}
		switch {
		case a.LastMaintenanceAt != nil && b.LastMaintenanceAt == nil:
			return true
		case a.LastMaintenanceAt == nil && b.LastMaintenanceAt != nil:
			return false
		case a.LastMaintenanceAt != nil && !a.LastMaintenanceAt.Equal(*b.LastMaintenanceAt):
			return a.LastMaintenanceAt.After(*b.LastMaintenanceAt)
		}
		return a.ID < b.ID
	})
}

// SelectBest returns the unit the pool policy would allocate from units.
func SelectBest(units []model.AudioGuideUnit, minCharge int) (model.AudioGuideUnit, bool) {
	var eligible []model.AudioGuideUnit
	for _, u := range units {
		if Eligible(u, minCharge) {
			eligible = append(eligible, u)
		}
	}
	if len(eligible) == 0 {
		return model.AudioGuideUnit{}, false
	}
	SortByPreference(eligible)
	return eligible[0], true
}
