package booking

import (
	"github.com/iliyamo/museum-booking/internal/config"
	"github.com/iliyamo/museum-booking/internal/model"
)

// Pricing computes reservation totals in cents.
type Pricing struct {
	AudioGuideFeeCents    int64
	GuideFeeCents         int64
	DefaultBasePriceCents int64
}

func NewPricing(cfg config.BookingConfig) Pricing {
	return Pricing{
		AudioGuideFeeCents:    cfg.AudioGuideFeeCents,
		GuideFeeCents:         cfg.GuideFeeCents,
		DefaultBasePriceCents: cfg.DefaultBasePriceCents,
	}
}

// Quote is the price breakdown of one booking.  RentalFeeCents is the
// part of AddOnCents charged for the audio-guide rental.
type Quote struct {
	BaseCents      int64
	AddOnCents     int64
	RentalFeeCents int64
	TotalCents     int64
}

// Compute returns base*headcount plus the add-on fee: the audio-guide fee
// per head, or the flat guide fee.
func (p Pricing) Compute(basePriceCents *int64, headcount int, addOn model.AddOn) (Quote, error) {
	if headcount < 1 {
		return Quote{}, NewValidation(CodeInvalidHeadcount, "headcount must be a positive integer").
			WithDetail("headcount", headcount)
	}
	base := p.DefaultBasePriceCents
	if basePriceCents != nil {
		base = *basePriceCents
	}
	q := Quote{BaseCents: base * int64(headcount)}
	switch addOn {
	case model.AddOnNone:
	case model.AddOnAudioGuide:
		q.RentalFeeCents = p.AudioGuideFeeCents * int64(headcount)
		q.AddOnCents = q.RentalFeeCents
	case model.AddOnGuide:
		q.AddOnCents = p.GuideFeeCents
	default:
		return Quote{}, NewValidation(CodeInvalidAddOn, "unknown add-on").WithDetail("add_on", string(addOn))
	}
	q.TotalCents = q.BaseCents + q.AddOnCents
	return q, nil
}
