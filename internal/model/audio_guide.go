package model

import "time"

// AudioGuideStatus is the pool state of a physical audio-guide device.
type AudioGuideStatus string

const (
    AudioGuideAvailable   AudioGuideStatus = "available"
    AudioGuideInUse       AudioGuideStatus = "in_use"
    AudioGuideMaintenance AudioGuideStatus = "maintenance"
)

// AudioGuideUnit mirrors the `audio_guides` table.  A unit is in_use
// exactly while one active rental references it.
type AudioGuideUnit struct {
    ID                uint64           // audio_guides.id
    DeviceNumber      string           // audio_guides.device_number
    Language          string           // audio_guides.language
    ChargeLevel       int              // audio_guides.charge_level (0-100)
    Status            AudioGuideStatus // audio_guides.status
    LastMaintenanceAt *time.Time       // audio_guides.last_maintenance_at (nullable)
}

// RentalStatus is the state of an audio-guide rental.
type RentalStatus string

const (
    RentalActive   RentalStatus = "active"
    RentalReturned RentalStatus = "returned"
)

// RentalRecord mirrors the `audio_guide_rentals` table.  It links one
// reservation to one unit for [RentDate, ReturnDate].
type RentalRecord struct {
    ID              uint64       // audio_guide_rentals.id
    ReservationKind Kind         // audio_guide_rentals.reservation_kind
    ReservationID   uint64       // audio_guide_rentals.reservation_id
    VisitorID       uint64       // audio_guide_rentals.visitor_id
    UnitID          uint64       // audio_guide_rentals.audio_guide_id
    RentDate        time.Time    // audio_guide_rentals.rent_date
    ReturnDate      time.Time    // audio_guide_rentals.return_date
    FeeCents        int64        // audio_guide_rentals.rental_fee_cents
    Status          RentalStatus // audio_guide_rentals.status
    ReturnedAt      *time.Time   // audio_guide_rentals.returned_at (nullable)
}
