package model

import "time"

// ReservationStatus is the ledger state of a reservation.  The only
// permitted transition is confirmed -> cancelled.
type ReservationStatus string

const (
    ReservationConfirmed ReservationStatus = "confirmed"
    ReservationCancelled ReservationStatus = "cancelled"
)

// AddOn is the optional extra attached to a tour booking.  At most one
// add-on may be selected per booking.
type AddOn string

const (
    AddOnNone       AddOn = ""
    AddOnAudioGuide AddOn = "audio"
    AddOnGuide      AddOn = "guide"
)

// Reservation records one booking of a catalog item by a visitor.  It
// is stored in the per-kind order table (tour_orders, exhibition_orders
// or masterclass_orders).
//
// Fields:
//  ID           – primary key within the kind's table.
//  VisitorID    – owner of the reservation.
//  Kind         – tour, exhibition or masterclass.
//  ItemID       – catalog item booked.
//  ItemName     – catalog display name, joined on read.
//  Headcount    – number of people covered.
//  TotalCents   – computed total price in cents.
//  ScheduledAt  – the booked time slot.
//  Status       – confirmed or cancelled.
//  AddOn        – add-on selected at booking time (tours only).
//  AudioGuideID – unit allocated for the audio add-on.
//  GuideID      – guide requested with the guide add-on.
//  CreatedAt    – creation timestamp.
//  CancelledAt  – set when the reservation is cancelled.
type Reservation struct {
    ID           uint64
    VisitorID    uint64
    Kind         Kind
    ItemID       uint64
    ItemName     string
    Headcount    int
    TotalCents   int64
    ScheduledAt  time.Time
    Status       ReservationStatus
    AddOn        AddOn
    AudioGuideID *uint64
    GuideID      *uint64
    CreatedAt    time.Time
    CancelledAt  *time.Time
}
