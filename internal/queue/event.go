// Package queue defines the booking event payload and the RabbitMQ
// consumer that records events in the booking log.
package queue

import (
    "strconv"
    "time"

    "github.com/iliyamo/museum-booking/internal/model"
)

// Event types.  The AMQP publisher uses them as queue names.
const (
    EventBookingConfirmed = "booking.confirmed"
    EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a reservation is confirmed or
// cancelled.  It carries enough for downstream consumers to log or notify
// without querying the database.
type BookingEvent struct {
    Type          string  `json:"type"`
    ReservationID uint64  `json:"reservation_id"`
    Kind          string  `json:"kind"`
    UserID        uint64  `json:"user_id"`
    VisitorID     uint64  `json:"visitor_id"`
    ItemID        uint64  `json:"item_id"`
    ItemName      string  `json:"item_name"`
    Headcount     int     `json:"headcount"`
    TotalCents    int64   `json:"total_cents"`
    ScheduledAt   string  `json:"scheduled_at"`
    AddOn         string  `json:"add_on,omitempty"`
    AudioGuideID  *uint64 `json:"audio_guide_id,omitempty"`
    GuideID       *uint64 `json:"guide_id,omitempty"`
    OccurredAt    string  `json:"occurred_at"`
}

// NewBookingEvent builds an event of the given type from a reservation.
func NewBookingEvent(eventType string, userID uint64, r model.Reservation, at time.Time) BookingEvent {
    return BookingEvent{
        Type:          eventType,
        ReservationID: r.ID,
        Kind:          string(r.Kind),
        UserID:        userID,
        VisitorID:     r.VisitorID,
        ItemID:        r.ItemID,
        ItemName:      r.ItemName,
        Headcount:     r.Headcount,
        TotalCents:    r.TotalCents,
        ScheduledAt:   r.ScheduledAt.UTC().Format(time.RFC3339),
        AddOn:         string(r.AddOn),
        AudioGuideID:  r.AudioGuideID,
        GuideID:       r.GuideID,
        OccurredAt:    at.UTC().Format(time.RFC3339),
    }
}

// Key is the partition/routing key for the event: kind and reservation id
// together, since reservation ids repeat across kinds.
func (e BookingEvent) Key() string {
    return e.Kind + ":" + strconv.FormatUint(e.ReservationID, 10)
}
