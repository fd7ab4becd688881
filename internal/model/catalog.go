package model

import "time"

// Kind identifies which ledger a reservation belongs to.  Reservation ids
// are only unique within a kind, so (Kind, ID) is the full key.
type Kind string

const (
    KindTour        Kind = "tour"
    KindExhibition  Kind = "exhibition"
    KindMasterclass Kind = "masterclass"
)

// Kinds lists every reservation kind in the order used when a cancel
// request does not name one.
var Kinds = []Kind{KindTour, KindExhibition, KindMasterclass}

// ParseKind accepts singular and plural spellings ("tour", "tours").
func ParseKind(s string) (Kind, bool) {
    switch s {
    case "tour", "tours":
        return KindTour, true
    case "exhibition", "exhibitions":
        return KindExhibition, true
    case "masterclass", "masterclasses":
        return KindMasterclass, true
    }
    return "", false
}

// Catalog statuses.
const (
    TourScheduled = "scheduled"
    TourCancelled = "cancelled"
    TourFinished  = "finished"

    ExhibitionUpcoming = "upcoming"
    ExhibitionActive   = "active"
    ExhibitionClosed   = "closed"

    MasterclassScheduled = "scheduled"

    GuideActive   = "active"
    GuideInactive = "inactive"
)

// CatalogItem is the booking core's view of a tour, exhibition or
// masterclass.  It is read-only to the core.
//
// Fields:
//  Kind           – which catalog table the row came from.
//  ID             – primary key within that table.
//  Name           – display name.
//  BasePriceCents – per-head price; nil when the catalog has none.
//  ScheduledAt    – tour date, exhibition start date or masterclass date.
//  EndsAt         – exhibition end date (nil for other kinds).
//  Capacity       – max visitors per time slot.
//  Status         – catalog status string.
//  GuideID        – guide assigned to a tour, if any.
type CatalogItem struct {
    Kind           Kind
    ID             uint64
    Name           string
    BasePriceCents *int64
    ScheduledAt    time.Time
    EndsAt         *time.Time
    Capacity       int
    Status         string
    GuideID        *uint64
}

// Tour mirrors the `tours` table.
type Tour struct {
    ID              uint64    // tours.id
    Name            string    // tours.tour_name
    TourDate        time.Time // tours.tour_date
    TourType        string    // tours.tour_type
    HallNumbers     string    // tours.hall_numbers
    MaxVisitors     int       // tours.max_visitors
    DurationMinutes int       // tours.duration_minutes
    PriceCents      *int64    // tours.price_cents (nullable)
    Status          string    // tours.status
    CollectionID    *uint64   // tours.collection_id (nullable)
    GuideID         *uint64   // tours.guide_id (nullable)
    CollectionName  string    // joined from collections
    GuideName       string    // joined from guides
    CreatedAt       time.Time // tours.created_at
}

// Exhibition mirrors the `exhibitions` table.
type Exhibition struct {
    ID               uint64    // exhibitions.id
    Name             string    // exhibitions.exhibition_name
    Description      string    // exhibitions.description
    StartDate        time.Time // exhibitions.start_date
    EndDate          time.Time // exhibitions.end_date
    Location         string    // exhibitions.location
    MaxVisitors      int       // exhibitions.max_visitors
    TicketPriceCents *int64    // exhibitions.ticket_price_cents (nullable)
    Status           string    // exhibitions.status
}

// Masterclass mirrors the `masterclasses` table.
type Masterclass struct {
    ID              uint64    // masterclasses.id
    Name            string    // masterclasses.masterclass_name
    Description     string    // masterclasses.description
    Date            time.Time // masterclasses.masterclass_date
    DurationMinutes int       // masterclasses.duration_minutes
    MaxParticipants int       // masterclasses.max_participants
    PriceCents      *int64    // masterclasses.price_cents (nullable)
    InstructorName  string    // masterclasses.instructor_name
    Location        string    // masterclasses.location
    SkillLevel      string    // masterclasses.skill_level
    Status          string    // masterclasses.status
}

// Guide mirrors the `guides` table.
type Guide struct {
    ID             uint64    // guides.id
    FirstName      string    // guides.first_name
    LastName       string    // guides.last_name
    Phone          string    // guides.phone_number
    Email          string    // guides.email
    Specialization string    // guides.specialization
    Status         string    // guides.status
    HireDate       time.Time // guides.hire_date
}

// Collection mirrors the `collections` table.
type Collection struct {
    ID           uint64 // collections.id
    Name         string // collections.collection_name
    CreationYear int    // collections.creation_year
    ExhibitCount int    // derived
}

// Exhibit mirrors the `exhibits` table.
type Exhibit struct {
    ID              uint64  // exhibits.id
    Name            string  // exhibits.exhibit_name
    CreationYear    int     // exhibits.creation_year
    ExhibitType     string  // exhibits.exhibit_type
    ConditionStatus string  // exhibits.condition_status
    CollectionID    *uint64 // exhibits.collection_id (nullable)
    CollectionName  string  // joined from collections
}

// CatalogItem returns the booking core's view of the tour.
func (t Tour) CatalogItem() CatalogItem {
    return CatalogItem{
        Kind:           KindTour,
        ID:             t.ID,
        Name:           t.Name,
        BasePriceCents: t.PriceCents,
        ScheduledAt:    t.TourDate,
        Capacity:       t.MaxVisitors,
        Status:         t.Status,
        GuideID:        t.GuideID,
    }
}

// CatalogItem returns the booking core's view of the exhibition.
func (e Exhibition) CatalogItem() CatalogItem {
    end := e.EndDate
    return CatalogItem{
        Kind:           KindExhibition,
        ID:             e.ID,
        Name:           e.Name,
        BasePriceCents: e.TicketPriceCents,
        ScheduledAt:    e.StartDate,
        EndsAt:         &end,
        Capacity:       e.MaxVisitors,
        Status:         e.Status,
    }
}

// CatalogItem returns the booking core's view of the masterclass.
func (m Masterclass) CatalogItem() CatalogItem {
    return CatalogItem{
        Kind:           KindMasterclass,
        ID:             m.ID,
        Name:           m.Name,
        BasePriceCents: m.PriceCents,
        ScheduledAt:    m.Date,
        Capacity:       m.MaxParticipants,
        Status:         m.Status,
    }
}
