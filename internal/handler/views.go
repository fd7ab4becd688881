package handler

import (
	"time"

	"github.com/iliyamo/museum-booking/internal/model"
)

// JSON shapes returned by the API.  Models carry no tags so that storage
// and wire names can evolve separately.

type tourView struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"tour_name"`
	TourDate        time.Time `json:"tour_date"`
	TourType        string    `json:"tour_type"`
	HallNumbers     string    `json:"hall_numbers"`
	MaxVisitors     int       `json:"max_visitors"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      *int64    `json:"price_cents"`
	Status          string    `json:"status"`
	CollectionID    *uint64   `json:"collection_id"`
	CollectionName  string    `json:"collection_name,omitempty"`
	GuideID         *uint64   `json:"guide_id"`
	GuideName       string    `json:"guide_name,omitempty"`
}

func toTourView(t model.Tour) tourView {
	return tourView{
		ID: t.ID, Name: t.Name, TourDate: t.TourDate, TourType: t.TourType,
		HallNumbers: t.HallNumbers, MaxVisitors: t.MaxVisitors, DurationMinutes: t.DurationMinutes,
		PriceCents: t.PriceCents, Status: t.Status, CollectionID: t.CollectionID,
		CollectionName: t.CollectionName, GuideID: t.GuideID, GuideName: t.GuideName,
	}
}

type exhibitionView struct {
	ID               uint64    `json:"id"`
	Name             string    `json:"exhibition_name"`
	Description      string    `json:"description"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Location         string    `json:"location"`
	MaxVisitors      int       `json:"max_visitors"`
	TicketPriceCents *int64    `json:"ticket_price_cents"`
	Status           string    `json:"status"`
}

func toExhibitionView(e model.Exhibition) exhibitionView {
	return exhibitionView{
		ID: e.ID, Name: e.Name, Description: e.Description, StartDate: e.StartDate,
		EndDate: e.EndDate, Location: e.Location, MaxVisitors: e.MaxVisitors,
		TicketPriceCents: e.TicketPriceCents, Status: e.Status,
	}
}

type masterclassView struct {
	ID              uint64    `json:"id"`
	Name            string    `json:"masterclass_name"`
	Description     string    `json:"description"`
	Date            time.Time `json:"masterclass_date"`
	DurationMinutes int       `json:"duration_minutes"`
	MaxParticipants int       `json:"max_participants"`
	PriceCents      *int64    `json:"price_cents"`
	InstructorName  string    `json:"instructor_name"`
	Location        string    `json:"location"`
	SkillLevel      string    `json:"skill_level"`
	Status          string    `json:"status"`
}

func toMasterclassView(m model.Masterclass) masterclassView {
	return masterclassView{
		ID: m.ID, Name: m.Name, Description: m.Description, Date: m.Date,
		DurationMinutes: m.DurationMinutes, MaxParticipants: m.MaxParticipants,
		PriceCents: m.PriceCents, InstructorName: m.InstructorName, Location: m.Location,
		SkillLevel: m.SkillLevel, Status: m.Status,
	}
}

type guideView struct {
	ID             uint64 `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone_number"`
	Specialization string `json:"specialization"`
	Status         string `json:"status"`
	HireDate       string `json:"hire_date"`
}

func toGuideView(g model.Guide) guideView {
	return guideView{
		ID: g.ID, FirstName: g.FirstName, LastName: g.LastName, Email: g.Email, Phone: g.Phone,
		Specialization: g.Specialization, Status: g.Status, HireDate: g.HireDate.Format(time.DateOnly),
	}
}

type collectionView struct {
	ID           uint64 `json:"id"`
	Name         string `json:"collection_name"`
	CreationYear int    `json:"creation_year"`
	ExhibitCount int    `json:"exhibit_count"`
}

func toCollectionView(c model.Collection) collectionView {
	return collectionView{ID: c.ID, Name: c.Name, CreationYear: c.CreationYear, ExhibitCount: c.ExhibitCount}
}

type exhibitView struct {
	ID              uint64  `json:"id"`
	Name            string  `json:"exhibit_name"`
	CreationYear    int     `json:"creation_year"`
	ExhibitType     string  `json:"exhibit_type"`
	ConditionStatus string  `json:"condition_status"`
	CollectionID    *uint64 `json:"collection_id"`
	CollectionName  string  `json:"collection_name,omitempty"`
}

func toExhibitView(e model.Exhibit) exhibitView {
	return exhibitView{
		ID: e.ID, Name: e.Name, CreationYear: e.CreationYear, ExhibitType: e.ExhibitType,
		ConditionStatus: e.ConditionStatus, CollectionID: e.CollectionID, CollectionName: e.CollectionName,
	}
}

// userView never carries the password hash.
type userView struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone_number"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(u model.UserAccount) userView {
	return userView{
		ID: u.ID, Email: u.Email, Role: u.Role, IsActive: u.IsActive,
		FirstName: u.FirstName, LastName: u.LastName, Phone: u.Phone, CreatedAt: u.CreatedAt,
	}
}

// views maps a slice with one of the to*View functions.  The result is
// never nil so empty lists render as [].
func views[M, V any](in []M, conv func(M) V) []V {
	out := make([]V, 0, len(in))
	for _, m := range in {
		out = append(out, conv(m))
	}
	return out
}

type audioGuideView struct {
	ID                uint64     `json:"id"`
	DeviceNumber      string     `json:"device_number"`
	Language          string     `json:"language"`
	ChargeLevel       int        `json:"charge_level"`
	Status            string     `json:"status"`
	LastMaintenanceAt *time.Time `json:"last_maintenance_at"`
}

func toAudioGuideViews(units []model.AudioGuideUnit) []audioGuideView {
	return views(units, toAudioGuideView)
}

func toAudioGuideView(u model.AudioGuideUnit) audioGuideView {
	return audioGuideView{
		ID: u.ID, DeviceNumber: u.DeviceNumber, Language: u.Language,
		ChargeLevel: u.ChargeLevel, Status: string(u.Status), LastMaintenanceAt: u.LastMaintenanceAt,
	}
}

type reservationView struct {
	ID            uint64     `json:"id"`
	Kind          string     `json:"kind"`
	ItemID        uint64     `json:"item_id"`
	ItemName      string     `json:"item_name,omitempty"`
	VisitorsCount int        `json:"visitors_count"`
	TotalCents    int64      `json:"total_cents"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	Status        string     `json:"status"`
	AddOn         string     `json:"add_on,omitempty"`
	AudioGuideID  *uint64    `json:"audio_guide_id,omitempty"`
	GuideID       *uint64    `json:"guide_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
}

func toReservationView(r model.Reservation) reservationView {
	return reservationView{
		ID: r.ID, Kind: string(r.Kind), ItemID: r.ItemID, ItemName: r.ItemName,
		VisitorsCount: r.Headcount, TotalCents: r.TotalCents, ScheduledAt: r.ScheduledAt,
		Status: string(r.Status), AddOn: string(r.AddOn), AudioGuideID: r.AudioGuideID,
		GuideID: r.GuideID, CreatedAt: r.CreatedAt, CancelledAt: r.CancelledAt,
	}
}
