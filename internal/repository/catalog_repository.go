package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/museum-booking/internal/model"
)

// CatalogRepo serves the public browse endpoints.  It never writes.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

const tourSelect = `SELECT t.id, t.tour_name, t.tour_date, t.tour_type, t.hall_numbers,
		t.max_visitors, t.duration_minutes, t.price_cents, t.status,
		t.collection_id, t.guide_id,
		COALESCE(c.collection_name, ''),
		COALESCE(CONCAT(g.first_name, ' ', g.last_name), ''),
		t.created_at
	FROM tours t
	LEFT JOIN collections c ON c.id = t.collection_id
	LEFT JOIN guides g      ON g.id = t.guide_id`

func scanTour(s rowScanner) (model.Tour, error) {
	var (
		t          model.Tour
		price      sql.NullInt64
		collection sql.NullInt64
		guide      sql.NullInt64
	)
	if err := s.Scan(&t.ID, &t.Name, &t.TourDate, &t.TourType, &t.HallNumbers,
		&t.MaxVisitors, &t.DurationMinutes, &price, &t.Status,
		&collection, &guide, &t.CollectionName, &t.GuideName, &t.CreatedAt); err != nil {
		return model.Tour{}, err
	}
	t.PriceCents = int64Ptr(price)
	t.CollectionID = uint64Ptr(collection)
	t.GuideID = uint64Ptr(guide)
	return t, nil
}

// TourByID returns one tour with its collection and guide names.
func (r *CatalogRepo) TourByID(ctx context.Context, id uint64) (model.Tour, error) {
	return tourByID(ctx, r.db, id)
}

func tourByID(ctx context.Context, q queryer, id uint64) (model.Tour, error) {
	t, err := scanTour(q.QueryRowContext(ctx, tourSelect+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tour{}, ErrNotFound
	}
	return t, err
}

// ListExhibitions returns exhibitions that have not ended, soonest first.
func (r *CatalogRepo) ListExhibitions(ctx context.Context) ([]model.Exhibition, error) {
	rows, err := r.db.QueryContext(ctx, exhibitionSelect+`
		WHERE status IN ('upcoming','active') AND end_date >= UTC_DATE()
		ORDER BY start_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanExhibition)
}

// ListMasterclasses returns scheduled masterclasses from today on.
func (r *CatalogRepo) ListMasterclasses(ctx context.Context) ([]model.Masterclass, error) {
	rows, err := r.db.QueryContext(ctx, masterclassSelect+`
		WHERE status = 'scheduled' AND masterclass_date >= UTC_DATE()
		ORDER BY masterclass_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMasterclass)
}

// ListActiveGuides returns guides that can be booked as an add-on.
func (r *CatalogRepo) ListActiveGuides(ctx context.Context) ([]model.Guide, error) {
	rows, err := r.db.QueryContext(ctx, guideSelect+`
		WHERE status = 'active'
		ORDER BY last_name ASC, first_name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanGuide)
}

// ListCollections returns every collection with its exhibit count.
func (r *CatalogRepo) ListCollections(ctx context.Context) ([]model.Collection, error) {
	const q = `SELECT c.id, c.collection_name, c.creation_year, COUNT(e.id)
		FROM collections c
		LEFT JOIN exhibits e ON e.collection_id = c.id
		GROUP BY c.id, c.collection_name, c.creation_year
		ORDER BY c.collection_name ASC, c.id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Collection{}
	for rows.Next() {
		var c model.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.CreationYear, &c.ExhibitCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ExhibitsByCollection lists the exhibits of one collection.  An unknown
// collection yields ErrNotFound rather than an empty list.
func (r *CatalogRepo) ExhibitsByCollection(ctx context.Context, collectionID uint64) ([]model.Exhibit, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM collections WHERE id = ?)", collectionID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	const q = `SELECT id, exhibit_name, creation_year, exhibit_type, condition_status, collection_id
		FROM exhibits
		WHERE collection_id = ?
		ORDER BY exhibit_name ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Exhibit{}
	for rows.Next() {
		var (
			e   model.Exhibit
			col sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.CreationYear, &e.ExhibitType, &e.ConditionStatus, &col); err != nil {
			return nil, err
		}
		e.CollectionID = uint64Ptr(col)
		out = append(out, e)
	}
	return out, rows.Err()
}

// audioGuideOrder is the allocation preference: fullest charge, most
// recently serviced (never-serviced last), lowest id.
const audioGuideOrder = "ORDER BY charge_level DESC, last_maintenance_at IS NULL ASC, last_maintenance_at DESC, id ASC"

const audioGuideColumns = "id, device_number, language, charge_level, status, last_maintenance_at"

func scanAudioGuide(s rowScanner) (model.AudioGuideUnit, error) {
	var (
		u     model.AudioGuideUnit
		maint sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.DeviceNumber, &u.Language, &u.ChargeLevel, &u.Status, &maint); err != nil {
		return model.AudioGuideUnit{}, err
	}
	u.LastMaintenanceAt = timePtr(maint)
	return u, nil
}

// AvailableAudioGuides lists the units that could be allocated right now,
// in the order they would be handed out.
func (r *CatalogRepo) AvailableAudioGuides(ctx context.Context, minCharge int) ([]model.AudioGuideUnit, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+audioGuideColumns+" FROM audio_guides WHERE status = 'available' AND charge_level > ? "+audioGuideOrder,
		minCharge)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AudioGuideUnit{}
	for rows.Next() {
		u, err := scanAudioGuide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
