package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/museum-booking/internal/model"
)

// TourSearchQuery defines filters & pagination for browsing tours.
type TourSearchQuery struct {
	Name     string
	TourType string
	From     time.Time
	Page     int
	PageSize int
}

// SearchTours returns scheduled tours on or after q.From, soonest first,
// together with the total number of matches.
func (r *CatalogRepo) SearchTours(ctx context.Context, q TourSearchQuery) ([]model.Tour, int64, error) {
	where := []string{"t.status = 'scheduled'", "t.tour_date >= ?"}
	args := []any{q.From}

	if q.Name != "" {
		where = append(where, "LOWER(t.tour_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.TourType != "" {
		where = append(where, "LOWER(t.tour_type) = ?")
		args = append(args, strings.ToLower(q.TourType))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM tours t WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := tourSelect + `
		WHERE ` + cond + `
		ORDER BY t.tour_date ASC, t.id ASC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Tour, 0, limit)
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
