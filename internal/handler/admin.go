package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/model"
)

// Administrator is the admin side of the booking core; *booking.AdminService
// implements it and enforces the admin role.
type Administrator interface {
	ListTours(ctx context.Context, id booking.Identity) ([]model.Tour, error)
	CreateTour(ctx context.Context, id booking.Identity, in booking.TourInput) (model.Tour, error)
	UpdateTour(ctx context.Context, id booking.Identity, tourID uint64, in booking.TourInput) (model.Tour, error)
	DeleteTour(ctx context.Context, id booking.Identity, tourID uint64) error
	ListExhibitions(ctx context.Context, id booking.Identity) ([]model.Exhibition, error)
	DeleteExhibition(ctx context.Context, id booking.Identity, exhibitionID uint64) error
	ListMasterclasses(ctx context.Context, id booking.Identity) ([]model.Masterclass, error)
	DeleteMasterclass(ctx context.Context, id booking.Identity, masterclassID uint64) error

	ListGuides(ctx context.Context, id booking.Identity) ([]model.Guide, error)
	CreateGuide(ctx context.Context, id booking.Identity, in booking.GuideInput) (model.Guide, error)
	UpdateGuide(ctx context.Context, id booking.Identity, guideID uint64, in booking.GuideInput) (model.Guide, error)
	DeleteGuide(ctx context.Context, id booking.Identity, guideID uint64) error
	ListCollections(ctx context.Context, id booking.Identity) ([]model.Collection, error)
	CreateCollection(ctx context.Context, id booking.Identity, in booking.CollectionInput) (model.Collection, error)
	UpdateCollection(ctx context.Context, id booking.Identity, collectionID uint64, in booking.CollectionInput) (model.Collection, error)
	DeleteCollection(ctx context.Context, id booking.Identity, collectionID uint64) error
	ListExhibits(ctx context.Context, id booking.Identity) ([]model.Exhibit, error)
	CreateExhibit(ctx context.Context, id booking.Identity, in booking.ExhibitInput) (model.Exhibit, error)
	UpdateExhibit(ctx context.Context, id booking.Identity, exhibitID uint64, in booking.ExhibitInput) (model.Exhibit, error)
	DeleteExhibit(ctx context.Context, id booking.Identity, exhibitID uint64) error

	ListUsers(ctx context.Context, id booking.Identity) ([]model.UserAccount, error)
	GetUser(ctx context.Context, id booking.Identity, userID uint64) (model.UserAccount, error)
	CreateUser(ctx context.Context, id booking.Identity, in booking.UserInput) (model.UserAccount, error)
	UpdateUser(ctx context.Context, id booking.Identity, userID uint64, in booking.UserUpdate) (model.UserAccount, error)
	DeleteUser(ctx context.Context, id booking.Identity, userID uint64) error

	ListAudioGuides(ctx context.Context, id booking.Identity) ([]model.AudioGuideUnit, error)
	SetAudioGuideStatus(ctx context.Context, id booking.Identity, unitID uint64, status model.AudioGuideStatus) (model.AudioGuideUnit, error)
}

// CachePurger drops cached catalog responses after a catalog write.
type CachePurger interface {
	Purge(ctx context.Context) error
}

type AdminHandler struct {
	Svc   Administrator
	Cache CachePurger
	Log   *logger.Logger
}

func NewAdminHandler(svc Administrator, cache CachePurger, log *logger.Logger) *AdminHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AdminHandler{Svc: svc, Cache: cache, Log: log}
}

type tourReq struct {
	Name            string  `json:"tour_name" validate:"required,max=255"`
	TourDate        string  `json:"tour_date" validate:"required"`
	TourType        string  `json:"tour_type" validate:"max=100"`
	HallNumbers     string  `json:"hall_numbers" validate:"max=255"`
	MaxVisitors     *int    `json:"max_visitors"`
	DurationMinutes *int    `json:"duration_minutes"`
	PriceCents      *int64  `json:"price_cents"`
	Status          string  `json:"status"`
	CollectionID    *uint64 `json:"collection_id"`
	GuideID         *uint64 `json:"guide_id"`
}

func (r tourReq) input() (booking.TourInput, error) {
	date, err := booking.ParseScheduleTime(r.TourDate)
	if err != nil {
		return booking.TourInput{}, booking.NewValidation(booking.CodeValidation, "invalid tour").
			WithDetail("tour_date", "must be a date or date-time")
	}
	return booking.TourInput{
		Name:            r.Name,
		TourDate:        date,
		TourType:        r.TourType,
		HallNumbers:     r.HallNumbers,
		MaxVisitors:     r.MaxVisitors,
		DurationMinutes: r.DurationMinutes,
		PriceCents:      r.PriceCents,
		Status:          strings.ToLower(strings.TrimSpace(r.Status)),
		CollectionID:    r.CollectionID,
		GuideID:         r.GuideID,
	}, nil
}

type audioGuideStatusReq struct {
	Status string `json:"status" validate:"required"`
}

func (h *AdminHandler) purge(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Purge(c.Request().Context()); err != nil {
		h.Log.Warn("catalog cache purge failed", "error", err)
	}
}

// ListTours: GET /v1/admin/tours
// Every tour, cancelled and finished ones included.
func (h *AdminHandler) ListTours(c echo.Context) error {
	list, err := h.Svc.ListTours(c.Request().Context(), identity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toTourView)})
}

// CreateTour: POST /v1/admin/tours
func (h *AdminHandler) CreateTour(c echo.Context) error {
	var req tourReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in, err := req.input()
	if err != nil {
		return writeError(c, err)
	}
	t, err := h.Svc.CreateTour(c.Request().Context(), identity(c), in)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, toTourView(t))
}

// UpdateTour: PUT /v1/admin/tours/:id
func (h *AdminHandler) UpdateTour(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	var req tourReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in, err := req.input()
	if err != nil {
		return writeError(c, err)
	}
	t, err := h.Svc.UpdateTour(c.Request().Context(), identity(c), id, in)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, toTourView(t))
}

// DeleteTour: DELETE /v1/admin/tours/:id
func (h *AdminHandler) DeleteTour(c echo.Context) error {
	return h.remove(c, h.Svc.DeleteTour)
}

// ListExhibitions: GET /v1/admin/exhibitions
func (h *AdminHandler) ListExhibitions(c echo.Context) error {
	list, err := h.Svc.ListExhibitions(c.Request().Context(), identity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toExhibitionView)})
}

// DeleteExhibition: DELETE /v1/admin/exhibitions/:id
func (h *AdminHandler) DeleteExhibition(c echo.Context) error {
	return h.remove(c, h.Svc.DeleteExhibition)
}

// ListMasterclasses: GET /v1/admin/masterclasses
func (h *AdminHandler) ListMasterclasses(c echo.Context) error {
	list, err := h.Svc.ListMasterclasses(c.Request().Context(), identity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toMasterclassView)})
}

// DeleteMasterclass: DELETE /v1/admin/masterclasses/:id
func (h *AdminHandler) DeleteMasterclass(c echo.Context) error {
	return h.remove(c, h.Svc.DeleteMasterclass)
}

// remove parses :id, runs del and purges the catalog cache.
func (h *AdminHandler) remove(c echo.Context, del func(context.Context, booking.Identity, uint64) error) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	if err := del(c.Request().Context(), identity(c), id); err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// ListAudioGuides: GET /v1/admin/audio-guides
func (h *AdminHandler) ListAudioGuides(c echo.Context) error {
	units, err := h.Svc.ListAudioGuides(c.Request().Context(), identity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toAudioGuideViews(units)})
}

// SetAudioGuideStatus: PUT /v1/admin/audio-guides/:id/status
func (h *AdminHandler) SetAudioGuideStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	var req audioGuideStatusReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	status := model.AudioGuideStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	u, err := h.Svc.SetAudioGuideStatus(c.Request().Context(), identity(c), id, status)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, toAudioGuideView(u))
}
