package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/logger"
	"github.com/iliyamo/museum-booking/internal/model"
	"github.com/iliyamo/museum-booking/internal/repository"
)

// CatalogReader is the read side of the catalog, implemented by
// repository.CatalogRepo.
type CatalogReader interface {
	SearchTours(ctx context.Context, q repository.TourSearchQuery) ([]model.Tour, int64, error)
	TourByID(ctx context.Context, id uint64) (model.Tour, error)
	ListExhibitions(ctx context.Context) ([]model.Exhibition, error)
	ListMasterclasses(ctx context.Context) ([]model.Masterclass, error)
	ListActiveGuides(ctx context.Context) ([]model.Guide, error)
	ListCollections(ctx context.Context) ([]model.Collection, error)
	ExhibitsByCollection(ctx context.Context, collectionID uint64) ([]model.Exhibit, error)
	AvailableAudioGuides(ctx context.Context, minCharge int) ([]model.AudioGuideUnit, error)
}

// AvailabilityReader reports remaining capacity; *booking.Service
// implements it.
type AvailabilityReader interface {
	Availability(ctx context.Context, kind model.Kind, itemID uint64, slot time.Time) (booking.Availability, error)
}

// CatalogHandler serves the public, unauthenticated browse endpoints.
type CatalogHandler struct {
	Catalog   CatalogReader
	Slots     AvailabilityReader
	MinCharge int
	Log       *logger.Logger
	now       func() time.Time
}

func NewCatalogHandler(catalog CatalogReader, slots AvailabilityReader, minCharge int, log *logger.Logger) *CatalogHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogHandler{Catalog: catalog, Slots: slots, MinCharge: minCharge, Log: log, now: time.Now}
}

func (h *CatalogHandler) timeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func (h *CatalogHandler) fail(c echo.Context, op string, err error) error {
	h.Log.Error("catalog query failed", "op", op, "error", err)
	return writeError(c, err)
}

// ListTours: GET /v1/tours?name=&type=&page=&page_size=
// Scheduled tours from the start of today (UTC), soonest first.
func (h *CatalogHandler) ListTours(c echo.Context) error {
	q := repository.TourSearchQuery{
		Name:     strings.TrimSpace(c.QueryParam("name")),
		TourType: strings.TrimSpace(c.QueryParam("type")),
		From:     h.now().UTC().Truncate(24 * time.Hour),
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}

	ctx, cancel := h.timeout(c)
	defer cancel()
	tours, total, err := h.Catalog.SearchTours(ctx, q)
	if err != nil {
		return h.fail(c, "search tours", err)
	}
	items := make([]tourView, 0, len(tours))
	for _, t := range tours {
		items = append(items, toTourView(t))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"page":      q.Page,
		"page_size": q.PageSize,
		"total":     total,
	})
}

// GetTour: GET /v1/tours/:id
func (h *CatalogHandler) GetTour(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	ctx, cancel := h.timeout(c)
	defer cancel()
	t, err := h.Catalog.TourByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return writeError(c, booking.NewNotFound(booking.CodeItemNotFound, "tour not found").WithDetail("id", id))
	}
	if err != nil {
		return h.fail(c, "tour by id", err)
	}
	return c.JSON(http.StatusOK, toTourView(t))
}

// ListExhibitions: GET /v1/exhibitions
func (h *CatalogHandler) ListExhibitions(c echo.Context) error {
	ctx, cancel := h.timeout(c)
	defer cancel()
	list, err := h.Catalog.ListExhibitions(ctx)
	if err != nil {
		return h.fail(c, "list exhibitions", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toExhibitionView)})
}

// ListMasterclasses: GET /v1/masterclasses
func (h *CatalogHandler) ListMasterclasses(c echo.Context) error {
	ctx, cancel := h.timeout(c)
	defer cancel()
	list, err := h.Catalog.ListMasterclasses(ctx)
	if err != nil {
		return h.fail(c, "list masterclasses", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toMasterclassView)})
}

// ListGuides: GET /v1/guides (active guides only)
func (h *CatalogHandler) ListGuides(c echo.Context) error {
	ctx, cancel := h.timeout(c)
	defer cancel()
	list, err := h.Catalog.ListActiveGuides(ctx)
	if err != nil {
		return h.fail(c, "list guides", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toGuideView)})
}

// ListCollections: GET /v1/collections
func (h *CatalogHandler) ListCollections(c echo.Context) error {
	ctx, cancel := h.timeout(c)
	defer cancel()
	list, err := h.Catalog.ListCollections(ctx)
	if err != nil {
		return h.fail(c, "list collections", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toCollectionView)})
}

// ListExhibits: GET /v1/collections/:id/exhibits
func (h *CatalogHandler) ListExhibits(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	ctx, cancel := h.timeout(c)
	defer cancel()
	list, err := h.Catalog.ExhibitsByCollection(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return writeError(c, booking.NewNotFound(codeNotFound, "collection not found").WithDetail("id", id))
	}
	if err != nil {
		return h.fail(c, "exhibits by collection", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toExhibitView)})
}

// AvailableAudioGuides: GET /v1/audio-guides/available
// Units that could be allocated now, in allocation order.
func (h *CatalogHandler) AvailableAudioGuides(c echo.Context) error {
	ctx, cancel := h.timeout(c)
	defer cancel()
	units, err := h.Catalog.AvailableAudioGuides(ctx, h.MinCharge)
	if err != nil {
		return h.fail(c, "available audio guides", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toAudioGuideViews(units)})
}

// Availability: GET /v1/catalog/:kind/:id/availability?slot=
func (h *CatalogHandler) Availability(c echo.Context) error {
	kind, ok := model.ParseKind(c.Param("kind"))
	if !ok {
		return writeError(c, booking.NewValidation(booking.CodeValidation, "unknown catalog kind").
			WithDetail("kind", c.Param("kind")))
	}
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	slot, err := booking.ParseScheduleTime(c.QueryParam("slot"))
	if err != nil {
		return writeError(c, err)
	}
	a, err := h.Slots.Availability(c.Request().Context(), kind, id, slot)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
