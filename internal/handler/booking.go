package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

// Booker is the booking orchestrator as seen by the HTTP layer.
type Booker interface {
	Book(ctx context.Context, id booking.Identity, req booking.BookRequest) (model.Reservation, error)
	Cancel(ctx context.Context, id booking.Identity, kind model.Kind, reservationID uint64) (model.Reservation, error)
	ListMine(ctx context.Context, id booking.Identity) ([]model.Reservation, error)
	Get(ctx context.Context, id booking.Identity, kind model.Kind, reservationID uint64) (model.Reservation, error)
}

// BookingHandler exposes booking, listing and cancellation to
// authenticated callers.  Every decision is made by the Booker.
type BookingHandler struct {
	Svc Booker
}

func NewBookingHandler(svc Booker) *BookingHandler {
	return &BookingHandler{Svc: svc}
}

// ----- DTOs -----

type tourBookingReq struct {
	TourID         uint64  `json:"tour_id" validate:"required"`
	VisitorsCount  any     `json:"visitors_count"`
	TourTime       string  `json:"tour_time"`
	AudioGuideRent bool    `json:"audio_guide_rent"`
	GuideType      string  `json:"guide_type"`
	GuideID        *uint64 `json:"guide_id"`
}

type exhibitionBookingReq struct {
	ExhibitionID  uint64 `json:"exhibition_id" validate:"required"`
	VisitorsCount any    `json:"visitors_count"`
	BookingTime   string `json:"booking_time"`
}

type masterclassBookingReq struct {
	MasterclassID uint64 `json:"masterclass_id" validate:"required"`
	VisitorsCount any    `json:"visitors_count"`
	BookingTime   string `json:"booking_time"`
}

// addOnFrom resolves the two ways a client may ask for an audio guide:
// audio_guide_rent=true or guide_type="audio".
func addOnFrom(guideType string, audioRent bool) (model.AddOn, error) {
	var addOn model.AddOn
	switch strings.ToLower(strings.TrimSpace(guideType)) {
	case "", "none":
		addOn = model.AddOnNone
	case "audio":
		addOn = model.AddOnAudioGuide
	case "guide":
		addOn = model.AddOnGuide
	default:
		return "", booking.NewValidation(booking.CodeInvalidAddOn, "unknown guide_type").WithDetail("guide_type", guideType)
	}
	if audioRent {
		if addOn == model.AddOnGuide {
			return "", booking.NewValidation(booking.CodeInvalidAddOn, "choose either an audio guide or a guide, not both")
		}
		addOn = model.AddOnAudioGuide
	}
	return addOn, nil
}

// bookingRequest parses the fields shared by every booking form.
func bookingRequest(kind model.Kind, itemID uint64, count any, when string) (booking.BookRequest, error) {
	n, err := booking.ParseHeadcount(count)
	if err != nil {
		return booking.BookRequest{}, err
	}
	at, err := booking.ParseScheduleTime(when)
	if err != nil {
		return booking.BookRequest{}, err
	}
	return booking.BookRequest{Kind: kind, ItemID: itemID, Headcount: n, ScheduledAt: at}, nil
}

func (h *BookingHandler) created(c echo.Context, req booking.BookRequest) error {
	res, err := h.Svc.Book(c.Request().Context(), identity(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationView(res))
}

// BookTour: POST /v1/bookings/tours
func (h *BookingHandler) BookTour(c echo.Context) error {
	var in tourBookingReq
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	req, err := bookingRequest(model.KindTour, in.TourID, in.VisitorsCount, in.TourTime)
	if err != nil {
		return writeError(c, err)
	}
	if req.AddOn, err = addOnFrom(in.GuideType, in.AudioGuideRent); err != nil {
		return writeError(c, err)
	}
	req.GuideID = in.GuideID
	return h.created(c, req)
}

// BookExhibition: POST /v1/bookings/exhibitions
func (h *BookingHandler) BookExhibition(c echo.Context) error {
	var in exhibitionBookingReq
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	req, err := bookingRequest(model.KindExhibition, in.ExhibitionID, in.VisitorsCount, in.BookingTime)
	if err != nil {
		return writeError(c, err)
	}
	return h.created(c, req)
}

// BookMasterclass: POST /v1/bookings/masterclasses
func (h *BookingHandler) BookMasterclass(c echo.Context) error {
	var in masterclassBookingReq
	if err := bind(c, &in); err != nil {
		return writeError(c, err)
	}
	req, err := bookingRequest(model.KindMasterclass, in.MasterclassID, in.VisitorsCount, in.BookingTime)
	if err != nil {
		return writeError(c, err)
	}
	return h.created(c, req)
}

// ListMine: GET /v1/bookings
func (h *BookingHandler) ListMine(c echo.Context) error {
	list, err := h.Svc.ListMine(c.Request().Context(), identity(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]reservationView, 0, len(list))
	for _, r := range list {
		out = append(out, toReservationView(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func kindAndID(c echo.Context) (model.Kind, uint64, error) {
	kind, ok := model.ParseKind(c.Param("kind"))
	if !ok {
		return "", 0, booking.NewValidation(booking.CodeValidation, "unknown reservation kind").
			WithDetail("kind", c.Param("kind"))
	}
	id, ok := pathID(c, "id")
	if !ok {
		return "", 0, booking.NewValidation(codeInvalidID, "id must be a positive integer").
			WithDetail("id", c.Param("id"))
	}
	return kind, id, nil
}

// Get: GET /v1/bookings/:kind/:id
func (h *BookingHandler) Get(c echo.Context) error {
	kind, id, err := kindAndID(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Svc.Get(c.Request().Context(), identity(c), kind, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationView(res))
}

// Cancel: DELETE /v1/bookings/:kind/:id
func (h *BookingHandler) Cancel(c echo.Context) error {
	kind, id, err := kindAndID(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Svc.Cancel(c.Request().Context(), identity(c), kind, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationView(res))
}

// CancelAnyKind: POST /v1/bookings/cancel/:id
// Tries tour, exhibition and masterclass reservations in that order.
func (h *BookingHandler) CancelAnyKind(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	res, err := h.Svc.Cancel(c.Request().Context(), identity(c), "", id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationView(res))
}
