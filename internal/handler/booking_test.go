package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

func (a *app) tourBody(count any, extra map[string]any) map[string]any {
	body := map[string]any{
		"tour_id":        a.tour.ID,
		"visitors_count": count,
		"tour_time":      a.slot.Format(time.RFC3339),
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func TestBookTourEndpoint(t *testing.T) {
	a := newApp(t)
	auth := bearer(t, 100, model.RoleVisitor)

	rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", auth, a.tourBody("3", nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(15000), body["total_cents"])
	assert.Equal(t, float64(3), body["visitors_count"])
	assert.Equal(t, "confirmed", body["status"])
	assert.Equal(t, "tour", body["kind"])
	assert.Equal(t, "Impressionists", body["item_name"])
	assert.Equal(t, a.slot.Format(time.RFC3339), body["scheduled_at"])
}

func TestBookTourWithAudioGuideEndpoint(t *testing.T) {
	a := newApp(t)
	unit := a.store.AddAudioGuide(model.AudioGuideUnit{DeviceNumber: "AG-1", ChargeLevel: 80})
	auth := bearer(t, 100, model.RoleVisitor)

	rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", auth,
		a.tourBody(2, map[string]any{"audio_guide_rent": true}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(2*5000+2*2000), body["total_cents"])
	assert.Equal(t, "audio", body["add_on"])
	assert.Equal(t, float64(unit.ID), body["audio_guide_id"])

	rec = do(t, a.e, http.MethodPost, "/v1/bookings/tours", bearer(t, 100, model.RoleVisitor),
		a.tourBody(1, map[string]any{"guide_type": "audio", "tour_time": a.slot.Add(time.Hour).Format(time.RFC3339)}))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, booking.CodePoolExhausted, errorCode(t, rec))
}

func TestBookTourRejectsBadInput(t *testing.T) {
	a := newApp(t)
	auth := bearer(t, 100, model.RoleVisitor)

	cases := []struct {
		name string
		body any
		code string
	}{
		{"fractional headcount", a.tourBody(2.5, nil), booking.CodeInvalidHeadcount},
		{"zero headcount", a.tourBody(0, nil), booking.CodeInvalidHeadcount},
		{"text headcount", a.tourBody("many", nil), booking.CodeInvalidHeadcount},
		{"missing headcount", a.tourBody(nil, nil), booking.CodeInvalidHeadcount},
		{"bad time", a.tourBody(1, map[string]any{"tour_time": "next tuesday"}), booking.CodeInvalidSchedule},
		{"past time", a.tourBody(1, map[string]any{"tour_time": "2020-01-01T10:00:00Z"}), booking.CodeInvalidSchedule},
		{"both add-ons", a.tourBody(1, map[string]any{"audio_guide_rent": true, "guide_type": "guide", "guide_id": 1}), booking.CodeInvalidAddOn},
		{"unknown guide type", a.tourBody(1, map[string]any{"guide_type": "robot"}), booking.CodeInvalidAddOn},
		{"guide without id", a.tourBody(1, map[string]any{"guide_type": "guide"}), booking.CodeInvalidAddOn},
		{"missing tour id", map[string]any{"visitors_count": 1, "tour_time": a.slot.Format(time.RFC3339)}, booking.CodeValidation},
		{"malformed json", `{"tour_id":`, "INVALID_BODY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", auth, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
	assert.Empty(t, a.store.AllReservations())
}

func TestBookingRequiresToken(t *testing.T) {
	a := newApp(t)
	rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", "", a.tourBody(1, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, a.e, http.MethodGet, "/v1/bookings", "Bearer nope", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingWithoutVisitorProfile(t *testing.T) {
	a := newApp(t)
	rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", bearer(t, 555, model.RoleVisitor), a.tourBody(1, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, booking.CodeVisitorNotFound, errorCode(t, rec))
}

func TestBookExhibitionAndMasterclassEndpoints(t *testing.T) {
	a := newApp(t)
	ex := a.store.AddExhibition(model.Exhibition{
		Name:             "Bronze Age",
		StartDate:        testNow.AddDate(0, 0, -3),
		EndDate:          testNow.AddDate(0, 0, 30),
		MaxVisitors:      50,
		TicketPriceCents: cents(1500),
		Status:           model.ExhibitionActive,
	})
	mc := a.store.AddMasterclass(model.Masterclass{
		Name:            "Fresco basics",
		Date:            testNow.AddDate(0, 0, 10),
		MaxParticipants: 8,
		Status:          model.MasterclassScheduled,
	})
	auth := bearer(t, 100, model.RoleVisitor)

	rec := do(t, a.e, http.MethodPost, "/v1/bookings/exhibitions", auth, map[string]any{
		"exhibition_id": ex.ID, "visitors_count": 4, "booking_time": "2026-10-20 14:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(6000), decode(t, rec)["total_cents"])

	rec = do(t, a.e, http.MethodPost, "/v1/bookings/exhibitions", auth, map[string]any{
		"exhibition_id": ex.ID, "visitors_count": 1, "booking_time": "2027-01-20 14:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, booking.CodeInvalidSchedule, errorCode(t, rec))

	rec = do(t, a.e, http.MethodPost, "/v1/bookings/masterclasses", auth, map[string]any{
		"masterclass_id": mc.ID, "visitors_count": 2, "booking_time": "2026-10-26T16:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, float64(10000), decode(t, rec)["total_cents"])

	rec = do(t, a.e, http.MethodPost, "/v1/bookings/masterclasses", auth, map[string]any{
		"masterclass_id": mc.ID, "visitors_count": 7, "booking_time": "2026-10-26T17:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, a.e, http.MethodPost, "/v1/bookings/masterclasses", bearer(t, 100, model.RoleVisitor), map[string]any{
		"masterclass_id": 9999, "visitors_count": 1, "booking_time": "2026-10-26T17:00:00Z",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, booking.CodeItemNotFound, errorCode(t, rec))
}

func TestBookingCapacityConflict(t *testing.T) {
	a := newApp(t)
	a.store.AddVisitor(model.Visitor{UserID: 101})

	rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", bearer(t, 100, model.RoleVisitor), a.tourBody(18, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, a.e, http.MethodPost, "/v1/bookings/tours", bearer(t, 101, model.RoleVisitor), a.tourBody(3, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, booking.CodeCapacityExceeded, body["code"])
	assert.Equal(t, float64(2), body["details"].(map[string]any)["remaining"])
}

func TestBookingFractionalSecondSlotIsTheSameSlot(t *testing.T) {
	a := newApp(t)
	a.store.AddVisitor(model.Visitor{UserID: 101})

	rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", bearer(t, 100, model.RoleVisitor), a.tourBody(20, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	frac := a.tourBody(20, map[string]any{"tour_time": a.slot.Add(400 * time.Millisecond).Format(time.RFC3339Nano)})
	rec = do(t, a.e, http.MethodPost, "/v1/bookings/tours", bearer(t, 101, model.RoleVisitor), frac)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, booking.CodeCapacityExceeded, errorCode(t, rec))
}

func TestListGetAndCancelEndpoints(t *testing.T) {
	a := newApp(t)
	unit := a.store.AddAudioGuide(model.AudioGuideUnit{ChargeLevel: 70})
	auth := bearer(t, 100, model.RoleVisitor)

	rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", auth,
		a.tourBody(2, map[string]any{"guide_type": "audio"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := uint64(decode(t, rec)["id"].(float64))

	rec = do(t, a.e, http.MethodGet, "/v1/bookings", auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, float64(id), items[0].(map[string]any)["id"])

	rec = do(t, a.e, http.MethodGet, fmt.Sprintf("/v1/bookings/tour/%d", id), auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(14000), decode(t, rec)["total_cents"])

	a.store.AddVisitor(model.Visitor{UserID: 101})
	stranger := bearer(t, 101, model.RoleVisitor)
	rec = do(t, a.e, http.MethodGet, fmt.Sprintf("/v1/bookings/tour/%d", id), stranger, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, a.e, http.MethodDelete, fmt.Sprintf("/v1/bookings/tour/%d", id), stranger, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, a.e, http.MethodDelete, fmt.Sprintf("/v1/bookings/tour/%d", id), auth, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode(t, rec)["status"])
	u, _ := a.store.AudioGuide(unit.ID)
	assert.Equal(t, model.AudioGuideAvailable, u.Status)

	rec = do(t, a.e, http.MethodDelete, fmt.Sprintf("/v1/bookings/tour/%d", id), auth, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, booking.CodeReservationAbsent, errorCode(t, rec))
}

func TestLegacyCancelSearchesKinds(t *testing.T) {
	a := newApp(t)
	auth := bearer(t, 100, model.RoleVisitor)
	rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", auth, a.tourBody(1, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := uint64(decode(t, rec)["id"].(float64))

	rec = do(t, a.e, http.MethodPost, fmt.Sprintf("/v1/bookings/cancel/%d", id), auth, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "tour", decode(t, rec)["kind"])

	rec = do(t, a.e, http.MethodPost, "/v1/bookings/cancel/abc", auth, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingPathValidation(t *testing.T) {
	a := newApp(t)
	auth := bearer(t, 100, model.RoleVisitor)

	rec := do(t, a.e, http.MethodGet, "/v1/bookings/concerts/1", auth, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, a.e, http.MethodGet, "/v1/bookings/tour/0", auth, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	a := newApp(t)
	rec := do(t, a.e, http.MethodPost, "/v1/bookings/tours", bearer(t, 100, model.RoleVisitor), a.tourBody(3, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	target := fmt.Sprintf("/v1/catalog/tours/%d/availability?slot=%s", a.tour.ID, a.slot.Format("2006-01-02T15:04:05"))
	rec = do(t, a.e, http.MethodGet, target, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(20), body["capacity"])
	assert.Equal(t, float64(3), body["booked"])
	assert.Equal(t, float64(17), body["remaining"])

	rec = do(t, a.e, http.MethodGet, fmt.Sprintf("/v1/catalog/tours/%d/availability", a.tour.ID), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, a.e, http.MethodGet, "/v1/catalog/parties/1/availability?slot=2026-10-23", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, a.e, http.MethodGet, "/v1/catalog/tours/999/availability?slot=2026-10-23", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
