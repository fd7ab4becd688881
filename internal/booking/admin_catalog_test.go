package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/museum-booking/internal/booking"
	"github.com/iliyamo/museum-booking/internal/model"
)

func TestAdminListingsIncludeEveryStatus(t *testing.T) {
	a, f := newAdmin(t)
	ctx := context.Background()
	f.store.AddTour(model.Tour{Name: "Old", TourDate: testNow.AddDate(0, -2, 0), Status: model.TourFinished})
	f.store.AddExhibition(model.Exhibition{Name: "Closed", StartDate: testNow.AddDate(-1, 0, 0), EndDate: testNow.AddDate(0, -6, 0), Status: model.ExhibitionClosed})
	f.store.AddExhibition(model.Exhibition{Name: "Next", StartDate: testNow.AddDate(0, 1, 0), EndDate: testNow.AddDate(0, 2, 0), Status: model.ExhibitionUpcoming})

	tours, err := a.ListTours(ctx, admin)
	require.NoError(t, err)
	require.Len(t, tours, 2)
	assert.Equal(t, f.tour.ID, tours[0].ID, "latest date first")
	assert.Equal(t, model.TourFinished, tours[1].Status)

	exhibitions, err := a.ListExhibitions(ctx, admin)
	require.NoError(t, err)
	require.Len(t, exhibitions, 2)
	assert.Equal(t, "Next", exhibitions[0].Name)

	masterclasses, err := a.ListMasterclasses(ctx, admin)
	require.NoError(t, err)
	assert.NotNil(t, masterclasses)
	assert.Empty(t, masterclasses)
}

func TestAdminDeleteExhibitionAndMasterclass(t *testing.T) {
	a, f := newAdmin(t)
	ctx := context.Background()
	ex := f.store.AddExhibition(model.Exhibition{
		Name: "Bronze Age", StartDate: testNow.AddDate(0, 0, -10), EndDate: testNow.AddDate(0, 0, 20),
		MaxVisitors: 50, TicketPriceCents: cents(1200), Status: model.ExhibitionActive,
	})
	mc := f.store.AddMasterclass(model.Masterclass{
		Name: "Clay", Date: testNow.AddDate(0, 0, 3), MaxParticipants: 8, Status: model.MasterclassScheduled,
	})
	res, err := f.svc.Book(ctx, f.who, booking.BookRequest{
		Kind: model.KindExhibition, ItemID: ex.ID, Headcount: 1, ScheduledAt: testNow.AddDate(0, 0, 2),
	})
	require.NoError(t, err)

	err = a.DeleteExhibition(ctx, admin, ex.ID)
	requireKind(t, err, booking.KindConflict, booking.CodeItemHasBookings)

	_, err = f.svc.Cancel(ctx, f.who, model.KindExhibition, res.ID)
	require.NoError(t, err)
	require.NoError(t, a.DeleteExhibition(ctx, admin, ex.ID))
	assert.Empty(t, f.store.AllReservations(), "cancelled orders go with the exhibition")

	require.NoError(t, a.DeleteMasterclass(ctx, admin, mc.ID))
	err = a.DeleteMasterclass(ctx, admin, mc.ID)
	requireKind(t, err, booking.KindNotFound, booking.CodeItemNotFound)

	err = a.DeleteExhibition(ctx, f.who, ex.ID)
	requireKind(t, err, booking.KindAuthorization, booking.CodeForbidden)
}

func TestAdminGuideLifecycle(t *testing.T) {
	a, f := newAdmin(t)
	ctx := context.Background()

	g, err := a.CreateGuide(ctx, admin, booking.GuideInput{
		FirstName: " Maria ", LastName: "Ivanova", Email: "Maria@Museum.Example", Specialization: "Baroque",
	})
	require.NoError(t, err)
	assert.NotZero(t, g.ID)
	assert.Equal(t, "Maria", g.FirstName)
	assert.Equal(t, "maria@museum.example", g.Email)
	assert.Equal(t, model.GuideActive, g.Status)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), g.HireDate)

	_, err = a.UpdateTour(ctx, admin, f.tour.ID, booking.TourInput{Name: f.tour.Name, TourDate: f.tour.TourDate, GuideID: &g.ID})
	require.NoError(t, err)

	g, err = a.UpdateGuide(ctx, admin, g.ID, booking.GuideInput{FirstName: "Maria", LastName: "Ivanova", Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, model.GuideInactive, g.Status)

	// An inactive guide can no longer be booked as an add-on.
	_, err = f.bookTour(t, f.who, 1, model.AddOnGuide, &g.ID)
	require.Error(t, err)

	guides, err := a.ListGuides(ctx, admin)
	require.NoError(t, err)
	require.Len(t, guides, 1)
	assert.Equal(t, model.GuideInactive, guides[0].Status)

	err = a.DeleteGuide(ctx, admin, g.ID)
	requireKind(t, err, booking.KindConflict, booking.CodeStillReferenced)

	_, err = a.UpdateTour(ctx, admin, f.tour.ID, booking.TourInput{Name: f.tour.Name, TourDate: f.tour.TourDate})
	require.NoError(t, err)
	require.NoError(t, a.DeleteGuide(ctx, admin, g.ID))

	_, err = a.UpdateGuide(ctx, admin, g.ID, booking.GuideInput{FirstName: "x", LastName: "y"})
	requireKind(t, err, booking.KindNotFound, booking.CodeGuideNotFound)
}

func TestAdminGuideValidation(t *testing.T) {
	a, _ := newAdmin(t)

	_, err := a.CreateGuide(context.Background(), admin, booking.GuideInput{Status: "retired"})

	requireKind(t, err, booking.KindValidation, booking.CodeValidation)
	var be *booking.Error
	require.True(t, errors.As(err, &be))
	for _, field := range []string{"first_name", "last_name", "status"} {
		assert.Contains(t, be.Details, field)
	}
}

func TestAdminTourWithUnknownGuide(t *testing.T) {
	a, _ := newAdmin(t)

	_, err := a.CreateTour(context.Background(), admin, booking.TourInput{
		Name: "Night walk", TourDate: testNow.AddDate(0, 0, 5), GuideID: id64(999),
	})

	requireKind(t, err, booking.KindValidation, booking.CodeValidation)
}

func TestAdminCollectionsAndExhibits(t *testing.T) {
	a, f := newAdmin(t)
	ctx := context.Background()

	col, err := a.CreateCollection(ctx, admin, booking.CollectionInput{Name: "Antiquity", CreationYear: 1890})
	require.NoError(t, err)

	ex, err := a.CreateExhibit(ctx, admin, booking.ExhibitInput{
		Name: "Amphora", CreationYear: 0, ExhibitType: "ceramic", ConditionStatus: "good", CollectionID: &col.ID,
	})
	require.NoError(t, err)

	cols, err := a.ListCollections(ctx, admin)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, 1, cols[0].ExhibitCount)

	exhibits, err := a.ListExhibits(ctx, admin)
	require.NoError(t, err)
	require.Len(t, exhibits, 1)
	assert.Equal(t, "Antiquity", exhibits[0].CollectionName)

	err = a.DeleteCollection(ctx, admin, col.ID)
	requireKind(t, err, booking.KindConflict, booking.CodeStillReferenced)

	// Detaching the exhibit frees the collection.
	ex, err = a.UpdateExhibit(ctx, admin, ex.ID, booking.ExhibitInput{
		Name: "Amphora", ExhibitType: "ceramic", ConditionStatus: "restored", CollectionID: id64(0),
	})
	require.NoError(t, err)
	assert.Nil(t, ex.CollectionID)

	_, err = a.UpdateTour(ctx, admin, f.tour.ID, booking.TourInput{Name: f.tour.Name, TourDate: f.tour.TourDate, CollectionID: &col.ID})
	require.NoError(t, err)
	require.NoError(t, a.DeleteCollection(ctx, admin, col.ID))

	tour, err := f.store.TourByID(ctx, f.tour.ID)
	require.NoError(t, err)
	assert.Nil(t, tour.CollectionID, "tours outlive their collection")

	_, err = a.CreateExhibit(ctx, admin, booking.ExhibitInput{
		Name: "Lamp", ExhibitType: "bronze", ConditionStatus: "good", CollectionID: &col.ID,
	})
	requireKind(t, err, booking.KindValidation, booking.CodeValidation)

	require.NoError(t, a.DeleteExhibit(ctx, admin, ex.ID))
	err = a.DeleteExhibit(ctx, admin, ex.ID)
	requireKind(t, err, booking.KindNotFound, booking.CodeExhibitNotFound)

	_, err = a.UpdateCollection(ctx, admin, col.ID, booking.CollectionInput{Name: "Gone"})
	requireKind(t, err, booking.KindNotFound, booking.CodeCollectionAbsent)
}

func TestAdminCatalogRequiresAdminRole(t *testing.T) {
	a, f := newAdmin(t)
	ctx := context.Background()
	guide := booking.Identity{UserID: 9, Role: model.RoleGuide}

	_, err := a.ListGuides(ctx, guide)
	requireKind(t, err, booking.KindAuthorization, booking.CodeForbidden)
	_, err = a.CreateCollection(ctx, f.who, booking.CollectionInput{Name: "x"})
	requireKind(t, err, booking.KindAuthorization, booking.CodeForbidden)
	_, err = a.ListExhibits(ctx, f.who)
	requireKind(t, err, booking.KindAuthorization, booking.CodeForbidden)
	_, err = a.ListTours(ctx, guide)
	requireKind(t, err, booking.KindAuthorization, booking.CodeForbidden)
}
