package booking

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/museum-booking/internal/model"
)

// GuideInput carries the writable guide fields.  An empty status means
// active; a zero hire date means today.
type GuideInput struct {
	FirstName      string
	LastName       string
	Phone          string
	Email          string
	Specialization string
	Status         string
	HireDate       time.Time
}

func (in GuideInput) toModel(id uint64, today time.Time) (model.Guide, error) {
	g := model.Guide{
		ID:             id,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Phone:          strings.TrimSpace(in.Phone),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Specialization: strings.TrimSpace(in.Specialization),
		Status:         strings.ToLower(strings.TrimSpace(in.Status)),
		HireDate:       in.HireDate,
	}
	if g.Status == "" {
		g.Status = model.GuideActive
	}
	if g.HireDate.IsZero() {
		g.HireDate = startOfDay(today)
	}

	verr := NewValidation(CodeValidation, "invalid guide")
	if g.FirstName == "" {
		verr.WithDetail("first_name", "required")
	}
	if g.LastName == "" {
		verr.WithDetail("last_name", "required")
	}
	if g.Status != model.GuideActive && g.Status != model.GuideInactive {
		verr.WithDetail("status", "must be active or inactive")
	}
	if len(verr.Details) > 0 {
		return model.Guide{}, verr
	}
	return g, nil
}

// ListGuides returns every guide, active or not.
func (a *AdminService) ListGuides(ctx context.Context, id Identity) ([]model.Guide, error) {
	return list(ctx, a, id, PermManageCatalog, "list guides", a.store.ListGuides)
}

func (a *AdminService) CreateGuide(ctx context.Context, id Identity, in GuideInput) (model.Guide, error) {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return model.Guide{}, err
	}
	g, err := in.toModel(0, a.now())
	if err != nil {
		return model.Guide{}, err
	}
	err = a.save(ctx, "create guide", func(ctx context.Context) error { return a.store.CreateGuide(ctx, &g) }, nil)
	if err != nil {
		return model.Guide{}, err
	}
	a.log.Info("guide created", "guide_id", g.ID, "by_user", id.UserID)
	return g, nil
}

// UpdateGuide replaces every writable field.  Deactivating a guide keeps
// existing bookings but stops new guide add-ons for them.
func (a *AdminService) UpdateGuide(ctx context.Context, id Identity, guideID uint64, in GuideInput) (model.Guide, error) {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return model.Guide{}, err
	}
	g, err := in.toModel(guideID, a.now())
	if err != nil {
		return model.Guide{}, err
	}
	err = a.save(ctx, "update guide", func(ctx context.Context) error { return a.store.UpdateGuide(ctx, g) },
		NewNotFound(CodeGuideNotFound, "guide not found").WithDetail("id", guideID))
	if err != nil {
		return model.Guide{}, err
	}
	return g, nil
}

// DeleteGuide refuses while tours are assigned to the guide.
func (a *AdminService) DeleteGuide(ctx context.Context, id Identity, guideID uint64) error {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return err
	}
	return a.remove(ctx, id, "delete guide", guideID, a.store.DeleteGuide,
		NewNotFound(CodeGuideNotFound, "guide not found").WithDetail("id", guideID),
		NewConflict(CodeStillReferenced, "guide is assigned to tours"))
}

// CollectionInput carries the writable collection fields.
type CollectionInput struct {
	Name         string
	CreationYear int
}

func (in CollectionInput) toModel(id uint64) (model.Collection, error) {
	c := model.Collection{ID: id, Name: strings.TrimSpace(in.Name), CreationYear: in.CreationYear}
	verr := NewValidation(CodeValidation, "invalid collection")
	if c.Name == "" {
		verr.WithDetail("collection_name", "required")
	}
	if c.CreationYear < 0 {
		verr.WithDetail("creation_year", "must not be negative")
	}
	if len(verr.Details) > 0 {
		return model.Collection{}, verr
	}
	return c, nil
}

// ListCollections returns every collection with its exhibit count.
func (a *AdminService) ListCollections(ctx context.Context, id Identity) ([]model.Collection, error) {
	return list(ctx, a, id, PermManageCatalog, "list collections", a.store.ListCollections)
}

func (a *AdminService) CreateCollection(ctx context.Context, id Identity, in CollectionInput) (model.Collection, error) {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return model.Collection{}, err
	}
	c, err := in.toModel(0)
	if err != nil {
		return model.Collection{}, err
	}
	err = a.save(ctx, "create collection", func(ctx context.Context) error { return a.store.CreateCollection(ctx, &c) }, nil)
	if err != nil {
		return model.Collection{}, err
	}
	a.log.Info("collection created", "collection_id", c.ID, "by_user", id.UserID)
	return c, nil
}

func (a *AdminService) UpdateCollection(ctx context.Context, id Identity, collectionID uint64, in CollectionInput) (model.Collection, error) {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return model.Collection{}, err
	}
	c, err := in.toModel(collectionID)
	if err != nil {
		return model.Collection{}, err
	}
	err = a.save(ctx, "update collection", func(ctx context.Context) error { return a.store.UpdateCollection(ctx, c) },
		NewNotFound(CodeCollectionAbsent, "collection not found").WithDetail("id", collectionID))
	if err != nil {
		return model.Collection{}, err
	}
	return c, nil
}

// DeleteCollection refuses while exhibits belong to the collection.
func (a *AdminService) DeleteCollection(ctx context.Context, id Identity, collectionID uint64) error {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return err
	}
	return a.remove(ctx, id, "delete collection", collectionID, a.store.DeleteCollection,
		NewNotFound(CodeCollectionAbsent, "collection not found").WithDetail("id", collectionID),
		NewConflict(CodeStillReferenced, "collection still has exhibits"))
}

// ExhibitInput carries the writable exhibit fields.
type ExhibitInput struct {
	Name            string
	CreationYear    int
	ExhibitType     string
	ConditionStatus string
	CollectionID    *uint64
}

func (in ExhibitInput) toModel(id uint64) (model.Exhibit, error) {
	e := model.Exhibit{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		CreationYear:    in.CreationYear,
		ExhibitType:     strings.TrimSpace(in.ExhibitType),
		ConditionStatus: strings.TrimSpace(in.ConditionStatus),
		CollectionID:    in.CollectionID,
	}
	if e.CollectionID != nil && *e.CollectionID == 0 {
		e.CollectionID = nil
	}

	verr := NewValidation(CodeValidation, "invalid exhibit")
	if e.Name == "" {
		verr.WithDetail("exhibit_name", "required")
	}
	if e.ExhibitType == "" {
		verr.WithDetail("exhibit_type", "required")
	}
	if e.ConditionStatus == "" {
		verr.WithDetail("condition_status", "required")
	}
	if e.CreationYear < 0 {
		verr.WithDetail("creation_year", "must not be negative")
	}
	if len(verr.Details) > 0 {
		return model.Exhibit{}, verr
	}
	return e, nil
}

// ListExhibits returns every exhibit with its collection name.
func (a *AdminService) ListExhibits(ctx context.Context, id Identity) ([]model.Exhibit, error) {
	return list(ctx, a, id, PermManageCatalog, "list exhibits", a.store.ListExhibits)
}

func (a *AdminService) CreateExhibit(ctx context.Context, id Identity, in ExhibitInput) (model.Exhibit, error) {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return model.Exhibit{}, err
	}
	e, err := in.toModel(0)
	if err != nil {
		return model.Exhibit{}, err
	}
	err = a.save(ctx, "create exhibit", func(ctx context.Context) error { return a.store.CreateExhibit(ctx, &e) }, nil)
	if err != nil {
		return model.Exhibit{}, err
	}
	a.log.Info("exhibit created", "exhibit_id", e.ID, "by_user", id.UserID)
	return e, nil
}

func (a *AdminService) UpdateExhibit(ctx context.Context, id Identity, exhibitID uint64, in ExhibitInput) (model.Exhibit, error) {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return model.Exhibit{}, err
	}
	e, err := in.toModel(exhibitID)
	if err != nil {
		return model.Exhibit{}, err
	}
	err = a.save(ctx, "update exhibit", func(ctx context.Context) error { return a.store.UpdateExhibit(ctx, e) },
		NewNotFound(CodeExhibitNotFound, "exhibit not found").WithDetail("id", exhibitID))
	if err != nil {
		return model.Exhibit{}, err
	}
	return e, nil
}

func (a *AdminService) DeleteExhibit(ctx context.Context, id Identity, exhibitID uint64) error {
	if err := Authorize(id, PermManageCatalog); err != nil {
		return err
	}
	return a.remove(ctx, id, "delete exhibit", exhibitID, a.store.DeleteExhibit,
		NewNotFound(CodeExhibitNotFound, "exhibit not found").WithDetail("id", exhibitID), nil)
}
