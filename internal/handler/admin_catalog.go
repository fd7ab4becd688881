package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/booking"
)

type guideReq struct {
	FirstName      string `json:"first_name" validate:"required,max=100"`
	LastName       string `json:"last_name" validate:"required,max=100"`
	Phone          string `json:"phone_number" validate:"max=32"`
	Email          string `json:"email" validate:"omitempty,email,max=255"`
	Specialization string `json:"specialization" validate:"max=255"`
	Status         string `json:"status"`
	HireDate       string `json:"hire_date"`
}

func (r guideReq) input() (booking.GuideInput, error) {
	in := booking.GuideInput{
		FirstName: r.FirstName, LastName: r.LastName, Phone: r.Phone, Email: r.Email,
		Specialization: r.Specialization, Status: r.Status,
	}
	if r.HireDate != "" {
		d, err := booking.ParseScheduleTime(r.HireDate)
		if err != nil {
			return booking.GuideInput{}, booking.NewValidation(booking.CodeValidation, "invalid guide").
				WithDetail("hire_date", "must be a date")
		}
		in.HireDate = d
	}
	return in, nil
}

type collectionReq struct {
	Name         string `json:"collection_name" validate:"required,max=255"`
	CreationYear int    `json:"creation_year"`
}

func (r collectionReq) input() booking.CollectionInput {
	return booking.CollectionInput{Name: r.Name, CreationYear: r.CreationYear}
}

type exhibitReq struct {
	Name            string  `json:"exhibit_name" validate:"required,max=255"`
	CreationYear    int     `json:"creation_year"`
	ExhibitType     string  `json:"exhibit_type" validate:"required,max=100"`
	ConditionStatus string  `json:"condition_status" validate:"required,max=100"`
	CollectionID    *uint64 `json:"collection_id"`
}

func (r exhibitReq) input() booking.ExhibitInput {
	return booking.ExhibitInput{
		Name: r.Name, CreationYear: r.CreationYear, ExhibitType: r.ExhibitType,
		ConditionStatus: r.ConditionStatus, CollectionID: r.CollectionID,
	}
}

// ListGuides: GET /v1/admin/guides
// Unlike GET /v1/guides this includes inactive guides.
func (h *AdminHandler) ListGuides(c echo.Context) error {
	list, err := h.Svc.ListGuides(c.Request().Context(), identity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toGuideView)})
}

// CreateGuide: POST /v1/admin/guides
func (h *AdminHandler) CreateGuide(c echo.Context) error {
	var req guideReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in, err := req.input()
	if err != nil {
		return writeError(c, err)
	}
	g, err := h.Svc.CreateGuide(c.Request().Context(), identity(c), in)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, toGuideView(g))
}

// UpdateGuide: PUT /v1/admin/guides/:id
func (h *AdminHandler) UpdateGuide(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	var req guideReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	in, err := req.input()
	if err != nil {
		return writeError(c, err)
	}
	g, err := h.Svc.UpdateGuide(c.Request().Context(), identity(c), id, in)
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, toGuideView(g))
}

// DeleteGuide: DELETE /v1/admin/guides/:id
func (h *AdminHandler) DeleteGuide(c echo.Context) error {
	return h.remove(c, h.Svc.DeleteGuide)
}

// ListCollections: GET /v1/admin/collections
func (h *AdminHandler) ListCollections(c echo.Context) error {
	list, err := h.Svc.ListCollections(c.Request().Context(), identity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toCollectionView)})
}

// CreateCollection: POST /v1/admin/collections
func (h *AdminHandler) CreateCollection(c echo.Context) error {
	var req collectionReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	col, err := h.Svc.CreateCollection(c.Request().Context(), identity(c), req.input())
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, toCollectionView(col))
}

// UpdateCollection: PUT /v1/admin/collections/:id
func (h *AdminHandler) UpdateCollection(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	var req collectionReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	col, err := h.Svc.UpdateCollection(c.Request().Context(), identity(c), id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, toCollectionView(col))
}

// DeleteCollection: DELETE /v1/admin/collections/:id
func (h *AdminHandler) DeleteCollection(c echo.Context) error {
	return h.remove(c, h.Svc.DeleteCollection)
}

// ListExhibits: GET /v1/admin/exhibits
func (h *AdminHandler) ListExhibits(c echo.Context) error {
	list, err := h.Svc.ListExhibits(c.Request().Context(), identity(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": views(list, toExhibitView)})
}

// CreateExhibit: POST /v1/admin/exhibits
func (h *AdminHandler) CreateExhibit(c echo.Context) error {
	var req exhibitReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	e, err := h.Svc.CreateExhibit(c.Request().Context(), identity(c), req.input())
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, toExhibitView(e))
}

// UpdateExhibit: PUT /v1/admin/exhibits/:id
func (h *AdminHandler) UpdateExhibit(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c, "id")
	}
	var req exhibitReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	e, err := h.Svc.UpdateExhibit(c.Request().Context(), identity(c), id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, toExhibitView(e))
}

// DeleteExhibit: DELETE /v1/admin/exhibits/:id
func (h *AdminHandler) DeleteExhibit(c echo.Context) error {
	return h.remove(c, h.Svc.DeleteExhibit)
}
