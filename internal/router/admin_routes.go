package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/museum-booking/internal/handler"
	"github.com/iliyamo/museum-booking/internal/middleware"
)

// RegisterAdmin registers catalog, user and audio-guide pool management
// under /v1/admin.  The admin service rejects callers without the admin
// role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret))

	// ---- Tours ----
	g.GET("/tours", h.ListTours)
	g.POST("/tours", h.CreateTour)
	g.PUT("/tours/:id", h.UpdateTour)
	g.DELETE("/tours/:id", h.DeleteTour)

	// ---- Exhibitions and masterclasses ----
	g.GET("/exhibitions", h.ListExhibitions)
	g.DELETE("/exhibitions/:id", h.DeleteExhibition)
	g.GET("/masterclasses", h.ListMasterclasses)
	g.DELETE("/masterclasses/:id", h.DeleteMasterclass)

	// ---- Guides, collections, exhibits ----
	g.GET("/guides", h.ListGuides)
	g.POST("/guides", h.CreateGuide)
	g.PUT("/guides/:id", h.UpdateGuide)
	g.DELETE("/guides/:id", h.DeleteGuide)
	g.GET("/collections", h.ListCollections)
	g.POST("/collections", h.CreateCollection)
	g.PUT("/collections/:id", h.UpdateCollection)
	g.DELETE("/collections/:id", h.DeleteCollection)
	g.GET("/exhibits", h.ListExhibits)
	g.POST("/exhibits", h.CreateExhibit)
	g.PUT("/exhibits/:id", h.UpdateExhibit)
	g.DELETE("/exhibits/:id", h.DeleteExhibit)

	// ---- Users ----
	g.GET("/users", h.ListUsers)
	g.POST("/users", h.CreateUser)
	g.GET("/users/:id", h.GetUser)
	g.PATCH("/users/:id", h.UpdateUser)
	g.DELETE("/users/:id", h.DeleteUser)

	// ---- Audio guides ----
	g.GET("/audio-guides", h.ListAudioGuides)
	g.PUT("/audio-guides/:id/status", h.SetAudioGuideStatus)
}
