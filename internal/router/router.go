// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ardato/secure-notes/internal/handler"
	"github.com/ardato/secure-notes/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check, usable by load balancers and
// monitoring systems.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Login, register
// and refresh do not require an existing session; logout lives behind
// the auth gate since it acts on the caller's own tokens.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/api/auth")
	g.POST("", a.Login)
	g.POST("/register", a.Register)
	g.POST("/refresh", a.Refresh)

	e.POST("/api/logout", a.Logout, middleware.RequireAuth())
}

// RegisterNotes registers the note CRUD and listing endpoints. Every
// route requires an authenticated principal; the authorize middleware
// applied globally in main attaches it, RequireAuth enforces it.
func RegisterNotes(e *echo.Echo, n *handler.NotesHandler) {
	g := e.Group("/api/notes")
	g.Use(middleware.RequireAuth())

	g.POST("", n.Create)
	g.GET("", n.ListActive)
	g.GET("/deleted", n.ListDeleted)
	g.GET("/all", n.ListAll)
	g.GET("/:noteId", n.Get)
	g.PUT("/:noteId", n.Update)
	g.DELETE("/:noteId", n.Delete)
	g.GET("/:noteId/versions", n.ListVersions)
	g.GET("/:noteId/versions/:version", n.GetVersion)
}
