package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/condo-water-billing/internal/handler"
	"github.com/iliyamo/condo-water-billing/internal/middleware"
)

// AdminRole is the JWT role claim required for every write and for the
// admin-only reports.
const AdminRole = "ADMIN"

// RegisterRoutes registers the routes that do not touch billing data:
// liveness and, when db is set, readiness.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterPublic registers unauthenticated read endpoints.  cache wraps
// each route; pass nothing to serve them uncached.
func RegisterPublic(e *echo.Echo, h *handler.BillingHandler, cache ...echo.MiddlewareFunc) {
	e.GET("/v1/rooms", h.ListRooms, cache...)
	e.GET("/v1/rooms/:id", h.GetRoom, cache...)
	e.GET("/v1/water-readings", h.ListReadings, cache...)
	e.GET("/v1/water-readings/:id", h.GetReading, cache...)
}

// RegisterAdmin registers ADMIN-scoped endpoints under /v1.  All routes
// require a valid JWT with the ADMIN role.  purge runs around every route so
// successful writes invalidate cached reads; cache wraps the admin reports.
func RegisterAdmin(e *echo.Echo, h *handler.BillingHandler, jwtSecret string, purge, cache echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(AdminRole)}
	if purge != nil {
		mws = append(mws, purge)
	}
	g := e.Group("/v1", mws...)

	// ---- Rooms ----
	g.POST("/rooms", h.CreateRoom)
	g.PUT("/rooms/:id", h.UpdateRoom)
	g.PATCH("/rooms/:id", h.UpdateRoom) // alias for clients that use PATCH
	g.DELETE("/rooms/:id", h.DeleteRoom)

	// ---- Water readings ----
	g.POST("/water-readings", h.SaveReading)
	g.PUT("/water-readings/:id", h.UpdateReading)
	g.DELETE("/water-readings/:id", h.DeleteReading)
	g.POST("/water-readings/rollover", h.RolloverReadings)
	g.POST("/water-readings/import", h.ImportReadings)

	// ---- Reports ----
	reports := []echo.MiddlewareFunc{}
	if cache != nil {
		reports = append(reports, cache)
	}
	g.GET("/water-readings/summary", h.Summary, reports...)
	g.GET("/water-readings/export", h.ExportReadings, reports...)
}
