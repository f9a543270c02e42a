package server

import (
	"github.com/OFFIS-RIT/threatmap/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	apiRoutes.GET("/relationships", routes.GetRelationshipsHandler)
	apiRoutes.GET("/network", routes.GetNetworkHandler)
	apiRoutes.GET("/threats", routes.GetThreatsHandler)
}
