package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/threatmap/pkg/graph"

	"github.com/labstack/echo/v4"
)

func GetNetworkHandler(c echo.Context) error {
	records, apiErr := filteredRecords(c)
	if apiErr != nil {
		return apiErr.write(c)
	}
	return c.JSON(http.StatusOK, graph.BuildNetwork(records))
}

// GetThreatsHandler returns per entity counts of records by threat level.
func GetThreatsHandler(c echo.Context) error {
	records, apiErr := filteredRecords(c)
	if apiErr != nil {
		return apiErr.write(c)
	}
	return c.JSON(http.StatusOK, graph.CountThreats(records))
}
