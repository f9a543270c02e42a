package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/OFFIS-RIT/threatmap/internal/server/middleware"
	"github.com/OFFIS-RIT/threatmap/internal/server/util"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"

	"github.com/labstack/echo/v4"
)

type apiError struct {
	status  int
	message string
}

func (e *apiError) write(c echo.Context) error {
	return c.JSON(e.status, map[string]string{"error": e.message})
}

var errInvalidParams = &apiError{http.StatusBadRequest, "Invalid request params"}

type recordFilter struct {
	Entity    string `query:"entity" validate:"max=512"`
	MinThreat int    `query:"min_threat" validate:"min=0,max=10"`
}

func (f *recordFilter) match(r common.RelationshipRecord) bool {
	if int(r.ThreatAssessment.ThreatLevel) < f.MinThreat {
		return false
	}
	if f.Entity == "" {
		return true
	}
	return strings.EqualFold(r.Entity1.Value, f.Entity) || strings.EqualFold(r.Entity2.Value, f.Entity)
}

// filteredRecords binds the entity and min_threat query parameters and
// returns the published records that match them.
func filteredRecords(c echo.Context) ([]common.RelationshipRecord, *apiError) {
	params := new(recordFilter)
	if err := c.Bind(params); err != nil {
		return nil, errInvalidParams
	}
	if err := c.Validate(params); err != nil {
		return nil, errInvalidParams
	}

	artifact := c.(*middleware.AppContext).App.Artifact
	records, err := artifact.Records()
	if err != nil {
		if errors.Is(err, util.ErrArtifactMissing) {
			return nil, &apiError{http.StatusServiceUnavailable, "No records published yet"}
		}
		logger.Error("[Server] Failed to load artifact", "path", artifact.Path(), "err", err)
		return nil, &apiError{http.StatusInternalServerError, "Failed to load records"}
	}

	out := make([]common.RelationshipRecord, 0, len(records))
	for _, r := range records {
		if params.match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetRelationshipsHandler lists records, optionally filtered by entity and
// minimum threat level.
func GetRelationshipsHandler(c echo.Context) error {
	records, apiErr := filteredRecords(c)
	if apiErr != nil {
		return apiErr.write(c)
	}
	return c.JSON(http.StatusOK, records)
}
