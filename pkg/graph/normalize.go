package graph

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"

	"golang.org/x/text/unicode/norm"
)

// DefaultScoreThreshold is the minimum tagger confidence an entity needs.
const DefaultScoreThreshold = 0.80

type acceptedEntity struct {
	entity  common.Entity
	lower   string
	removed bool
}

// NormalizeEntities turns raw detections into canonical entities. Detections
// are processed in input order:
//
//   - scores below threshold are dropped
//   - text is NFC-normalized and trimmed, anything shorter than two characters is dropped
//   - PER entities without whitespace (single names) are dropped
//   - within a document, a candidate contained case-insensitively in an
//     accepted entity is dropped; otherwise it evicts every accepted entity it
//     contains and takes the position of the first one evicted
//
// Rejections are logged at debug level and never fail the run.
func NormalizeEntities(detections []common.DetectedEntity, threshold float64) []common.Entity {
	accepted := make([]acceptedEntity, 0, len(detections))
	byDocument := make(map[string][]int)

	for _, d := range detections {
		if d.Score < threshold {
			logger.Debug("[Normalize] Dropped low score", "text", d.Text, "score", d.Score, "document", d.DocumentID)
			continue
		}

		text := strings.TrimSpace(norm.NFC.String(d.Text))
		if utf8.RuneCountInString(text) < 2 {
			logger.Debug("[Normalize] Dropped short text", "text", d.Text, "document", d.DocumentID)
			continue
		}
		if d.Label == common.LabelPerson && !strings.ContainsFunc(text, unicode.IsSpace) {
			logger.Debug("[Normalize] Dropped single name", "text", text, "document", d.DocumentID)
			continue
		}

		candidate := acceptedEntity{
			entity: common.Entity{
				Text:       text,
				Label:      d.Label,
				Score:      d.Score,
				DocumentID: d.DocumentID,
			},
			lower: strings.ToLower(text),
		}

		indices := byDocument[d.DocumentID]
		contained := false
		for _, idx := range indices {
			if !accepted[idx].removed && strings.Contains(accepted[idx].lower, candidate.lower) {
				contained = true
				break
			}
		}
		if contained {
			logger.Debug("[Normalize] Dropped contained entity", "text", text, "document", d.DocumentID)
			continue
		}

		slot := -1
		for _, idx := range indices {
			a := &accepted[idx]
			if a.removed || !strings.Contains(candidate.lower, a.lower) {
				continue
			}
			logger.Debug("[Normalize] Replaced contained entity", "text", a.entity.Text, "by", text, "document", d.DocumentID)
			a.removed = true
			if slot < 0 {
				slot = idx
			}
		}

		if slot >= 0 {
			accepted[slot] = candidate
			continue
		}
		accepted = append(accepted, candidate)
		byDocument[d.DocumentID] = append(indices, len(accepted)-1)
	}

	entities := make([]common.Entity, 0, len(accepted))
	for _, a := range accepted {
		if !a.removed {
			entities = append(entities, a.entity)
		}
	}

	logger.Info("[Normalize] Normalized entities", "detections", len(detections), "entities", len(entities))

	return entities
}
