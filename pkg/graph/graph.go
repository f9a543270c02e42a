package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/loader"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// RecordSink persists extraction results. Completed reports pairs that already
// have a record so that a resumed run skips them.
type RecordSink interface {
	Completed(key common.PairKey) bool
	Append(ctx context.Context, documentID string, record common.RelationshipRecord) error
	Quarantine(ctx context.Context, entry common.QuarantineEntry) error
}

// DocumentStats summarizes the work done for one document. Pairs is
// k*(k-1)/2 for k surviving entities.
type DocumentStats struct {
	DocumentID  string `json:"document_id"`
	Entities    int    `json:"entities"`
	Pairs       int    `json:"pairs"`
	Extracted   int    `json:"extracted"`
	Resumed     int    `json:"resumed"`
	Unsupported int    `json:"unsupported"`
	Quarantined int    `json:"quarantined"`
	Missing     bool   `json:"missing"`
}

// RunStats aggregates DocumentStats over a run.
type RunStats struct {
	RunID       string          `json:"run_id"`
	Documents   []DocumentStats `json:"documents"`
	Pairs       int             `json:"pairs"`
	Extracted   int             `json:"extracted"`
	Resumed     int             `json:"resumed"`
	Unsupported int             `json:"unsupported"`
	Quarantined int             `json:"quarantined"`
	Missing     int             `json:"missing"`
	Duration    time.Duration   `json:"duration"`
}

func (s *RunStats) add(doc DocumentStats) {
	s.Documents = append(s.Documents, doc)
	s.Pairs += doc.Pairs
	s.Extracted += doc.Extracted
	s.Resumed += doc.Resumed
	s.Unsupported += doc.Unsupported
	s.Quarantined += doc.Quarantined
	if doc.Missing {
		s.Missing++
	}
}

type documentEntities struct {
	id    string
	names []string
}

// groupByDocument groups entity texts by document in first-seen order.
// Duplicate texts within a document are kept once.
func groupByDocument(entities []common.Entity) []documentEntities {
	index := make(map[string]int)
	seen := make(map[common.PairKey]struct{})
	var docs []documentEntities

	for _, e := range entities {
		key := common.PairKey{DocumentID: e.DocumentID, Entity1: e.Text}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		i, ok := index[e.DocumentID]
		if !ok {
			i = len(docs)
			index[e.DocumentID] = i
			docs = append(docs, documentEntities{id: e.DocumentID})
		}
		docs[i].names = append(docs[i].names, e.Text)
	}

	return docs
}

// ExtractRelationships extracts one record per unordered pair of distinct
// entities sharing a document. Documents are processed sequentially in the
// order their entities first appear. Records are handed to sink as soon as
// they are accepted, so a cancelled or failed run can be resumed.
//
// The returned error is nil, a context error, ErrCollaboratorUnavailable or a
// sink failure. Partial stats are returned in every case.
func (g *GraphClient) ExtractRelationships(
	ctx context.Context,
	source loader.DocumentSource,
	entities []common.Entity,
	aiClient ai.GraphAIClient,
	sink RecordSink,
) (RunStats, error) {
	start := time.Now()
	runID, err := gonanoid.New()
	if err != nil {
		return RunStats{}, fmt.Errorf("failed to generate run id: %w", err)
	}
	stats := RunStats{RunID: runID}

	docs := groupByDocument(entities)
	logger.Info("[Extract] Starting run", "run_id", runID, "documents", len(docs), "entities", len(entities))

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		docStats, err := g.processDocument(ctx, source, doc, aiClient, sink)
		stats.add(docStats)
		if err != nil {
			stats.Duration = time.Since(start)
			if !errors.Is(err, context.Canceled) {
				logger.Error("[Extract] Run stopped", "run_id", runID, "document", doc.id, "err", err)
			}
			return stats, err
		}

		logger.Info("[Extract] Document done",
			"document", doc.id,
			"progress", fmt.Sprintf("%d/%d", i+1, len(docs)),
			"extracted", docStats.Extracted,
			"quarantined", docStats.Quarantined,
		)
	}

	stats.Duration = time.Since(start)
	logger.Info("[Extract] Run completed",
		"run_id", runID,
		"pairs", stats.Pairs,
		"extracted", stats.Extracted,
		"resumed", stats.Resumed,
		"unsupported", stats.Unsupported,
		"quarantined", stats.Quarantined,
		"missing_documents", stats.Missing,
		"duration", stats.Duration,
	)

	return stats, nil
}
