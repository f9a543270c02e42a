package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/loader"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
)

func (g *GraphClient) processDocument(
	ctx context.Context,
	source loader.DocumentSource,
	doc documentEntities,
	aiClient ai.GraphAIClient,
	sink RecordSink,
) (DocumentStats, error) {
	k := len(doc.names)
	stats := DocumentStats{
		DocumentID: doc.id,
		Entities:   k,
		Pairs:      k * (k - 1) / 2,
	}
	logger.Info("[Extract] Processing document", "document", doc.id, "entities", k, "pairs", stats.Pairs)

	if stats.Pairs == 0 {
		return stats, nil
	}

	file, err := source.Resolve(ctx, doc.id)
	if err != nil {
		return stats, fmt.Errorf("failed to resolve document %s: %w", doc.id, err)
	}
	content, err := file.GetText(ctx)
	if err != nil {
		if errors.Is(err, loader.ErrNotFound) {
			logger.Warn("[Extract] Document not found, skipping", "document", doc.id, "path", file.FilePath)
			stats.Missing = true
			return stats, nil
		}
		return stats, fmt.Errorf("failed to read document %s: %w", doc.id, err)
	}

	sentences := splitIntoSentences(util.SanitizeText(string(content)))
	matcher := newMentionMatcher()
	progress := util.NewStepProgress(stats.Pairs)
	lastLogged := int32(-10)

	step := func() {
		pct := progress.Add(1)
		if pct/10 != lastLogged/10 {
			lastLogged = pct
			logger.Debug("[Extract] Progress", "document", doc.id, "pairs", progress.String(), "percentage", pct)
		}
	}

	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			entity1, entity2 := doc.names[i], doc.names[j]
			if entity1 == entity2 {
				step()
				continue
			}

			key := common.NewPairKey(doc.id, entity1, entity2)
			if sink.Completed(key) {
				stats.Resumed++
				step()
				continue
			}

			text := matcher.selectSupportingText(sentences, entity1, entity2)
			if text == "" {
				logger.Debug("[Extract] No supporting text", "document", doc.id, "entity_1", entity1, "entity_2", entity2)
				stats.Unsupported++
				step()
				continue
			}
			text = ai.TruncateTokens(text, g.maxContextTokens)

			result, err := g.extractPair(ctx, aiClient, doc.id, entity1, entity2, text)
			var schemaErr *SchemaError
			switch {
			case err == nil:
				if err := sink.Append(ctx, doc.id, result.record); err != nil {
					return stats, fmt.Errorf("failed to persist record: %w", err)
				}
				stats.Extracted++
			case errors.As(err, &schemaErr):
				logger.Warn("[Extract] Quarantined pair", "document", doc.id, "entity_1", entity1, "entity_2", entity2, "attempts", result.attempts, "reason", schemaErr.Reason)
				entry := common.QuarantineEntry{
					DocumentID: doc.id,
					Entity1:    entity1,
					Entity2:    entity2,
					Reason:     schemaErr.Reason,
					Response:   schemaErr.Response,
					Attempts:   result.attempts,
					Time:       time.Now().UTC(),
				}
				if err := sink.Quarantine(ctx, entry); err != nil {
					return stats, fmt.Errorf("failed to quarantine pair: %w", err)
				}
				stats.Quarantined++
			default:
				return stats, err
			}
			step()
		}
	}

	return stats, nil
}
