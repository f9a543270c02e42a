package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
)

type pairResult struct {
	record   common.RelationshipRecord
	attempts int
}

func isSchemaErr(err error) bool {
	return errors.Is(err, ErrSchema)
}

func isTransientErr(err error) bool {
	return !isSchemaErr(err)
}

// extractPair asks the model for the relationship between entity1 and entity2.
// Unreachable models are retried on the exponential schedule and surface as
// ErrCollaboratorUnavailable. Unusable responses are retried on the fixed
// schedule and surface as a *SchemaError.
func (g *GraphClient) extractPair(
	ctx context.Context,
	aiClient ai.GraphAIClient,
	documentID string,
	entity1 string,
	entity2 string,
	text string,
) (pairResult, error) {
	prompt := fmt.Sprintf(ai.RelationshipUserPrompt, entity1, entity2, text)
	opts := []ai.GenerateOption{ai.WithSystemPrompts(ai.RelationshipPrompt)}
	if g.model != "" {
		opts = append(opts, ai.WithModel(g.model))
	}

	attempts := 0
	record, err := util.RetryBackoff(ctx, g.schema, isSchemaErr, func(ctx context.Context) (common.RelationshipRecord, error) {
		attempts++

		response, err := util.RetryBackoff(ctx, g.transient, isTransientErr, func(ctx context.Context) (string, error) {
			res, err := aiClient.GenerateCompletion(ctx, prompt, opts...)
			if errors.Is(err, ai.ErrEmptyResponse) {
				return "", schemaErrorf("", "empty response")
			}
			if err != nil && ctx.Err() == nil {
				logger.Warn("[Extract] Model call failed, retrying", "document", documentID, "entity_1", entity1, "entity_2", entity2, "err", err)
			}
			return res, err
		})
		if err != nil {
			if ctx.Err() != nil || isSchemaErr(err) {
				return common.RelationshipRecord{}, err
			}
			return common.RelationshipRecord{}, fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
		}

		record, err := parseRelationship(response, entity1, entity2)
		if err != nil {
			logger.Warn("[Extract] Invalid response, retrying", "document", documentID, "entity_1", entity1, "entity_2", entity2, "attempt", attempts, "err", err)
			return record, err
		}
		return record, nil
	})

	return pairResult{record: record, attempts: attempts}, err
}
