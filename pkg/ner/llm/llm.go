package llm

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/ner"
)

// LLMTagger asks a generative model for entity mentions using structured
// output.
type LLMTagger struct {
	client    ai.GraphAIClient
	threshold float64
	maxChars  int
	opts      []ai.GenerateOption
}

type NewLLMTaggerParams struct {
	Client    ai.GraphAIClient
	Threshold float64
	MaxChars  int
	Model     string
}

func NewLLMTagger(params NewLLMTaggerParams) (*LLMTagger, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = ner.DefaultScoreThreshold
	}
	maxChars := params.MaxChars
	if maxChars <= 0 {
		maxChars = 4 * ner.DefaultMaxChars
	}
	opts := []ai.GenerateOption{ai.WithTemperature(0)}
	if params.Model != "" {
		opts = append(opts, ai.WithModel(params.Model))
	}
	return &LLMTagger{client: params.Client, threshold: threshold, maxChars: maxChars, opts: opts}, nil
}

type mention struct {
	Text  string  `json:"text" jsonschema:"description=The mention exactly as written in the text"`
	Label string  `json:"label" jsonschema:"enum=ORG,enum=PER"`
	Score float64 `json:"score" jsonschema:"minimum=0,maximum=1"`
}

type mentions struct {
	Entities []mention `json:"entities"`
}

func (t *LLMTagger) Tag(ctx context.Context, documentID string, text string) ([]common.DetectedEntity, error) {
	var detections []common.DetectedEntity
	for _, chunk := range ner.ChunkText(text, t.maxChars) {
		var out mentions
		err := t.client.GenerateCompletionWithFormat(
			ctx,
			"entities",
			"Organization and person mentions found in the text",
			fmt.Sprintf(ai.NERPrompt, chunk),
			&out,
			t.opts...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to tag %s: %w", documentID, err)
		}

		spans := make([]ner.Span, 0, len(out.Entities))
		for _, m := range out.Entities {
			spans = append(spans, ner.Span{Group: m.Label, Word: m.Text, Score: m.Score})
		}
		detections = append(detections, ner.FilterSpans(spans, documentID, t.threshold)...)
	}
	return detections, nil
}
