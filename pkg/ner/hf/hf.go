package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
	"github.com/OFFIS-RIT/threatmap/pkg/ner"
)

var errRetryable = errors.New("retryable status")

// HFTagger calls a HuggingFace token-classification endpoint with
// aggregation_strategy=simple.
type HFTagger struct {
	url       string
	key       string
	client    *http.Client
	threshold float64
	maxChars  int
	backoff   util.Backoff
}

// NewHFTaggerParams configures an HFTagger. Texts longer than MaxChars are
// sent in paragraph-aligned chunks.
type NewHFTaggerParams struct {
	URL         string
	Key         string
	Threshold   float64
	MaxChars    int
	MaxAttempts int
	RetryDelay  time.Duration
	HTTPClient  *http.Client
}

func NewHFTagger(params NewHFTaggerParams) (*HFTagger, error) {
	if params.URL == "" {
		return nil, fmt.Errorf("NER url is required")
	}
	client := params.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = ner.DefaultScoreThreshold
	}
	maxChars := params.MaxChars
	if maxChars <= 0 {
		maxChars = ner.DefaultMaxChars
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	delay := params.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	return &HFTagger{
		url:       params.URL,
		key:       params.Key,
		client:    client,
		threshold: threshold,
		maxChars:  maxChars,
		backoff: util.Backoff{
			Delay:       delay,
			MaxDelay:    time.Minute,
			MaxAttempts: attempts,
			Exponential: true,
		},
	}, nil
}

type request struct {
	Inputs     string            `json:"inputs"`
	Parameters map[string]string `json:"parameters"`
}

func (t *HFTagger) Tag(ctx context.Context, documentID string, text string) ([]common.DetectedEntity, error) {
	var detections []common.DetectedEntity
	for _, chunk := range ner.ChunkText(text, t.maxChars) {
		spans, err := util.RetryBackoff(ctx, t.backoff, func(err error) bool {
			return errors.Is(err, errRetryable)
		}, func(ctx context.Context) ([]ner.Span, error) {
			return t.classify(ctx, chunk)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to tag %s: %w", documentID, err)
		}
		detections = append(detections, ner.FilterSpans(spans, documentID, t.threshold)...)
	}
	return detections, nil
}

func (t *HFTagger) classify(ctx context.Context, text string) ([]ner.Span, error) {
	body, err := json.Marshal(request{
		Inputs:     text,
		Parameters: map[string]string{"aggregation_strategy": "simple"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.key != "" {
		req.Header.Set("Authorization", "Bearer "+t.key)
	}

	res, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", errRetryable, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errRetryable, err)
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
		logger.Warn("[NER] Endpoint busy, retrying", "status", res.StatusCode)
		return nil, fmt.Errorf("%w: status %d", errRetryable, res.StatusCode)
	case res.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}

	var spans []ner.Span
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, fmt.Errorf("failed to decode NER response: %w", err)
	}
	return spans, nil
}
