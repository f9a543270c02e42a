package graph

import (
	"time"

	"github.com/OFFIS-RIT/threatmap/internal/util"
)

const (
	defaultSchemaAttempts   = 5
	defaultRetryDelay       = 5 * time.Second
	defaultMaxRetryDelay    = 2 * time.Minute
	defaultMaxContextTokens = 3000
)

// GraphClient extracts pairwise relationships between canonical entities.
// It owns the retry schedules and the prompt budget; the model, the document
// source and the record sink are passed per run.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	transient        util.Backoff
	schema           util.Backoff
	maxContextTokens int
	model            string
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// MaxAttempts bounds calls per pair when the model is unreachable. Zero retries
// forever. SchemaAttempts bounds calls per pair when the model answers with an
// unusable response; after that the pair is quarantined. RetryDelay is the base
// of the exponential transient schedule and the fixed schema delay.
type NewGraphClientParams struct {
	MaxAttempts      int
	SchemaAttempts   int
	RetryDelay       time.Duration
	MaxRetryDelay    time.Duration
	MaxContextTokens int
	Model            string
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		MaxAttempts:    8,
//		SchemaAttempts: 5,
//		RetryDelay:     5 * time.Second,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	schemaAttempts := params.SchemaAttempts
	if schemaAttempts <= 0 {
		schemaAttempts = defaultSchemaAttempts
	}
	maxAttempts := max(params.MaxAttempts, 0)
	delay := params.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	maxDelay := params.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}
	maxTokens := params.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxContextTokens
	}

	g := &GraphClient{
		transient: util.Backoff{
			Delay:       delay,
			MaxDelay:    maxDelay,
			MaxAttempts: maxAttempts,
			Exponential: true,
		},
		schema: util.Backoff{
			Delay:       delay,
			MaxAttempts: schemaAttempts,
		},
		maxContextTokens: maxTokens,
		model:            params.Model,
	}

	return g, nil
}
