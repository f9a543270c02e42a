package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/graph"
	"github.com/OFFIS-RIT/threatmap/pkg/leaselock"
	"github.com/OFFIS-RIT/threatmap/pkg/store"
)

type fakeAIClient struct {
	calls atomic.Int32
	err   error
}

const fakeResponse = `{
  "entity_1": "x",
  "entity_2": "y",
  "relationship_summary": "They met at the company.",
  "confidence_score": "85%",
  "relevant_context": "Alice Smith met Bob Jones",
  "threat_assessment": {
    "threat_level": 4,
    "type": "Economic",
    "explanation": "A business meeting.",
    "impact_level_on_singapore": 1,
    "impact_explanation": "N/A"
  },
  "origin_location_1": "Singapore",
  "origin_location_2": "Unknown"
}`

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return fakeResponse, nil
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeAIClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error { return nil }
func (f *fakeAIClient) ResetMetrics()                                                 {}
func (f *fakeAIClient) GetMetrics() ai.ModelMetrics                                   { return ai.ModelMetrics{} }

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	if err := store.WriteJSONAtomic(path, v); err != nil {
		t.Fatal(err)
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

// newTestApp lays out a data directory with one cable document and its
// detected entities.
func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("DOCUMENT_SOURCE", "fs")
	t.Setenv("EXTRACT_MAX_ATTEMPTS", "2")
	t.Setenv("EXTRACT_SCHEMA_ATTEMPTS", "2")
	t.Setenv("EXTRACT_RETRY_DELAY", "1ms")
	t.Setenv("EXTRACT_MAX_RETRY_DELAY", "2ms")

	p := defaultPaths()
	p.DataDir = t.TempDir()
	p.CableTextDir = "wikileaks_texts"
	p.NewsTextDir = "news_texts"
	a := &app{paths: p, threshold: graph.DefaultScoreThreshold}

	doc := "1.pdf_text.txt"
	text := "Alice Smith met Bob Jones at Acme Corporation.\nThe weather was fine."
	if err := store.WriteFileAtomic(filepath.Join(p.DataDir, "wikileaks_texts", doc), []byte(text)); err != nil {
		t.Fatal(err)
	}
	writeJSON(t, a.paths.resolve(a.paths.CombinedEntities), []common.DetectedEntity{
		{Text: "Alice Smith", Label: common.LabelPerson, Score: 0.99, DocumentID: doc},
		{Text: "Bob Jones", Label: common.LabelPerson, Score: 0.95, DocumentID: doc},
		{Text: "Acme Corporation", Label: common.LabelOrganization, Score: 0.9, DocumentID: doc},
		{Text: "AC", Label: common.LabelOrganization, Score: 0.9, DocumentID: doc},
		{Text: "Bob", Label: common.LabelPerson, Score: 0.99, DocumentID: doc},
		{Text: "Weather Office", Label: common.LabelOrganization, Score: 0.5, DocumentID: doc},
	})
	return a
}

func TestRunEndToEnd(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	fake := &fakeAIClient{}

	source, err := newDocumentSource(ctx, a.paths)
	if err != nil {
		t.Fatalf("newDocumentSource: %v", err)
	}
	if err := a.run(ctx, source, fake, false); err != nil {
		t.Fatalf("run: %v", err)
	}

	var entities []common.Entity
	readJSON(t, a.paths.resolve(a.paths.CleanedEntities), &entities)
	if len(entities) != 3 {
		t.Fatalf("expected 3 canonical entities, got %+v", entities)
	}

	if got := fake.calls.Load(); got != 3 {
		t.Errorf("expected 3 model calls, got %d", got)
	}

	var raw []map[string]any
	readJSON(t, a.paths.resolve(a.paths.Sanitized), &raw)
	if len(raw) != 3 {
		t.Fatalf("expected 3 sanitized records, got %d", len(raw))
	}
	for _, r := range raw {
		if r["origin_location_2"] != nil {
			t.Errorf("origin_location_2 = %v, want null", r["origin_location_2"])
		}
		if r["origin_location_1"] != "Singapore" {
			t.Errorf("origin_location_1 = %v", r["origin_location_1"])
		}
		assessment := r["threat_assessment"].(map[string]any)
		if assessment["impact_explanation"] != nil {
			t.Errorf("impact_explanation = %v, want null", assessment["impact_explanation"])
		}
		if r["entity_1"] == r["entity_2"] {
			t.Errorf("self pair %v", r["entity_1"])
		}
	}

	var network graph.Network
	readJSON(t, a.paths.resolve(a.paths.Network), &network)
	if len(network.Nodes) != 3 || len(network.Edges) != 3 {
		t.Errorf("network has %d nodes, %d edges", len(network.Nodes), len(network.Edges))
	}

	t.Run("rerun resumes", func(t *testing.T) {
		stats, err := a.extract(ctx, source, fake, false)
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if stats.Resumed != 3 || stats.Extracted != 0 {
			t.Errorf("stats = %+v", stats)
		}
		if got := fake.calls.Load(); got != 3 {
			t.Errorf("rerun called the model, calls = %d", got)
		}
	})
}

func TestExtractModelUnavailable(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if _, err := a.clean(); err != nil {
		t.Fatalf("clean: %v", err)
	}
	source, err := newDocumentSource(ctx, a.paths)
	if err != nil {
		t.Fatal(err)
	}

	fake := &fakeAIClient{err: errors.New("connection refused")}
	_, err = a.extract(ctx, source, fake, false)
	if !errors.Is(err, graph.ErrCollaboratorUnavailable) {
		t.Fatalf("expected ErrCollaboratorUnavailable, got %v", err)
	}
	if got := fake.calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
	if _, err := os.Stat(a.paths.resolve(a.paths.Relationships)); !os.IsNotExist(err) {
		t.Errorf("relationship array should not be finalized, stat err = %v", err)
	}
}

func TestFinalizeCommand(t *testing.T) {
	a := newTestApp(t)
	cmd := newRootCmd()
	cmd.SetArgs([]string{"finalize", "--data-dir", a.paths.DataDir})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	var records []common.RelationshipRecord
	readJSON(t, filepath.Join(a.paths.DataDir, "extracted_relationships.json"), &records)
	if len(records) != 0 {
		t.Errorf("expected an empty array, got %d records", len(records))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{90 * time.Second, "00:01:30"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "26:03:04"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestExtractRecordLogInUse(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if _, err := a.clean(); err != nil {
		t.Fatalf("clean: %v", err)
	}
	source, err := newDocumentSource(ctx, a.paths)
	if err != nil {
		t.Fatal(err)
	}

	held, err := leaselock.Acquire(ctx, a.paths.resolve(a.paths.RecordLog)+".lock", leaselock.Options{TTL: time.Minute})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	fake := &fakeAIClient{}
	if _, err := a.extract(ctx, source, fake, false); !errors.Is(err, leaselock.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if got := fake.calls.Load(); got != 0 {
		t.Errorf("model called %d times while the log was locked", got)
	}
}
