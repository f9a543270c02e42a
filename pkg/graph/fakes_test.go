package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
	"github.com/OFFIS-RIT/threatmap/pkg/loader"
)

type fakeAIClient struct {
	mu      sync.Mutex
	prompts []string
	respond func(call int, entity1, entity2, text string) (string, error)
}

func promptField(prompt, field string) string {
	for line := range strings.SplitSeq(prompt, "\n") {
		if v, ok := strings.CutPrefix(line, field+": "); ok {
			return v
		}
	}
	return ""
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	call := len(f.prompts)
	f.mu.Unlock()
	return f.respond(call, promptField(prompt, "Entity 1"), promptField(prompt, "Entity 2"), promptField(prompt, "Text"))
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return fmt.Errorf("not implemented")
}

func (f *fakeAIClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error { return nil }
func (f *fakeAIClient) ResetMetrics()                                                 {}
func (f *fakeAIClient) GetMetrics() ai.ModelMetrics                                   { return ai.ModelMetrics{} }

func (f *fakeAIClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func validResponse(entity1, entity2 string) string {
	return fmt.Sprintf(`{
  "entity_1": %q,
  "entity_2": %q,
  "relationship_summary": "They met.",
  "confidence_score": "80%%",
  "relevant_context": "They met\\nin Paris.",
  "threat_assessment": {
    "threat_level": 3,
    "type": "Diplomatic",
    "explanation": "A meeting.",
    "impact_level_on_singapore": 0,
    "impact_explanation": "N/A"
  },
  "origin_location_1": "Paris",
  "origin_location_2": "Unknown"
}`, entity1, entity2)
}

type memorySink struct {
	mu         sync.Mutex
	completed  map[common.PairKey]struct{}
	records    []common.RelationshipRecord
	documents  []string
	quarantine []common.QuarantineEntry
}

func newMemorySink() *memorySink {
	return &memorySink{completed: make(map[common.PairKey]struct{})}
}

func (s *memorySink) Completed(key common.PairKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.completed[key]
	return ok
}

func (s *memorySink) Append(ctx context.Context, documentID string, record common.RelationshipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	s.documents = append(s.documents, documentID)
	s.completed[common.NewPairKey(documentID, record.Entity1.Value, record.Entity2.Value)] = struct{}{}
	return nil
}

func (s *memorySink) Quarantine(ctx context.Context, entry common.QuarantineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarantine = append(s.quarantine, entry)
	return nil
}

type mapLoader map[string]string

func (m mapLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	text, ok := m[file.FilePath]
	if !ok {
		return nil, fmt.Errorf("%s: %w", file.FilePath, loader.ErrNotFound)
	}
	return []byte(text), nil
}

// newMapSource serves documents by id from memory.
func newMapSource(docs map[string]string) loader.DocumentSource {
	files := make(mapLoader, len(docs))
	for id, text := range docs {
		files["docs/"+id] = text
	}
	return loader.NewDirectorySource(loader.NewDirectorySourceParams{
		NewsDir:  "docs",
		CableDir: "docs",
		Loader:   files,
	})
}
