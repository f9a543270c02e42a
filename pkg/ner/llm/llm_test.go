package llm

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	"github.com/OFFIS-RIT/threatmap/pkg/common"
)

type fakeClient struct {
	response string
	prompts  []string
}

func (f *fakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return f.response, nil
}

func (f *fakeClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	f.prompts = append(f.prompts, prompt)
	return json.Unmarshal([]byte(f.response), out)
}

func (f *fakeClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error { return nil }
func (f *fakeClient) ResetMetrics()                                                 {}
func (f *fakeClient) GetMetrics() ai.ModelMetrics                                   { return ai.ModelMetrics{} }

func TestLLMTaggerTag(t *testing.T) {
	client := &fakeClient{response: `{"entities": [
		{"text": "Ministry of Home Affairs", "label": "ORG", "score": 0.93},
		{"text": "Changi", "label": "LOC", "score": 0.99},
		{"text": "K. Shanmugam", "label": "PER", "score": 0.5}
	]}`}
	tagger, err := NewLLMTagger(NewLLMTaggerParams{Client: client})
	if err != nil {
		t.Fatal(err)
	}

	got, err := tagger.Tag(context.Background(), "news_row_4_text.txt", "The Ministry of Home Affairs said...")
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	want := []common.DetectedEntity{{
		Text:       "Ministry of Home Affairs",
		Label:      common.LabelOrganization,
		Score:      0.93,
		DocumentID: "news_row_4_text.txt",
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tag() = %+v, want %+v", got, want)
	}
	if len(client.prompts) != 1 || !strings.Contains(client.prompts[0], "The Ministry of Home Affairs said...") {
		t.Errorf("prompts = %q", client.prompts)
	}
}

func TestNewLLMTaggerRequiresClient(t *testing.T) {
	if _, err := NewLLMTagger(NewLLMTaggerParams{}); err == nil {
		t.Fatal("NewLLMTagger() expected error")
	}
}
