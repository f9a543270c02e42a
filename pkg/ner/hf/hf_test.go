package hf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
)

func newTagger(t *testing.T, url string) *HFTagger {
	t.Helper()
	tagger, err := NewHFTagger(NewHFTaggerParams{
		URL:         url,
		Key:         "secret",
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHFTagger() error = %v", err)
	}
	return tagger
}

func TestHFTaggerTag(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error": "model loading"}`, http.StatusServiceUnavailable)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Parameters["aggregation_strategy"] != "simple" {
			t.Errorf("parameters = %v", req.Parameters)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"entity_group": "ORG", "word": "Interpol", "score": 0.998, "start": 0, "end": 8},
			{"entity_group": "LOC", "word": "Lyon", "score": 0.99, "start": 20, "end": 24}
		]`))
	}))
	defer srv.Close()

	got, err := newTagger(t, srv.URL).Tag(context.Background(), "cable_1_text.txt", "Interpol is based in Lyon.")
	if err != nil {
		t.Fatalf("Tag() error = %v", err)
	}
	want := common.DetectedEntity{Text: "Interpol", Label: common.LabelOrganization, Score: 0.998, DocumentID: "cable_1_text.txt"}
	if len(got) != 1 || got[0] != want {
		t.Errorf("Tag() = %+v, want [%+v]", got, want)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestHFTaggerClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := newTagger(t, srv.URL).Tag(context.Background(), "d1", "text"); err == nil {
		t.Fatal("Tag() expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestHFTaggerGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTagger(t, srv.URL).Tag(context.Background(), "d1", "text"); err == nil {
		t.Fatal("Tag() expected error")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestNewHFTaggerRequiresURL(t *testing.T) {
	if _, err := NewHFTagger(NewHFTaggerParams{}); err == nil {
		t.Fatal("NewHFTagger() expected error")
	}
}
