package s3

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OFFIS-RIT/threatmap/pkg/loader"
)

func TestGetFileText(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		switch r.URL.Path {
		case "/threat-data/processed/news_texts/news_row_0_text.txt":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("Interpol warned Europol."))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
		}
	}))
	defer srv.Close()

	l, err := NewS3GraphFileLoader(context.Background(), NewS3GraphFileLoaderParams{
		Bucket:    "threat-data",
		Prefix:    "/processed/",
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatalf("NewS3GraphFileLoader() error = %v", err)
	}

	file := loader.NewGraphTextFile(loader.NewGraphFileParams{
		ID:       "news_row_0_text.txt",
		FilePath: "news_texts/news_row_0_text.txt",
		Loader:   l,
	})
	for range 2 {
		got, err := file.GetText(context.Background())
		if err != nil {
			t.Fatalf("GetText() error = %v", err)
		}
		if string(got) != "Interpol warned Europol." {
			t.Fatalf("unexpected text %q", got)
		}
	}
	if requests != 1 {
		t.Fatalf("expected cached second read, got %d requests", requests)
	}

	missing := loader.NewGraphTextFile(loader.NewGraphFileParams{ID: "x", FilePath: "news_texts/x", Loader: l})
	if _, err := missing.GetText(context.Background()); !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
