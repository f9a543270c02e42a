package ai

import (
	"strings"
	"testing"
)

func TestTruncateTokens(t *testing.T) {
	text := strings.Repeat("Alice Smith met Bob Jones at the embassy. ", 200)

	if got := TruncateTokens(text, 0); got != text {
		t.Fatal("expected no truncation for zero budget")
	}
	short := "Alice met Bob."
	if got := TruncateTokens(short, 100); got != short {
		t.Fatalf("expected short text unchanged, got %q", got)
	}

	got := TruncateTokens(text, 50)
	if len(got) >= len(text) {
		t.Fatalf("expected truncation, got %d bytes of %d", len(got), len(text))
	}
	if !strings.HasPrefix(text, got) {
		t.Fatal("expected truncated text to be a prefix of the input")
	}
	if CountTokens(text) <= 50 {
		t.Fatal("expected the input to exceed the budget")
	}
}
