package util

import (
	"testing"
	"time"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "duration string", value: "250ms", want: 250 * time.Millisecond},
		{name: "bare seconds", value: "5", want: 5 * time.Second},
		{name: "fractional seconds", value: "1.5", want: 1500 * time.Millisecond},
		{name: "invalid falls back", value: "soon", want: time.Minute},
		{name: "empty falls back", value: "", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("THREATMAP_TEST_DURATION", tt.value)
			got := GetEnvDuration("THREATMAP_TEST_DURATION", time.Minute)
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvNumericAndBool(t *testing.T) {
	t.Setenv("THREATMAP_TEST_NUM", "0.75")
	if got := GetEnvNumeric("THREATMAP_TEST_NUM", 0.8); got != 0.75 {
		t.Fatalf("expected 0.75, got %v", got)
	}
	t.Setenv("THREATMAP_TEST_NUM", "x")
	if got := GetEnvNumeric("THREATMAP_TEST_NUM", 0.8); got != 0.8 {
		t.Fatalf("expected fallback 0.8, got %v", got)
	}
	t.Setenv("THREATMAP_TEST_INT", "12")
	if got := GetEnvInt("THREATMAP_TEST_INT", 3); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	t.Setenv("THREATMAP_TEST_BOOL", "yes")
	if got := GetEnvBool("THREATMAP_TEST_BOOL", true); !got {
		t.Fatal("expected default true for unparseable bool")
	}
	t.Setenv("THREATMAP_TEST_BOOL", "false")
	if got := GetEnvBool("THREATMAP_TEST_BOOL", true); got {
		t.Fatal("expected false")
	}
}
