package util

import "testing"

func TestCalculateProgressPercentage(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		done  int64
		want  int32
	}{
		{name: "empty step", total: 0, done: 0, want: 100},
		{name: "half", total: 10, done: 5, want: 50},
		{name: "rounds down", total: 3, done: 1, want: 33},
		{name: "clamps overflow", total: 4, done: 9, want: 100},
		{name: "clamps negative", total: 4, done: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateProgressPercentage(tt.total, tt.done); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStepProgress(t *testing.T) {
	p := NewStepProgress(4)
	if got := p.Add(1); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	p.Add(3)
	if p.Percentage() != 100 {
		t.Fatalf("expected 100, got %d", p.Percentage())
	}
	if p.String() != "4/4" {
		t.Fatalf("unexpected string %q", p.String())
	}
}
