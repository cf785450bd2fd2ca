package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Leveler
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFieldHelpers(t *testing.T) {
	if f := String("k", "v"); f.Key != "k" || f.Value != "v" {
		t.Errorf("String field = %+v", f)
	}
	if f := Int("n", 3); f.Value != 3 {
		t.Errorf("Int field = %+v", f)
	}
	if f := Float64("x", 0.5); f.Value != 0.5 {
		t.Errorf("Float64 field = %+v", f)
	}
}

func TestNoopLoggerIsSafe(t *testing.T) {
	log := Noop()
	ctx := context.Background()
	log.Debug(ctx, "dropped")
	log.Info(ctx, "dropped", String("k", "v"))
	log.Warn(ctx, "dropped")
	log.Error(ctx, "dropped")
	if derived := log.With(Int("n", 1)); derived == nil {
		t.Fatal("With returned nil logger")
	}
}
