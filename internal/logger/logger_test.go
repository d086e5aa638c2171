package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"trace", LevelTrace, false},
		{"DEBUG", LevelDebug, false},
		{"warning", LevelWarning, false},
		{"Error", LevelError, false},
		{"FATAL", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "run-42")
	if got := CorrelationID(ctx); got != "run-42" {
		t.Errorf("CorrelationID() = %q, want run-42", got)
	}
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID() on empty context = %q, want empty", got)
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestContextHandlerAddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(&contextHandler{handler: slog.NewJSONHandler(&buf, nil)})
	ctx := WithCorrelationID(context.Background(), "run-7")

	log.InfoContext(ctx, "evaluated")
	log.Info("no context")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0][CorrelationIDAttr] != "run-7" {
		t.Errorf("first line correlation id = %v, want run-7", lines[0][CorrelationIDAttr])
	}
	if _, ok := lines[1][CorrelationIDAttr]; ok {
		t.Error("second line should carry no correlation id")
	}
}

func TestWithDoesNotDuplicateCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(&contextHandler{handler: slog.NewJSONHandler(&buf, nil)})
	ctx := WithCorrelationID(context.Background(), "run-9")

	With(ctx, base).InfoContext(ctx, "bound")

	if n := strings.Count(buf.String(), CorrelationIDAttr); n != 1 {
		t.Errorf("correlation id appears %d times, want 1: %s", n, buf.String())
	}
}

func TestRuleFaultCountsRegardlessOfSampling(t *testing.T) {
	SetSampleRate(1000000)
	defer SetSampleRate(1)

	before := TotalRuleFaults.Load()
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	for i := 0; i < 10; i++ {
		RuleFault(context.Background(), log, "rule fault")
	}
	if got := TotalRuleFaults.Load() - before; got != 10 {
		t.Errorf("TotalRuleFaults increased by %d, want 10", got)
	}
}
