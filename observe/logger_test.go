package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line as JSON: %v\nLine: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestLogger_IncludesRegistryFields verifies registry identity is attached.
func TestLogger_IncludesRegistryFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithRegistry(RegistryMeta{
		Namespace: "shapes",
		Name:      "circles",
	})

	logger.Info(context.Background(), "test message")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["memo.registry"] != "shapes.circles" {
		t.Errorf("expected memo.registry='shapes.circles', got %v", entry["memo.registry"])
	}
	if entry["memo.namespace"] != "shapes" {
		t.Errorf("expected memo.namespace='shapes', got %v", entry["memo.namespace"])
	}
	if entry["level"] != "info" || entry["msg"] != "test message" {
		t.Errorf("unexpected level/msg: %v", entry)
	}
	if _, ok := entry["timestamp"].(string); !ok {
		t.Error("expected timestamp field")
	}
}

// TestLogger_LevelFiltering verifies entries below the level are dropped.
func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"debug", "info", "warn", "error"}},
		{"info", []string{"info", "warn", "error"}},
		{"warn", []string{"warn", "error"}},
		{"error", []string{"error"}},
		{"", []string{"info", "warn", "error"}},
	}

	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()

			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			entries := decodeLines(t, &buf)
			if len(entries) != len(tt.want) {
				t.Fatalf("expected %d entries, got %d", len(tt.want), len(entries))
			}
			for i, entry := range entries {
				if entry["level"] != tt.want[i] {
					t.Errorf("entry %d level = %v, want %s", i, entry["level"], tt.want[i])
				}
			}
		})
	}
}

// TestLogger_RedactsSensitiveFields verifies keys and values never reach the output.
func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Debug(context.Background(), "lookup",
		Field{Key: "keys", Value: []string{"user", "secret-id"}},
		Field{Key: "value", Value: "cached"},
		Field{Key: "key_len", Value: 2},
	)

	if strings.Contains(buf.String(), "secret-id") {
		t.Fatalf("key material leaked into log: %s", buf.String())
	}
	entry := decodeLines(t, &buf)[0]
	if entry["keys"] != "[REDACTED]" || entry["value"] != "[REDACTED]" {
		t.Errorf("expected redaction, got keys=%v value=%v", entry["keys"], entry["value"])
	}
	if entry["key_len"] != float64(2) {
		t.Errorf("expected key_len=2, got %v", entry["key_len"])
	}
}

// TestLogger_WithRegistryDoesNotLeakIntoParent verifies child attributes stay on the child.
func TestLogger_WithRegistryDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.WithRegistry(RegistryMeta{Name: "child"})

	parent.Info(context.Background(), "from parent")

	entry := decodeLines(t, &buf)[0]
	if _, ok := entry["memo.registry"]; ok {
		t.Error("parent logger should not carry child attributes")
	}
}

// TestParseLogLevel_RoundTrip verifies level names parse and print consistently.
func TestParseLogLevel_RoundTrip(t *testing.T) {
	for _, name := range []string{"debug", "info", "warn", "error"} {
		if got := ParseLogLevel(name).String(); got != name {
			t.Errorf("ParseLogLevel(%q).String() = %q", name, got)
		}
	}
	if ParseLogLevel("nonsense") != LevelInfo {
		t.Error("unknown level should default to info")
	}
}
