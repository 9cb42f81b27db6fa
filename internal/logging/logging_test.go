package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: JSONFormat, Level: WarnLevel, Output: &buf})

	l.Debug("dropped", nil)
	l.Info("dropped", nil)
	l.Warn("kept", nil)
	l.Error("kept", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %q", len(lines), buf.String())
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: JSONFormat, Level: DebugLevel, Output: &buf})

	l.Info("run complete", map[string]interface{}{"entities": 42, "repo": "r1"})

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry.Level != "info" || entry.Message != "run complete" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["repo"] != "r1" {
		t.Errorf("fields not preserved: %+v", entry.Fields)
	}
}

func TestHumanOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: HumanFormat, Level: DebugLevel, Output: &buf})

	l.Warn("cache cleared", map[string]interface{}{"size": 10})

	out := buf.String()
	if !strings.Contains(out, "[warn]") || !strings.Contains(out, "cache cleared") {
		t.Errorf("unexpected human output: %q", out)
	}
	if !strings.Contains(out, "size=10") {
		t.Errorf("fields missing from human output: %q", out)
	}
}
