package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInitAndLevelString(t *testing.T) {
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	orig := logger.Out
	logger.SetOutput(&buf)
	defer logger.SetOutput(orig)

	Init("warn")
	defer Init("info")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg")
	Warn("plain-warn")

	out := buf.String()
	if strings.Contains(out, "debug-msg") {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if strings.Contains(out, "info-msg") {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if !strings.Contains(out, "warn-msg") {
		t.Fatalf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "plain-warn") {
		t.Fatalf("unformatted warn message missing: %q", out)
	}
	if !strings.Contains(out, "error-msg") {
		t.Fatalf("error message missing: %q", out)
	}
}

func TestWithFieldsWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	orig := logger.Out
	logger.SetOutput(&buf)
	defer logger.SetOutput(orig)
	Init("info")

	WithFields(Fields{"op": "delete", "objectId": "abc"}).Info("user removed")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["op"] != "delete" || entry["objectId"] != "abc" {
		t.Fatalf("fields missing from entry: %v", entry)
	}
	if entry["level"] != "info" || entry["msg"] != "user removed" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
