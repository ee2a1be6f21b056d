package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&syncWriter{writer: &buf}, level))

	logger = NewComponentLogger(logger, "dispatcher")
	logger.Info("notification sent", Int(FieldDeadlineID, 42), String(FieldChannel, "100200"))

	line := buf.String()
	if !strings.Contains(line, "[dispatcher]") {
		t.Fatalf("expected component prefix in %q", line)
	}
	if !strings.Contains(line, "notification sent") {
		t.Fatalf("expected message in %q", line)
	}
	if !strings.Contains(line, "deadline_id=42") || !strings.Contains(line, "channel_id=100200") {
		t.Fatalf("expected attrs in %q", line)
	}
}

func TestConsoleHandlerQuotesSpacedValues(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&syncWriter{writer: &buf}, level))

	logger.Warn("owner skipped", String("reason", "no channel configured"))

	if !strings.Contains(buf.String(), `reason="no channel configured"`) {
		t.Fatalf("expected quoted value in %q", buf.String())
	}
}

func TestJSONHandlerRenamesCoreKeys(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&syncWriter{writer: &buf}, level))

	logger.Info("run complete", Int("sent", 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg"} {
		if _, ok := record[key]; !ok {
			t.Fatalf("expected key %q in %v", key, record)
		}
	}
	if record["msg"] != "run complete" {
		t.Fatalf("unexpected msg %v", record["msg"])
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got != slog.LevelInfo {
		t.Fatalf("parseLevel fallback = %v", got)
	}
	if got := parseLevel("DEBUG"); got != slog.LevelDebug {
		t.Fatalf("parseLevel debug = %v", got)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
