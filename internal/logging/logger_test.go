// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: " DEBUG ", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q): expected %v got %v", tc.in, tc.want, got)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if logger := NewLogger("dev", "payments-api"); logger == nil {
		t.Fatal("expected dev logger")
	}
	if logger := NewLogger("prod", "payments-api"); logger == nil {
		t.Fatal("expected prod logger")
	}
}

func TestNewProdWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Env: "prod", Service: "payments-api", Output: &buf})

	logger.Info("payment created", "transaction_id", "t-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log entry, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "payment created" {
		t.Fatalf("expected msg payment created, got %v", entry["msg"])
	}
	if entry["service"] != "payments-api" {
		t.Fatalf("expected service payments-api, got %v", entry["service"])
	}
	if _, ok := entry["source"]; ok {
		t.Fatal("expected prod logger to omit source")
	}
}

func TestNewDevWritesTextWithSource(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Env: "dev", Output: &buf})

	logger.Info("hello")

	line := buf.String()
	if !strings.Contains(line, "msg=hello") {
		t.Fatalf("expected text log line, got %q", line)
	}
	if !strings.Contains(line, "source=") {
		t.Fatalf("expected dev logger to include source, got %q", line)
	}
	if strings.Contains(line, "service=") {
		t.Fatalf("expected no service attr when unset, got %q", line)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Env: "prod", Level: "warn", Output: &buf})

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn entry, got %q", buf.String())
	}
}
