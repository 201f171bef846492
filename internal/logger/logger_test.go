package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != InfoLevel {
		t.Errorf("Level = %v, want InfoLevel", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("Pretty = false, want true")
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: DebugLevel, Pretty: false, Output: &buf, Component: "frontier"})

	l.Info("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v, want hello", entry["message"])
	}
	if entry["component"] != "frontier" {
		t.Errorf("component = %v, want frontier", entry["component"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: WarnLevel, Pretty: false, Output: &buf})

	l.Debug("hidden")
	l.Info("also hidden")
	l.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains filtered messages: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("output missing warn message: %q", out)
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: DebugLevel, Pretty: false, Output: &buf})

	l.WithWorker(3).WithURL("https://example.com").WithError(errors.New("boom")).Error("failed")

	out := buf.String()
	for _, want := range []string{`"worker_id":3`, `"url":"https://example.com"`, "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLogger_FetchEvent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: InfoLevel, Pretty: false, Output: &buf})

	l.FetchEvent("https://example.com/a", 200, 12, 42*time.Millisecond)

	out := buf.String()
	for _, want := range []string{`"status_code":200`, `"links":12`, `"url":"https://example.com/a"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"info", InfoLevel, false},
		{"warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"nonsense", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	// Must not panic or write anywhere.
	l.Info("discarded")
	l.WithWorker(1).Error("discarded")
}
