package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestDisplay_UpdateAndStop(t *testing.T) {
	var buf bytes.Buffer
	d := NewWithWriter(&buf)

	d.Start("https://example.com")
	d.Update(10, 4, 1, 0, 6)
	d.Stop()

	out := buf.String()
	if !strings.Contains(out, "Pages: 4") {
		t.Errorf("output missing page count: %q", out)
	}
	if !strings.Contains(out, "Frontier: 6") {
		t.Errorf("output missing frontier depth: %q", out)
	}
}

func TestDisplay_UpdateBeforeStartIsSilent(t *testing.T) {
	var buf bytes.Buffer
	d := NewWithWriter(&buf)

	d.Update(10, 4, 1, 0, 6)

	if buf.Len() != 0 {
		t.Errorf("output before Start = %q, want none", buf.String())
	}
}

func TestDisplay_Stats(t *testing.T) {
	d := NewWithWriter(&bytes.Buffer{})
	d.Start("https://example.com")
	d.Update(20, 15, 3, 2, 0)

	discovered, crawled, rejected, errs := d.Stats()
	if discovered != 20 || crawled != 15 || rejected != 3 || errs != 2 {
		t.Errorf("Stats() = %d, %d, %d, %d", discovered, crawled, rejected, errs)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{3725 * time.Second, "1h02m05s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
