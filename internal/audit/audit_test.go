package audit

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantLen int
	}{
		{"short text unchanged", "rain in akola?", 14},
		{"exactly at cap", strings.Repeat("a", PreviewLength), PreviewLength},
		{"over cap truncated", strings.Repeat("a", PreviewLength+100), PreviewLength},
		{"multibyte not split", strings.Repeat("क", PreviewLength+5), PreviewLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Preview(tt.in)
			if n := len([]rune(got)); n != tt.wantLen {
				t.Errorf("len = %d, want %d", n, tt.wantLen)
			}
		})
	}
}

type captureWriter struct {
	events []*Event
	closed bool
}

func (c *captureWriter) Write(e *Event) { c.events = append(c.events, e) }
func (c *captureWriter) Close()         { c.closed = true }

func TestMultiWriter_FansOut(t *testing.T) {
	a := &captureWriter{}
	b := &captureWriter{}
	m := NewMultiWriter(a, b)

	e := &Event{
		RequestID: "req-1",
		Timestamp: time.Now(),
		Category:  CategoryGuardrail,
		Action:    ActionBlocked,
		Severity:  SeverityWarning,
		Detail:    "prompt_injection",
	}
	m.Write(e)
	m.Close()

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("fan-out = %d/%d events", len(a.events), len(b.events))
	}
	if a.events[0] != e {
		t.Error("event not passed through")
	}
	if !a.closed || !b.closed {
		t.Error("close not propagated")
	}
}

func TestMultiWriter_EmptyIsNoOp(t *testing.T) {
	m := NewMultiWriter()
	m.Write(&Event{RequestID: "req-1"})
	m.Close()
}

func TestLogWriter_WriteDoesNotPanic(t *testing.T) {
	w := NewLogWriter(zap.NewNop())
	w.Write(&Event{
		RequestID: "req-1",
		SessionID: "sess-000000001",
		Category:  CategoryPipeline,
		Action:    ActionCompleted,
		Severity:  SeverityInfo,
		Intents:   []string{"weather"},
		LatencyMs: 1234.5,
	})
	w.Close()
}
