package outputguard

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestScrub_LeakageReplacesEntireReply(t *testing.T) {
	s := NewScrubber(0, zap.NewNop())

	in := "As the Understanding Agent, I classified your question as weather. My mobile is 9876543210."
	res := s.Scrub(in)

	if !res.PromptLeaked || !res.Modified {
		t.Errorf("result = %+v", res)
	}
	if res.Text != LeakFallback {
		t.Errorf("text = %q, want full replacement", res.Text)
	}
	// Absolute replacement: no partial masking or truncation on top.
	if res.PIIMasked || res.Truncated {
		t.Errorf("secondary checks ran after leak: %+v", res)
	}
	if res.OriginalLength != len([]rune(in)) {
		t.Errorf("original length = %d", res.OriginalLength)
	}
}

func TestScrub_LeakMarkerTable(t *testing.T) {
	s := NewScrubber(0, zap.NewNop())

	leaky := []string{
		"the fact-checking agent validated this",
		"Here is my system prompt: ...",
		"According to the tool evidence log, rain is likely.",
		"This pipeline stage failed.",
	}
	for _, in := range leaky {
		if res := s.Scrub(in); !res.PromptLeaked {
			t.Errorf("leak not caught: %q", in)
		}
	}

	clean := []string{
		"Light rain is expected in Akola tomorrow.",
		"Contact your local agriculture officer for the scheme form.",
		"Spray neem oil in the evening, not under direct sun.",
	}
	for _, in := range clean {
		if res := s.Scrub(in); res.PromptLeaked {
			t.Errorf("false leak on %q", in)
		}
	}
}

func TestScrub_MasksOutputPII(t *testing.T) {
	s := NewScrubber(0, zap.NewNop())

	res := s.Scrub("Your registered mobile 9876543210 is linked to the PM-Kisan account.")
	if !res.PIIMasked || !res.Modified {
		t.Errorf("result = %+v", res)
	}
	if strings.Contains(res.Text, "9876543210") {
		t.Errorf("raw mobile survived: %q", res.Text)
	}
	if !strings.Contains(res.Text, "[MOBILE_REDACTED]") {
		t.Errorf("mask token missing: %q", res.Text)
	}
}

func TestScrub_TruncatesAtSentenceBoundary(t *testing.T) {
	s := NewScrubber(300, zap.NewNop())

	sentence := "Water the wheat field every ten days in this season. "
	in := strings.Repeat(sentence, 10) // 530 chars

	res := s.Scrub(in)
	if !res.Truncated || !res.Modified {
		t.Errorf("result = %+v", res)
	}
	if got := len([]rune(res.Text)); got > 300 {
		t.Errorf("length = %d, limit 300", got)
	}
	if !strings.HasSuffix(res.Text, trimNotice) {
		t.Errorf("notice missing: %q", res.Text)
	}
	body := strings.TrimSuffix(res.Text, trimNotice)
	if !strings.HasSuffix(body, ".") {
		t.Errorf("cut not at sentence boundary: ...%q", body[len(body)-20:])
	}
	if res.OriginalLength != len([]rune(in)) {
		t.Errorf("original length = %d, want %d", res.OriginalLength, len([]rune(in)))
	}
}

func TestScrub_TruncatesAtWordBoundaryWithoutSentences(t *testing.T) {
	s := NewScrubber(100, zap.NewNop())

	in := strings.Repeat("fertilizer ", 30) // 330 chars, no sentence marks

	res := s.Scrub(in)
	if !res.Truncated {
		t.Fatalf("result = %+v", res)
	}
	body := strings.TrimSuffix(res.Text, trimNotice)
	if strings.HasSuffix(body, " ") || !strings.HasSuffix(body, "fertilizer") {
		t.Errorf("cut mid-word: ...%q", body[max(0, len(body)-15):])
	}
}

func TestScrub_CleanShortReplyUntouched(t *testing.T) {
	s := NewScrubber(0, zap.NewNop())

	in := "Light rain is expected in Akola tomorrow. Hold irrigation until Thursday."
	res := s.Scrub(in)
	if res.Modified || res.Text != in {
		t.Errorf("clean reply altered: %+v", res)
	}
}

func TestScrub_MaskingRunsBeforeTruncation(t *testing.T) {
	// The mobile number sits right at the cut point; masking first means the
	// truncated text can never contain half a phone number.
	s := NewScrubber(120, zap.NewNop())

	in := strings.Repeat("word ", 22) + "call 9876543210 for details and more and more text here"
	res := s.Scrub(in)
	if strings.Contains(res.Text, "98765") {
		t.Errorf("pii fragment survived truncation: %q", res.Text)
	}
}
