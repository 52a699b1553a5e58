// Package outputguard is the last gate before a reply leaves the gateway. It
// runs three checks in a fixed order: internal-terminology leakage (absolute,
// replaces the whole reply), PII masking, then length truncation. Masking runs
// before truncation so a cut can never leave half a masked value dangling.
package outputguard

import (
	"strings"

	"github.com/krishisetu/sahayak/internal/guardrail"
	"go.uber.org/zap"
)

// DefaultMaxOutputLength caps the reply after back-translation.
const DefaultMaxOutputLength = 1500

// sentenceWindow is how far back from the cut point a sentence boundary is
// preferred over a word boundary.
const sentenceWindow = 200

// trimNotice is appended to any truncated reply.
const trimNotice = "\n\n[message trimmed]"

// LeakFallback replaces the entire reply when internal terminology leaks.
// Partial redaction is not attempted: exposing the system's architecture is
// worse than losing one answer.
const LeakFallback = "Sorry, I could not prepare that answer properly. Please ask your farming question again."

// leakMarkers are matched case-insensitively anywhere in the reply.
var leakMarkers = []string{
	"understanding agent",
	"reasoning agent",
	"fact-checking agent",
	"fact-check agent",
	"communication agent",
	"system prompt",
	"system instruction",
	"my instructions say",
	"tool evidence log",
	"pipeline stage",
	"agronomy advisor for indian smallholder",
}

// Result reports what the scrub did to the reply.
type Result struct {
	Text           string
	Modified       bool
	PIIMasked      bool
	PromptLeaked   bool
	Truncated      bool
	OriginalLength int
}

// Scrubber holds the configured output limit.
type Scrubber struct {
	maxLen int
	logger *zap.Logger
}

// NewScrubber builds a scrubber; maxLen <= 0 selects the default.
func NewScrubber(maxLen int, logger *zap.Logger) *Scrubber {
	if maxLen <= 0 {
		maxLen = DefaultMaxOutputLength
	}
	return &Scrubber{maxLen: maxLen, logger: logger}
}

// Scrub applies the three checks and returns the outgoing text.
func (s *Scrubber) Scrub(text string) Result {
	res := Result{Text: text, OriginalLength: len([]rune(text))}

	if marker := findLeak(text); marker != "" {
		s.logger.Warn("internal terminology leaked into reply, replacing",
			zap.String("marker", marker),
		)
		res.Text = LeakFallback
		res.PromptLeaked = true
		res.Modified = true
		return res
	}

	masked, kinds := guardrail.MaskPII(res.Text)
	if len(kinds) > 0 {
		s.logger.Warn("pii in model output masked", zap.Int("kinds", len(kinds)))
		res.Text = masked
		res.PIIMasked = true
		res.Modified = true
	}

	if truncated, ok := s.truncate(res.Text); ok {
		res.Text = truncated
		res.Truncated = true
		res.Modified = true
	}
	return res
}

func findLeak(text string) string {
	lower := strings.ToLower(text)
	for _, m := range leakMarkers {
		if strings.Contains(lower, m) {
			return m
		}
	}
	return ""
}

// truncate cuts text to the configured limit, preferring the last sentence
// boundary within sentenceWindow runes of the cut, then the last word
// boundary, and appends the trim notice. The notice fits inside the limit.
func (s *Scrubber) truncate(text string) (string, bool) {
	runes := []rune(text)
	if len(runes) <= s.maxLen {
		return text, false
	}

	budget := s.maxLen - len([]rune(trimNotice))
	cut := runes[:budget]

	if i := lastSentenceEnd(cut); i >= 0 && budget-i <= sentenceWindow {
		cut = cut[:i+1]
	} else if i := lastIndexRune(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(string(cut), " \n") + trimNotice, true
}

func lastSentenceEnd(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case '.', '!', '?', '।':
			return i
		}
	}
	return -1
}

func lastIndexRune(runes []rune, target rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == target {
			return i
		}
	}
	return -1
}
