package guardrail

import (
	"regexp"
	"sort"
)

// Pre-compiled PII patterns — evaluated in fixed order, one per kind.
// Aadhaar excludes numbers starting 0/1 (UIDAI never issues them), which
// keeps ordinary 12-digit quantities like invoice numbers out of scope.
var piiDetectors = []struct {
	re   *regexp.Regexp
	kind PIIKind
	mask string
}{
	{regexp.MustCompile(`\b[2-9]\d{3}[-\s]?\d{4}[-\s]?\d{4}\b`), PIIAadhaar, "[AADHAAR_REDACTED]"},
	{regexp.MustCompile(`(?:\+91[-\s]?|\b0)?[6-9]\d{9}\b`), PIIMobile, "[MOBILE_REDACTED]"},
	{regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`), PIIPAN, "[PAN_REDACTED]"},
	{regexp.MustCompile(`\b\d{11,18}\b`), PIIBankAccount, "[ACCOUNT_REDACTED]"},
	{regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`), PIIEmail, "[EMAIL_REDACTED]"},
	{regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`), PIIIFSC, "[IFSC_REDACTED]"},
}

// piiSpan is a single detector hit: [start, end) byte offsets in the text.
type piiSpan struct {
	start, end int
	kind       PIIKind
	mask       string
}

// scanPII runs every detector and returns all spans plus the set of kinds
// found. Spans may overlap across detectors (a 12-digit Aadhaar is also an
// 11+ digit run); overlap is resolved at masking time.
func scanPII(text string) ([]piiSpan, []PIIKind) {
	var spans []piiSpan
	seen := make(map[PIIKind]bool)

	for _, d := range piiDetectors {
		for _, loc := range d.re.FindAllStringIndex(text, -1) {
			spans = append(spans, piiSpan{start: loc[0], end: loc[1], kind: d.kind, mask: d.mask})
			seen[d.kind] = true
		}
	}

	kinds := make([]PIIKind, 0, len(seen))
	for _, d := range piiDetectors {
		if seen[d.kind] {
			kinds = append(kinds, d.kind)
		}
	}
	return spans, kinds
}

// maskSpans replaces every span with its redaction token. Replacement runs in
// reverse text order so earlier offsets stay valid while later ones are
// rewritten. When two spans overlap, the one from the earlier detector wins
// and the overlapping later span is skipped.
func maskSpans(text string, spans []piiSpan) string {
	if len(spans) == 0 {
		return text
	}

	// Sort by start ascending; detector order breaks ties so the higher
	// priority kind claims the region.
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	// Drop spans swallowed by a previously accepted one.
	kept := spans[:0]
	lastEnd := -1
	for _, s := range spans {
		if s.start < lastEnd {
			continue
		}
		kept = append(kept, s)
		lastEnd = s.end
	}

	out := text
	for i := len(kept) - 1; i >= 0; i-- {
		s := kept[i]
		out = out[:s.start] + s.mask + out[s.end:]
	}
	return out
}

// MaskPII redacts all detected PII in text. Idempotent: redaction tokens
// contain no digits or address-like shapes, so a second pass is a no-op.
func MaskPII(text string) (masked string, kinds []PIIKind) {
	spans, kinds := scanPII(text)
	return maskSpans(text, spans), kinds
}
