// Package guardrail validates and sanitizes raw user input before any model
// or tool sees it. The check chain runs in a fixed order: structural
// validation, PII scan (informational), prompt-injection, toxicity. Any block
// short-circuits the rest of the chain. Injection and toxicity patterns run
// against the control-stripped original text, not the masked variant, so
// masking can never hide an attack phrase.
package guardrail

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxInputLength caps raw query size. Longer inputs are rejected with
// a length-specific reason before any other check runs.
const DefaultMaxInputLength = 2000

// Checker runs the input guardrail chain.
type Checker struct {
	maxLen int
	logger *zap.Logger
}

// NewChecker creates a Checker. maxLen <= 0 selects DefaultMaxInputLength.
func NewChecker(maxLen int, logger *zap.Logger) *Checker {
	if maxLen <= 0 {
		maxLen = DefaultMaxInputLength
	}
	return &Checker{maxLen: maxLen, logger: logger}
}

// Check runs the full chain and returns a Verdict. The Verdict is complete:
// callers never need to re-run any stage.
func (c *Checker) Check(raw string) *Verdict {
	// 1. Validation — length first, so oversized payloads never reach the
	// regex stages.
	if strings.TrimSpace(raw) == "" {
		return &Verdict{
			Passed:          false,
			BlockedReason:   BlockEmptyInput,
			BlockedResponse: "Please type your farming question.",
		}
	}
	if len([]rune(raw)) > c.maxLen {
		return &Verdict{
			Passed:          false,
			BlockedReason:   BlockInputTooLong,
			BlockedResponse: fmt.Sprintf("Your message is too long. Please keep it under %d characters.", c.maxLen),
		}
	}

	stripped := stripControl(raw)

	// 2. PII scan — informational only. The masked text is what downstream
	// processing and all logging consume; PII alone never blocks.
	masked, kinds := MaskPII(stripped)
	if len(kinds) > 0 {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}
		c.logger.Info("pii masked in input", zap.Strings("kinds", names))
	}

	// 3. Prompt injection — sees the original (stripped) text.
	if threat, sev, detail, hit := detectInjection(stripped); hit {
		return &Verdict{
			Passed:          false,
			BlockedReason:   BlockPromptInjection,
			BlockedResponse: InjectionRefusal,
			PIIKinds:        kinds,
			PIIMaskedText:   masked,
			ThreatType:      threat,
			ThreatDetails:   detail,
			ThreatSeverity:  sev,
		}
	}

	// 4. Toxicity / harm — per-threat safe responses.
	if threat, sev, detail, resp, hit := detectToxicity(stripped); hit {
		return &Verdict{
			Passed:          false,
			BlockedReason:   BlockToxicity,
			BlockedResponse: resp,
			PIIKinds:        kinds,
			PIIMaskedText:   masked,
			ThreatType:      threat,
			ThreatDetails:   detail,
			ThreatSeverity:  sev,
		}
	}

	return &Verdict{
		Passed:        true,
		SanitizedText: masked,
		PIIKinds:      kinds,
		PIIMaskedText: masked,
	}
}

// stripControl removes control characters except newline and tab.
func stripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		if r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
