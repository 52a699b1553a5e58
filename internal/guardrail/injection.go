package guardrail

import "regexp"

// InjectionRefusal is the fixed safe response for any prompt-injection block.
const InjectionRefusal = "I can only help with farming questions. Please ask me about your crops, weather, pests, irrigation, or government schemes."

// Pre-compiled injection patterns — first match wins, evaluation order is
// fixed and significant.
var injectionPatterns = []struct {
	re       *regexp.Regexp
	threat   ThreatType
	severity Severity
	detail   string
}{
	{regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|rules|prompts)`), ThreatInstructionOverride, SeverityCritical, "override: ignore previous instructions"},
	{regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions|rules|guidelines)`), ThreatInstructionOverride, SeverityCritical, "override: disregard instructions"},
	{regexp.MustCompile(`(?i)forget\s+(everything|all)\s+(you|above|before)`), ThreatInstructionOverride, SeverityHigh, "override: forget context"},
	{regexp.MustCompile(`(?i)new\s+instructions?\s*:`), ThreatInstructionOverride, SeverityHigh, "override: inline new instructions"},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|the)\s+`), ThreatRoleHijack, SeverityHigh, "role hijack: you are now"},
	{regexp.MustCompile(`(?i)from\s+now\s+on\s+you\s+(are|will|must|should)`), ThreatRoleHijack, SeverityHigh, "role hijack: from now on"},
	{regexp.MustCompile(`(?i)pretend\s+(to\s+be|you\s+are)\s+`), ThreatRoleHijack, SeverityMedium, "role hijack: pretend"},
	{regexp.MustCompile(`(?i)act\s+as\s+(if\s+you\s+(are|were)|a|an)\s+`), ThreatRoleHijack, SeverityMedium, "role hijack: act as"},
	{regexp.MustCompile(`(?i)(reveal|show|print|output)\s+(your|the)\s+(system|initial|original|hidden)\s+(prompt|instructions|message)`), ThreatPromptExtraction, SeverityCritical, "extraction: reveal system prompt"},
	{regexp.MustCompile(`(?i)what\s+(are|is|were)\s+your\s+(system|initial|original|hidden)\s+(prompt|instructions|rules)`), ThreatPromptExtraction, SeverityHigh, "extraction: ask for system prompt"},
	{regexp.MustCompile(`(?i)repeat\s+(everything|all\s+text)\s+(above|before)`), ThreatPromptExtraction, SeverityHigh, "extraction: repeat context"},
	{regexp.MustCompile(`(?i)(send|post|upload|forward)\s+(all|the|this)?\s*(conversation|data|history|messages)\s+to\s+`), ThreatDataExfiltration, SeverityCritical, "exfiltration: send data out"},
	{regexp.MustCompile(`(?i)(list|dump|export)\s+(all\s+)?(user|farmer|customer)\s+(data|records|profiles|numbers)`), ThreatDataExfiltration, SeverityCritical, "exfiltration: dump user data"},
	{regexp.MustCompile(`(?i)(execute|run|eval)\s+(this\s+)?(code|script|command|shell|python|bash)`), ThreatCodeExecution, SeverityCritical, "code execution request"},
	{regexp.MustCompile("(?i)(os\\.system|subprocess|import\\s+os|`rm\\s+-rf)"), ThreatCodeExecution, SeverityCritical, "code execution: shell fragment"},
	{regexp.MustCompile(`\b[A-Za-z0-9+/]{60,}={0,2}\b`), ThreatEncodedPayload, SeverityMedium, "base64-like payload"},
}

// detectInjection returns the first matching injection pattern, if any.
// Detection runs on the control-stripped original text so patterns are not
// weakened by PII masking or truncation.
func detectInjection(text string) (ThreatType, Severity, string, bool) {
	for _, p := range injectionPatterns {
		if p.re.MatchString(text) {
			return p.threat, p.severity, p.detail, true
		}
	}
	return "", 0, "", false
}
