// Package audit emits one structured event per guardrail, policy, tool and
// pipeline decision. Events are safe to persist indefinitely: previews are
// length-capped and must be masked before they reach this package — raw PII
// never enters a detail field.
package audit

import "time"

// Category is the closed event category vocabulary.
type Category string

const (
	CategoryGuardrail Category = "guardrail"
	CategoryRateLimit Category = "rate_limit"
	CategoryPolicy    Category = "policy"
	CategoryPipeline  Category = "pipeline"
	CategoryTool      Category = "tool"
	CategorySystem    Category = "system"
)

// Action is the closed action vocabulary.
type Action string

const (
	ActionBlocked     Action = "blocked"
	ActionPIIDetected Action = "pii_detected"
	ActionRateLimited Action = "rate_limited"
	ActionDecision    Action = "decision"
	ActionToolInvoked Action = "tool_invoked"
	ActionCompleted   Action = "completed"
	ActionDegraded    Action = "degraded"
	ActionError       Action = "error"
)

// Severity grades an event for alerting.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// PreviewLength caps message_preview.
const PreviewLength = 200

// Event is one audit record.
type Event struct {
	RequestID      string
	SessionID      string
	IdentityID     string
	Timestamp      time.Time
	Category       Category
	Action         Action
	Severity       Severity
	Detail         string
	MessagePreview string // already masked by the caller
	Language       string
	Intents        []string
	ToolName       string
	LatencyMs      float32
	Metadata       map[string]string
}

// Writer persists events. Write must never block the caller.
type Writer interface {
	Write(event *Event)
	Close()
}

// Preview caps an already-masked message for storage. It never splits a
// multi-byte UTF-8 character.
func Preview(masked string) string {
	runes := []rune(masked)
	if len(runes) <= PreviewLength {
		return masked
	}
	return string(runes[:PreviewLength])
}
