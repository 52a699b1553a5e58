package orchestrator

import "github.com/krishisetu/sahayak/internal/pipeline"

// Request is the gateway's inbound contract. Immutable once handling starts.
type Request struct {
	Text             string `json:"text"`
	SessionID        string `json:"session_id"`
	IdentityID       string `json:"identity_id"`
	DeclaredLanguage string `json:"declared_language,omitempty"`
}

// Response is returned to the calling app server, which wraps it with
// translation/TTS delivery.
type Response struct {
	ReplyText     string         `json:"reply_text"`
	ToolsUsed     []string       `json:"tools_used"`
	Sources       *string        `json:"sources"`
	PipelineTrace *TraceView     `json:"pipeline_trace"`
	Policy        PolicyView     `json:"policy"`
	Guardrail     GuardrailView  `json:"guardrail"`
	SkipSynthesis bool           `json:"skip_synthesis"`
}

// TraceView is the externally visible slice of the pipeline trace.
type TraceView struct {
	AgentsInvoked []string                `json:"agents_invoked"`
	Understanding *pipeline.Understanding `json:"understanding"`
	FactCheck     *pipeline.FactCheck     `json:"fact_check"`
}

// PolicyView mirrors the policy decision.
type PolicyView struct {
	CodePolicyEnforced bool `json:"code_policy_enforced"`
	OffTopicBlocked    bool `json:"off_topic_blocked"`
	GroundingRequired  bool `json:"grounding_required"`
	GroundingSatisfied bool `json:"grounding_satisfied"`
}

// GuardrailView reports pre-pipeline blocks.
type GuardrailView struct {
	Blocked           bool    `json:"blocked"`
	BlockType         *string `json:"block_type"`
	RateLimited       bool    `json:"rate_limited"`
	RetryAfterSeconds *int    `json:"retry_after_seconds"`
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
