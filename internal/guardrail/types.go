package guardrail

// PIIKind identifies the type of personal data a detector matched.
type PIIKind int

const (
	PIIUnspecified PIIKind = iota
	PIIAadhaar             // 12-digit UIDAI number
	PIIMobile              // Indian mobile number
	PIIPAN                 // permanent account number
	PIIBankAccount         // long unformatted digit run
	PIIEmail               // email address
	PIIIFSC                // bank branch code
)

// String returns the lowercase kind name (used in audit events).
func (k PIIKind) String() string {
	switch k {
	case PIIAadhaar:
		return "aadhaar"
	case PIIMobile:
		return "mobile"
	case PIIPAN:
		return "pan"
	case PIIBankAccount:
		return "bank_account"
	case PIIEmail:
		return "email"
	case PIIIFSC:
		return "ifsc"
	default:
		return "unspecified"
	}
}

// ThreatType classifies what an injection or toxicity pattern matched.
type ThreatType string

const (
	ThreatInstructionOverride ThreatType = "instruction_override"
	ThreatRoleHijack          ThreatType = "role_hijack"
	ThreatPromptExtraction    ThreatType = "prompt_extraction"
	ThreatDataExfiltration    ThreatType = "data_exfiltration"
	ThreatCodeExecution       ThreatType = "code_execution"
	ThreatEncodedPayload      ThreatType = "encoded_payload"

	ThreatHarmToPeople      ThreatType = "harm_to_people"
	ThreatCropSabotage      ThreatType = "crop_sabotage"
	ThreatBannedPesticide   ThreatType = "banned_pesticide"
	ThreatEnvironmentalHarm ThreatType = "environmental_harm"
	ThreatSelfHarm          ThreatType = "self_harm"
	ThreatHateSpeech        ThreatType = "hate_speech"
)

// Severity grades a matched threat pattern.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unspecified"
	}
}

// BlockReason distinguishes why a request was rejected before the pipeline.
type BlockReason string

const (
	BlockNone            BlockReason = ""
	BlockEmptyInput      BlockReason = "empty_input"
	BlockInputTooLong    BlockReason = "input_too_long"
	BlockPromptInjection BlockReason = "prompt_injection"
	BlockToxicity        BlockReason = "toxicity"
)

// Verdict is the outcome of the full input check chain. Produced once per
// request and never mutated afterwards.
type Verdict struct {
	Passed          bool
	SanitizedText   string // control-stripped, PII-masked text the pipeline consumes
	BlockedReason   BlockReason
	BlockedResponse string // safe user-facing text when blocked
	PIIKinds        []PIIKind
	PIIMaskedText   string // always set; equals the input (stripped) when no PII found
	ThreatType      ThreatType
	ThreatDetails   string
	ThreatSeverity  Severity
}

// HasPII reports whether any PII detector matched.
func (v *Verdict) HasPII() bool {
	return len(v.PIIKinds) > 0
}
