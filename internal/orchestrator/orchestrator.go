// Package orchestrator wires the full advisory flow: input guardrail, rate
// limiter, language detection, intent classification, fast-path routing, the
// cognitive pipeline, policy enforcement, back-translation, attribution,
// output scrubbing and audit emission. Handle always returns a usable
// response; only guardrail and rate-limit blocks skip the pipeline.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krishisetu/sahayak/internal/audit"
	"github.com/krishisetu/sahayak/internal/guardrail"
	"github.com/krishisetu/sahayak/internal/intent"
	"github.com/krishisetu/sahayak/internal/language"
	"github.com/krishisetu/sahayak/internal/outputguard"
	"github.com/krishisetu/sahayak/internal/pipeline"
	"github.com/krishisetu/sahayak/internal/policy"
	"github.com/krishisetu/sahayak/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	// hardBudget is the wall-clock ceiling imposed by the invoking gateway.
	hardBudget = 29 * time.Second

	// softBudget gates downstream audio synthesis: past it, synthesis is
	// skipped rather than risking the hard ceiling.
	softBudget = 18 * time.Second

	// minSessionIDLen is required for downstream session correlation. Short
	// ids are padded deterministically with a hash suffix, preserving any
	// fast-path prefix.
	minSessionIDLen = 12
)

// GenericFailure is the reply for unhandled errors.
const GenericFailure = "Something went wrong while preparing your answer. Please try asking again."

// Orchestrator holds the per-process collaborators. All request state is
// local to Handle.
type Orchestrator struct {
	guard    *guardrail.Checker
	limiter  *ratelimit.Limiter
	lang     language.Service
	router   *intent.Router
	pipe     *pipeline.Pipeline
	enforcer *policy.Enforcer
	scrubber *outputguard.Scrubber
	sink     audit.Writer
	logger   *zap.Logger
	now      func() time.Time // injectable for tests
}

func New(
	guard *guardrail.Checker,
	limiter *ratelimit.Limiter,
	lang language.Service,
	router *intent.Router,
	pipe *pipeline.Pipeline,
	enforcer *policy.Enforcer,
	scrubber *outputguard.Scrubber,
	sink audit.Writer,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		guard:    guard,
		limiter:  limiter,
		lang:     lang,
		router:   router,
		pipe:     pipe,
		enforcer: enforcer,
		scrubber: scrubber,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle runs one request end to end. It never panics outward: an unhandled
// failure becomes a generic reply and a critical audit event.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (resp *Response) {
	start := o.now()
	requestID := uuid.NewString()
	sessionID := normalizeSessionID(req.SessionID)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("unhandled failure", zap.Any("panic", r), zap.String("request_id", requestID))
			o.emit(&audit.Event{
				RequestID:  requestID,
				SessionID:  sessionID,
				IdentityID: req.IdentityID,
				Category:   audit.CategorySystem,
				Action:     audit.ActionError,
				Severity:   audit.SeverityCritical,
				Detail:     fmt.Sprintf("panic: %v", r),
			})
			resp = &Response{ReplyText: GenericFailure, ToolsUsed: []string{}}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, hardBudget)
	defer cancel()

	// Input guardrail. PII is informational, injection/toxicity block.
	verdict := o.guard.Check(req.Text)
	if verdict.HasPII() {
		o.emit(&audit.Event{
			RequestID:      requestID,
			SessionID:      sessionID,
			IdentityID:     req.IdentityID,
			Category:       audit.CategoryGuardrail,
			Action:         audit.ActionPIIDetected,
			Severity:       audit.SeverityInfo,
			Detail:         piiKindList(verdict.PIIKinds),
			MessagePreview: audit.Preview(verdict.PIIMaskedText),
		})
	}
	if !verdict.Passed {
		o.emit(&audit.Event{
			RequestID:      requestID,
			SessionID:      sessionID,
			IdentityID:     req.IdentityID,
			Category:       audit.CategoryGuardrail,
			Action:         audit.ActionBlocked,
			Severity:       blockSeverity(verdict),
			Detail:         blockDetail(verdict),
			MessagePreview: audit.Preview(verdict.PIIMaskedText),
		})
		return &Response{
			ReplyText: verdict.BlockedResponse,
			ToolsUsed: []string{},
			Guardrail: GuardrailView{
				Blocked:   true,
				BlockType: strPtr(string(verdict.BlockedReason)),
			},
		}
	}

	// Rate limiting. Fail-open on a degraded store.
	rate := o.limiter.Check(ctx, req.IdentityID)
	if rate.Degraded {
		o.emit(&audit.Event{
			RequestID:  requestID,
			SessionID:  sessionID,
			IdentityID: req.IdentityID,
			Category:   audit.CategoryRateLimit,
			Action:     audit.ActionDegraded,
			Severity:   audit.SeverityWarning,
			Detail:     "counter store unreachable, allowed fail-open",
		})
	}
	if !rate.Allowed {
		o.emit(&audit.Event{
			RequestID:  requestID,
			SessionID:  sessionID,
			IdentityID: req.IdentityID,
			Category:   audit.CategoryRateLimit,
			Action:     audit.ActionRateLimited,
			Severity:   audit.SeverityInfo,
			Detail:     string(rate.Window),
		})
		g := GuardrailView{RateLimited: true}
		if rate.RetryAfterSeconds > 0 {
			g.RetryAfterSeconds = intPtr(rate.RetryAfterSeconds)
		}
		return &Response{ReplyText: rate.Reason, ToolsUsed: []string{}, Guardrail: g}
	}

	// Language detection and translation into the working language. Failure
	// degrades to treating the text as already in the working language.
	text := verdict.SanitizedText
	translated := text
	replyLang := language.WorkingLanguage
	if det, err := o.lang.DetectAndTranslate(ctx, text); err != nil {
		o.logger.Warn("language detection failed, assuming working language",
			zap.String("request_id", requestID), zap.Error(err))
	} else {
		translated = det.TranslatedText
		replyLang = det.DetectedLanguage
	}
	if req.DeclaredLanguage != "" {
		replyLang = req.DeclaredLanguage
	}

	intents := intent.Classify(translated, text)
	fastPath := o.router.IsFastPath(sessionID)

	// Pipeline: full four-stage flow, or one tool-aware call on the fast path.
	var draft string
	var trace *pipeline.Trace
	var runErr error
	if fastPath {
		prompt := o.router.BuildToolFirstPrompt(translated, intents, nil)
		draft, trace, runErr = o.pipe.RunFastPath(ctx, prompt, toolsForIntents(intents))
	} else {
		draft, trace, runErr = o.pipe.Run(ctx, translated, intents, nil)
	}
	if runErr != nil {
		// Transport failure: surface the warm-up message so the caller knows
		// to retry shortly, rather than masking it as a generic error.
		o.emit(&audit.Event{
			RequestID:  requestID,
			SessionID:  sessionID,
			IdentityID: req.IdentityID,
			Category:   audit.CategoryPipeline,
			Action:     audit.ActionError,
			Severity:   audit.SeverityError,
			Detail:     runErr.Error(),
		})
		if errors.Is(runErr, context.DeadlineExceeded) || errors.Is(runErr, context.Canceled) {
			draft = pipeline.WarmupFallback
		} else {
			draft = pipeline.ProcessingFallback
		}
	}
	for _, use := range trace.ToolLog {
		sev := audit.SeverityInfo
		action := audit.ActionToolInvoked
		if use.Failed {
			sev = audit.SeverityWarning
			action = audit.ActionError
		}
		o.emit(&audit.Event{
			RequestID:  requestID,
			SessionID:  sessionID,
			IdentityID: req.IdentityID,
			Category:   audit.CategoryTool,
			Action:     action,
			Severity:   sev,
			ToolName:   use.Tool,
		})
	}

	// Policy enforcement in the working language.
	final, toolsUsed, decision := o.enforcer.Enforce(text, translated, intents, draft, trace.ToolsUsed())
	o.emit(&audit.Event{
		RequestID:  requestID,
		SessionID:  sessionID,
		IdentityID: req.IdentityID,
		Category:   audit.CategoryPolicy,
		Action:     audit.ActionDecision,
		Severity:   audit.SeverityInfo,
		Detail: fmt.Sprintf("off_topic=%t grounding_required=%t grounding_satisfied=%t enforced=%t",
			decision.OffTopicBlocked, decision.GroundingRequired, decision.GroundingSatisfied, decision.Enforced),
		Intents: intentNames(intents),
	})

	// Back-translation, then the English-only sources line so labels are
	// never mistranslated.
	if replyLang != language.WorkingLanguage {
		if out, err := o.lang.Translate(ctx, final, language.WorkingLanguage, replyLang); err != nil {
			o.logger.Warn("back-translation failed, replying in working language",
				zap.String("request_id", requestID), zap.Error(err))
		} else if strings.TrimSpace(out) != "" {
			final = out
		}
	}

	var sources *string
	if line := o.enforcer.SourcesLine(toolsUsed); line != "" {
		final = final + "\n\n" + line
		sources = strPtr(line)
	}

	// Output guardrail: leakage, output PII, truncation.
	scrub := o.scrubber.Scrub(final)
	if scrub.PromptLeaked {
		o.emit(&audit.Event{
			RequestID:  requestID,
			SessionID:  sessionID,
			IdentityID: req.IdentityID,
			Category:   audit.CategoryGuardrail,
			Action:     audit.ActionBlocked,
			Severity:   audit.SeverityCritical,
			Detail:     "prompt_leakage",
		})
		toolsUsed = nil
		sources = nil
	}
	final = scrub.Text

	elapsed := o.now().Sub(start)
	o.emit(&audit.Event{
		RequestID:      requestID,
		SessionID:      sessionID,
		IdentityID:     req.IdentityID,
		Category:       audit.CategoryPipeline,
		Action:         audit.ActionCompleted,
		Severity:       audit.SeverityInfo,
		MessagePreview: audit.Preview(verdict.PIIMaskedText),
		Language:       replyLang,
		Intents:        intentNames(intents),
		LatencyMs:      float32(elapsed.Milliseconds()),
	})

	if toolsUsed == nil {
		toolsUsed = []string{}
	}
	return &Response{
		ReplyText: final,
		ToolsUsed: toolsUsed,
		Sources:   sources,
		PipelineTrace: &TraceView{
			AgentsInvoked: trace.StagesInvoked,
			Understanding: trace.Understanding,
			FactCheck:     trace.FactCheck,
		},
		Policy: PolicyView{
			CodePolicyEnforced: decision.Enforced,
			OffTopicBlocked:    decision.OffTopicBlocked,
			GroundingRequired:  decision.GroundingRequired,
			GroundingSatisfied: decision.GroundingSatisfied,
		},
		SkipSynthesis: fastPath || elapsed > softBudget,
	}
}

func (o *Orchestrator) emit(e *audit.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = o.now()
	}
	o.sink.Write(e)
}

// normalizeSessionID pads short ids with the first 12 hex chars of their
// SHA-256. Appending keeps fast-path prefixes intact.
func normalizeSessionID(id string) string {
	if len(id) >= minSessionIDLen {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return id + hex.EncodeToString(sum[:])[:minSessionIDLen]
}

func toolsForIntents(intents []intent.Intent) []string {
	var names []string
	seen := make(map[string]bool)
	for _, in := range intents {
		t := intent.ToolFor(in)
		if t != "" && !seen[t] {
			names = append(names, t)
			seen[t] = true
		}
	}
	return names
}

func intentNames(intents []intent.Intent) []string {
	out := make([]string, len(intents))
	for i, in := range intents {
		out[i] = string(in)
	}
	return out
}

func piiKindList(kinds []guardrail.PIIKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = k.String()
	}
	return strings.Join(parts, ",")
}

func blockSeverity(v *guardrail.Verdict) audit.Severity {
	switch v.BlockedReason {
	case guardrail.BlockPromptInjection, guardrail.BlockToxicity:
		return audit.SeverityWarning
	default:
		return audit.SeverityInfo
	}
}

func blockDetail(v *guardrail.Verdict) string {
	if v.ThreatType != "" {
		return fmt.Sprintf("%s: %s", v.BlockedReason, v.ThreatType)
	}
	return string(v.BlockedReason)
}
