// Package pipeline runs the four-stage advisory flow: Understanding analyzes
// the query, Reasoning answers it with a bounded tool loop, Fact-Checking
// validates the draft against tool evidence, Communication rewrites it for a
// non-technical reader. The happy path is strictly linear; every stage
// degrades individually and only transport-level failures propagate.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/krishisetu/sahayak/internal/intent"
	"github.com/krishisetu/sahayak/internal/llm"
	"github.com/krishisetu/sahayak/internal/tools"
	"go.uber.org/zap"
)

const (
	// maxToolTurns bounds the reasoning loop: each turn is one model round
	// trip that may request a tool.
	maxToolTurns = 5

	// minDraftLen is the early-exit floor — a reasoning draft shorter than
	// this skips fact-checking and communication entirely.
	minDraftLen = 40

	// minCorrectedLen is the floor for accepting a fact-check rewrite over
	// the original draft.
	minCorrectedLen = 50
)

// Pipeline owns the stage calls and the tool loop.
type Pipeline struct {
	model    llm.Model
	registry *tools.Registry
	logger   *zap.Logger
}

func New(model llm.Model, registry *tools.Registry, logger *zap.Logger) *Pipeline {
	return &Pipeline{model: model, registry: registry, logger: logger}
}

// Run executes all four stages and returns the final text plus the trace.
// The trace is always non-nil and valid, even when an error is returned.
func (p *Pipeline) Run(ctx context.Context, text string, intents []intent.Intent, known map[string]string) (string, *Trace, error) {
	trace := &Trace{}

	// Stage 1: Understanding (no tools). Absence is not fatal.
	trace.addStage(StageUnderstanding)
	outcome := p.runUnderstanding(ctx, text)
	if outcome.Parsed() {
		trace.Understanding = outcome.Data
	}

	// Stage 2: Reasoning with the bounded tool loop.
	trace.addStage(StageReasoning)
	draft, err := p.runReasoning(ctx, text, outcome, intents, known, trace)
	if err != nil {
		return "", trace, err
	}

	// Early exit: nothing substantive to validate or rewrite — burning two
	// more model calls on a guaranteed-empty result helps nobody.
	if len([]rune(strings.TrimSpace(draft))) < minDraftLen {
		return draft, trace, nil
	}

	// Stage 3: Fact-checking against the tool evidence log.
	trace.addStage(StageFactCheck)
	draft = p.runFactCheck(ctx, draft, trace)

	// Stage 4: Communication rewrite, always in the working language.
	trace.addStage(StageCommunication)
	draft = p.runCommunication(ctx, draft)

	return draft, trace, nil
}

// RunFastPath is the single tool-aware call for pre-structured UI flows. The
// prompt already names the tool order (built by the intent router).
func (p *Pipeline) RunFastPath(ctx context.Context, prompt string, toolNames []string) (string, *Trace, error) {
	trace := &Trace{}
	trace.addStage(StageFastPath)

	draft, err := p.runToolLoop(ctx, reasoningSystem, prompt, toolNames, trace)
	if err != nil {
		return "", trace, err
	}
	return draft, trace, nil
}

func (p *Pipeline) runUnderstanding(ctx context.Context, text string) UnderstandingOutcome {
	raw, err := p.model.Generate(ctx, understandingSystem, text)
	if err != nil {
		p.logger.Warn("understanding stage failed, proceeding without analysis", zap.Error(err))
		return UnderstandingOutcome{}
	}
	out := parseUnderstanding(raw)
	if !out.Parsed() {
		p.logger.Warn("understanding output unparsed, proceeding without analysis")
	}
	return out
}

func (p *Pipeline) runReasoning(ctx context.Context, text string, u UnderstandingOutcome, intents []intent.Intent, known map[string]string, trace *Trace) (string, error) {
	toolNames := reasoningTools(u, intents)

	var b strings.Builder
	b.WriteString("Farmer's question: ")
	b.WriteString(text)
	b.WriteString("\n")
	if u.Parsed() {
		fmt.Fprintf(&b, "Query analysis: %s (urgency: %s)\n", u.Data.Summary, u.Data.Urgency)
		writeEntity(&b, "location", u.Data.Entities.Location)
		writeEntity(&b, "crop", u.Data.Entities.Crop)
		writeEntity(&b, "season", u.Data.Entities.Season)
		writeEntity(&b, "state", u.Data.Entities.State)
		writeEntity(&b, "symptom", u.Data.Entities.Symptom)
	}
	for _, k := range []string{"location", "crop", "season", "state"} {
		if v, ok := known[k]; ok && v != "" {
			writeEntity(&b, k, v)
		}
	}

	return p.runToolLoop(ctx, reasoningSystem, b.String(), toolNames, trace)
}

// runToolLoop drives the bounded request/response loop. It terminates on the
// first prose turn or at the turn cap, whichever comes first.
func (p *Pipeline) runToolLoop(ctx context.Context, system, prompt string, toolNames []string, trace *Trace) (string, error) {
	session, err := p.model.StartToolSession(ctx, system, p.registry.Specs(toolNames))
	if err != nil {
		if isTransport(err) {
			return "", err
		}
		p.logger.Warn("tool session start failed, degrading", zap.Error(err))
		return WarmupFallback, nil
	}

	turn, err := session.Send(ctx, prompt)
	if err != nil {
		if isTransport(err) {
			return "", err
		}
		p.logger.Warn("reasoning send failed, degrading", zap.Error(err))
		return WarmupFallback, nil
	}

	for i := 0; i < maxToolTurns; i++ {
		if !turn.IsToolCall() {
			return turn.Text, nil
		}

		call := turn.ToolCall
		output, callErr := p.registry.Call(ctx, call.Name, call.Args)
		if callErr != nil {
			// Error-shaped result: fact-checking treats it as missing
			// evidence, the model gets a chance to answer without it.
			output = map[string]any{"error": callErr.Error()}
			trace.addTool(call.Name, call.Args, output, true)
			p.logger.Warn("tool call failed",
				zap.String("tool", call.Name),
				zap.Error(callErr),
			)
		} else {
			trace.addTool(call.Name, call.Args, output, false)
		}

		turn, err = session.Reply(ctx, llm.ToolResult{Name: call.Name, Output: output})
		if err != nil {
			if isTransport(err) {
				return "", err
			}
			p.logger.Warn("reasoning reply failed, degrading", zap.Error(err))
			return WarmupFallback, nil
		}
	}

	if !turn.IsToolCall() {
		return turn.Text, nil
	}
	p.logger.Warn("reasoning turn cap hit, returning processing fallback",
		zap.Int("cap", maxToolTurns),
	)
	return ProcessingFallback, nil
}

func (p *Pipeline) runFactCheck(ctx context.Context, draft string, trace *Trace) string {
	evidence, _ := json.Marshal(trace.ToolLog)
	prompt := fmt.Sprintf("Draft advisory:\n%s\n\nTool evidence log (JSON):\n%s", draft, string(evidence))

	raw, err := p.model.Generate(ctx, factCheckSystem, prompt)
	if err != nil {
		p.logger.Warn("fact-check stage failed, keeping draft", zap.Error(err))
		return draft
	}

	out := parseFactCheck(raw)
	if out.Parsed() {
		trace.FactCheck = out.Data
		corrected := strings.TrimSpace(out.Data.CorrectedText)
		if len([]rune(corrected)) >= minCorrectedLen {
			return corrected
		}
	} else {
		p.logger.Warn("fact-check output unparsed, keeping draft")
	}
	return draft
}

func (p *Pipeline) runCommunication(ctx context.Context, draft string) string {
	out, err := p.model.Generate(ctx, communicationSystem, draft)
	if err != nil {
		p.logger.Warn("communication stage failed, keeping fact-checked text", zap.Error(err))
		return draft
	}
	if strings.TrimSpace(out) == "" {
		return draft
	}
	return out
}

// isTransport reports whether the error is an unrecoverable transport
// condition that must propagate rather than degrade.
func isTransport(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// reasoningTools prefers the understanding stage's tool selection and falls
// back to the intent-derived list, deduplicated in priority order.
func reasoningTools(u UnderstandingOutcome, intents []intent.Intent) []string {
	if u.Parsed() && len(u.Data.Tools) > 0 {
		return u.Data.Tools
	}
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

func writeEntity(b *strings.Builder, key, val string) {
	if val != "" {
		fmt.Fprintf(b, "- %s: %s\n", key, val)
	}
}
