// Package policy applies the post-pipeline advisory rules: topicality,
// grounding-by-tool-evidence, source attribution and the reply length cap.
// Decisions are pure functions of the request text, intents, draft and tool
// evidence, so every outcome is reproducible from its inputs.
package policy

import (
	"strings"
	"unicode"

	"github.com/krishisetu/sahayak/internal/intent"
	"go.uber.org/zap"
)

// replyMaxLen is the hard ceiling on the reply in the working language.
const replyMaxLen = 1500

// groundingExceptionLen divides short from substantively long drafts. An
// ungrounded draft at or above this length is accepted as evidence the model
// already had sufficient context; below it, the draft is replaced by a
// clarifying question. Accepted trade-off: a confident but wrong long answer
// passes.
const groundingExceptionLen = 200

// RedirectMessage replaces the reply for off-topic requests.
const RedirectMessage = "I can help with farming questions: weather, crops, pests, irrigation and government schemes. What would you like to know about your farm?"

// Decision records what the enforcer concluded and whether it changed the
// reply.
type Decision struct {
	OffTopicBlocked    bool
	GroundingRequired  bool
	GroundingSatisfied bool
	Enforced           bool
}

// chitchat is the closed set of harmless standalone messages that pass
// topicality without any domain signal.
var chitchat = map[string]bool{
	"hi": true, "hello": true, "hey": true, "namaste": true, "namaskar": true,
	"good morning": true, "good evening": true, "good afternoon": true,
	"thanks": true, "thank you": true, "dhanyavad": true,
	"ok": true, "okay": true, "yes": true, "no": true,
	"bye": true, "goodbye": true,
}

// domainKeywords is a coarse net for queries the intent classifier missed but
// that are still plainly about farming.
var domainKeywords = []string{
	"farm", "farmer", "field", "agriculture", "agricultural", "kisan",
	"kheti", "khet", "mandi", "market price", "tractor", "livestock",
	"cattle", "dairy", "poultry", "organic",
}

// noiseMarkers identify transient-failure phrasing from the degraded pipeline
// paths. Such drafts are operational messages, not advisory content, and pass
// through grounding untouched.
var noiseMarkers = []string{
	"still warming up",
	"still gathering the information",
	"try again in a few",
	"temporarily unavailable",
	"sorry, something went wrong",
}

// clarifyingQuestions are the replacements for ungrounded short drafts, keyed
// by the intent that demanded grounding.
var clarifyingQuestions = map[intent.Intent]string{
	intent.Weather: "Which village or district should I check the weather for?",
	intent.Crop:    "Which crop are you growing, and in which district? With that I can give exact advice.",
	intent.Pest:    "Which crop is affected, and what do the damaged plants look like? A little detail helps me identify the pest.",
	intent.Schemes: "Which scheme are you asking about? Tell me your state and I can list what you may be eligible for.",
	intent.Profile: "I could not find your farm record. Please share your village and farmer ID so I can look it up.",
}

// sourceLabels map tool names to the human-readable labels shown in the
// trailing attribution line.
var sourceLabels = map[string]string{
	"weather":        "IMD Weather Service",
	"crop_advisory":  "Crop Advisory Database",
	"pest_alert":     "Pest Surveillance Network",
	"schemes_search": "Government Scheme Registry",
	"profile_lookup": "Farmer Profile",
}

// Enforcer applies the advisory rules to a drafted reply.
type Enforcer struct {
	logger *zap.Logger
}

func NewEnforcer(logger *zap.Logger) *Enforcer {
	return &Enforcer{logger: logger}
}

// Enforce returns the final reply text, the surviving tool list and the
// decision. Topicality runs first and short-circuits; runtime-noise drafts
// bypass grounding; attribution is NOT applied here — the caller appends the
// sources line after back-translation so labels are never mistranslated.
func (e *Enforcer) Enforce(originalText, translatedText string, intents []intent.Intent, draft string, toolsUsed []string) (string, []string, Decision) {
	var d Decision

	if !onTopic(originalText, translatedText, intents) {
		d.OffTopicBlocked = true
		d.Enforced = true
		e.logger.Info("off-topic request redirected")
		return RedirectMessage, nil, d
	}

	if isRuntimeNoise(draft) {
		return draft, toolsUsed, d
	}

	for _, in := range intents {
		if intent.RequiresGrounding(in) {
			d.GroundingRequired = true
			break
		}
	}

	if d.GroundingRequired {
		switch {
		case len(toolsUsed) > 0:
			d.GroundingSatisfied = true
		case len([]rune(strings.TrimSpace(draft))) >= groundingExceptionLen:
			// Long-answer exception.
			d.GroundingSatisfied = true
		default:
			d.Enforced = true
			e.logger.Info("ungrounded short draft replaced with clarifying question",
				zap.Int("tools_used", len(toolsUsed)),
			)
			return clarifyFor(intents), nil, d
		}
	}

	capped := capAtWordBoundary(draft, replyMaxLen)
	if capped != draft {
		d.Enforced = true
		e.logger.Info("reply capped", zap.Int("limit", replyMaxLen))
	}
	return capped, toolsUsed, d
}

// SourcesLine renders the attribution line for the tools that fired, or ""
// when none did. English only, appended after back-translation.
func (e *Enforcer) SourcesLine(toolsUsed []string) string {
	var labels []string
	seen := make(map[string]bool)
	for _, t := range toolsUsed {
		label, ok := sourceLabels[t]
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return ""
	}
	return "Sources: " + strings.Join(labels, ", ")
}

// onTopic accepts empty messages, the chitchat set, any Indic-script text
// (assumed to be a farming query in a local language), any keyword-classified
// intent, and text carrying a domain keyword.
func onTopic(originalText, translatedText string, intents []intent.Intent) bool {
	trimmed := strings.TrimSpace(strings.ToLower(translatedText))
	if trimmed == "" {
		return true
	}
	if chitchat[strings.TrimRight(trimmed, ".!?")] {
		return true
	}
	if hasNonLatinScript(originalText) {
		return true
	}
	for _, in := range intents {
		if in != intent.General {
			return true
		}
	}
	lowerO := strings.ToLower(originalText)
	for _, kw := range domainKeywords {
		if strings.Contains(trimmed, kw) || strings.Contains(lowerO, kw) {
			return true
		}
	}
	return false
}

func isRuntimeNoise(draft string) bool {
	lower := strings.ToLower(draft)
	for _, m := range noiseMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// clarifyFor picks the question for the highest-priority grounding intent.
// The intents slice arrives priority-ordered from the classifier.
func clarifyFor(intents []intent.Intent) string {
	for _, in := range intents {
		if q, ok := clarifyingQuestions[in]; ok {
			return q
		}
	}
	return clarifyingQuestions[intent.Crop]
}

// hasNonLatinScript reports whether the text carries letters outside Latin
// script, treating such queries as local-language farming questions.
func hasNonLatinScript(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.In(r, unicode.Latin) {
			return true
		}
	}
	return false
}

// capAtWordBoundary truncates text to at most limit runes, backing up to the
// last space so a word is never cut in half.
func capAtWordBoundary(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n")
}
