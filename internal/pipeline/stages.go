package pipeline

import (
	"encoding/json"
	"strings"
)

// Stage names recorded in the trace.
const (
	StageUnderstanding = "understanding"
	StageReasoning     = "reasoning"
	StageFactCheck     = "fact_check"
	StageCommunication = "communication"
	StageFastPath      = "fast_path"
)

const understandingSystem = `You analyze one farming question from an Indian farmer.
Respond with ONLY a JSON object, no prose, in this shape:
{"intents":["..."],"entities":{"location":"","crop":"","season":"","state":"","symptom":""},"tools":["..."],"urgency":"low|medium|high","summary":"one line"}
Valid intents: weather, crop, pest, irrigation, schemes, profile, general.
Valid tools: weather, crop_advisory, pest_alert, schemes_search, profile_lookup.
Leave entity fields empty when the question does not mention them.`

const reasoningSystem = `You are an experienced agronomy advisor for Indian smallholder farmers.
Use the available tools to fetch current data before answering. Prefer tool
data over memory for anything time-sensitive: weather, pest alerts, scheme
eligibility, profile details. When you have what you need, answer in plain
prose with specific, practical steps. Mention quantities and timings exactly
as the tools report them.`

const factCheckSystem = `You validate a draft advisory against the tool evidence that produced it.
You must NOT add new claims, numbers or recommendations. Only confirm, trim
or correct what the draft already says, using the evidence log as the source
of truth. Respond with ONLY a JSON object:
{"validated":true|false,"corrected_text":"full corrected draft","confidence":0.0,"corrections":["..."],"warnings":["..."],"hallucinations":["..."]}
If the draft is fully supported, return it unchanged in corrected_text.`

const communicationSystem = `Rewrite the advisory for a farmer with no technical background.
Keep every number, quantity, date and name exactly as given. Use short
sentences and simple words. At most 300 words. Reply in English only.`

// WarmupFallback is returned when the model runtime itself fails transiently.
// The policy layer recognizes this phrasing and passes it through verbatim.
const WarmupFallback = "The advisory service is still warming up. Please try again in a few seconds."

// ProcessingFallback is returned when the reasoning loop hits its turn cap
// without producing prose.
const ProcessingFallback = "I am still gathering the information for your question. Please ask once more in a moment."

// parseUnderstanding extracts stage-one structured output. Parse failure is a
// soft signal: the outcome carries the raw text and downstream stages proceed
// without an understanding.
func parseUnderstanding(raw string) UnderstandingOutcome {
	var u Understanding
	if ok := unmarshalJSONBlock(raw, &u); !ok || len(u.Intents) == 0 && u.Summary == "" {
		return UnderstandingOutcome{Raw: raw}
	}
	return UnderstandingOutcome{Data: &u, Raw: raw}
}

// parseFactCheck extracts stage-three structured output.
func parseFactCheck(raw string) FactCheckOutcome {
	var f FactCheck
	if ok := unmarshalJSONBlock(raw, &f); !ok {
		return FactCheckOutcome{Raw: raw}
	}
	return FactCheckOutcome{Data: &f, Raw: raw}
}

// unmarshalJSONBlock tolerates prose and markdown fences around the JSON
// object models tend to emit.
func unmarshalJSONBlock(raw string, v any) bool {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(s[start:end+1]), v) == nil
}
