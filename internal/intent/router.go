package intent

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// maxPromptIntents caps how many intents shape the tool-first prompt. More
// tools means more candidate calls per turn, and per-request latency is
// bounded by the gateway's wall clock.
const maxPromptIntents = 3

// fastPathPrefixes are session-id prefixes minted by pre-structured UI flows.
// Those screens collect the inputs up front, so the multi-stage review adds
// latency without adding accuracy — they take a single tool-aware call and
// skip audio synthesis downstream.
var fastPathPrefixes = []string{
	"crop-recommend-",
	"disease-detect-",
	"scheme-match-",
}

// Router decides pipeline routing and builds the tool-first prompt.
type Router struct {
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{logger: logger}
}

// IsFastPath reports whether the session originated from a feature page.
func (r *Router) IsFastPath(sessionID string) bool {
	for _, p := range fastPathPrefixes {
		if strings.HasPrefix(sessionID, p) {
			return true
		}
	}
	return false
}

// BuildToolFirstPrompt augments the query with a priority-ordered tool list
// and an instruction to call the first tool before answering in prose.
// Intents beyond the cap are dropped lowest-priority-first.
func (r *Router) BuildToolFirstPrompt(text string, intents []Intent, knownContext map[string]string) string {
	kept := intents
	if len(kept) > maxPromptIntents {
		dropped := kept[maxPromptIntents:]
		kept = kept[:maxPromptIntents]
		names := make([]string, len(dropped))
		for i, in := range dropped {
			names[i] = string(in)
		}
		r.logger.Warn("intent list truncated for tool-first prompt",
			zap.Strings("dropped", names),
			zap.Int("cap", maxPromptIntents),
		)
	}

	var tools []string
	seen := make(map[string]bool)
	for _, in := range kept {
		t := ToolFor(in)
		if t != "" && !seen[t] {
			tools = append(tools, t)
			seen[t] = true
		}
	}

	var b strings.Builder
	b.WriteString("Farmer's question: ")
	b.WriteString(text)
	b.WriteString("\n")
	if len(knownContext) > 0 {
		b.WriteString("Known context:\n")
		for _, k := range []string{"location", "crop", "season", "state"} {
			if v, ok := knownContext[k]; ok && v != "" {
				fmt.Fprintf(&b, "- %s: %s\n", k, v)
			}
		}
	}
	if len(tools) > 0 {
		fmt.Fprintf(&b, "Available tools in priority order: %s.\n", strings.Join(tools, ", "))
		fmt.Fprintf(&b, "Call the %s tool first to fetch current data, then answer in plain prose grounded on the tool result.\n", tools[0])
	} else {
		b.WriteString("Answer in plain prose. Keep the reply short and practical.\n")
	}
	return b.String()
}
