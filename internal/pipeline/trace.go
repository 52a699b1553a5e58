package pipeline

// Understanding is the structured analysis the first stage emits.
type Understanding struct {
	Intents  []string `json:"intents"`
	Entities Entities `json:"entities"`
	Tools    []string `json:"tools"`
	Urgency  string   `json:"urgency"`
	Summary  string   `json:"summary"`
}

// Entities are the slots extracted from the query.
type Entities struct {
	Location string `json:"location"`
	Crop     string `json:"crop"`
	Season   string `json:"season"`
	State    string `json:"state"`
	Symptom  string `json:"symptom"`
}

// FactCheck is the structured verdict of the third stage.
type FactCheck struct {
	Validated      bool     `json:"validated"`
	CorrectedText  string   `json:"corrected_text"`
	Confidence     float64  `json:"confidence"`
	Corrections    []string `json:"corrections"`
	Warnings       []string `json:"warnings"`
	Hallucinations []string `json:"hallucinations"`
}

// ToolUse records one tool invocation inside the reasoning loop, including
// failed ones (whose Output carries an "error" key).
type ToolUse struct {
	Tool   string
	Input  map[string]any
	Output map[string]any
	Failed bool
}

// Trace is built incrementally as stages complete. Partial traces are valid:
// an early stage failure still leaves whatever was recorded so far.
type Trace struct {
	StagesInvoked []string
	Understanding *Understanding
	FactCheck     *FactCheck
	ToolLog       []ToolUse
}

func (t *Trace) addStage(name string) {
	t.StagesInvoked = append(t.StagesInvoked, name)
}

func (t *Trace) addTool(name string, input, output map[string]any, failed bool) {
	t.ToolLog = append(t.ToolLog, ToolUse{Tool: name, Input: input, Output: output, Failed: failed})
}

// ToolsUsed returns the names of tools that fired successfully, deduplicated
// preserving first occurrence. Failed invocations stay in ToolLog but count
// as missing evidence, so they are excluded here.
func (t *Trace) ToolsUsed() []string {
	var out []string
	seen := make(map[string]bool)
	for _, u := range t.ToolLog {
		if u.Failed || seen[u.Tool] {
			continue
		}
		seen[u.Tool] = true
		out = append(out, u.Tool)
	}
	return out
}

// UnderstandingOutcome is the parse result of stage one: Data when the model
// returned valid structured output, Raw otherwise. Both branches are legal —
// an unparsed understanding is absent, not fatal.
type UnderstandingOutcome struct {
	Data *Understanding
	Raw  string
}

func (o UnderstandingOutcome) Parsed() bool { return o.Data != nil }

// FactCheckOutcome mirrors UnderstandingOutcome for stage three.
type FactCheckOutcome struct {
	Data *FactCheck
	Raw  string
}

func (o FactCheckOutcome) Parsed() bool { return o.Data != nil }
