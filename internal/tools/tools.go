// Package tools dispatches tool names requested by the model to their
// executors. Unknown names get a typed error, never a silent no-op.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/krishisetu/sahayak/internal/llm"
)

// ErrUnknownTool is returned when the model requests a name outside the
// registered set.
var ErrUnknownTool = errors.New("unknown tool")

// Kind enumerates the tool vocabulary.
type Kind int

const (
	KindUnspecified Kind = iota
	KindWeather
	KindCropAdvisory
	KindPestAlert
	KindSchemesSearch
	KindProfileLookup
)

// kindNames is the canonical name table; KindFromName is its inverse.
var kindNames = map[Kind]string{
	KindWeather:       "weather",
	KindCropAdvisory:  "crop_advisory",
	KindPestAlert:     "pest_alert",
	KindSchemesSearch: "schemes_search",
	KindProfileLookup: "profile_lookup",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unspecified"
}

// KindFromName resolves a tool name string to its Kind.
func KindFromName(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindUnspecified, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// Executor runs one tool call against its backing collaborator.
type Executor interface {
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Registry is the explicit kind-to-executor lookup table.
type Registry struct {
	executors map[Kind]Executor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[Kind]Executor)}
}

// Register binds an executor to a kind, replacing any previous binding.
func (r *Registry) Register(k Kind, e Executor) {
	r.executors[k] = e
}

// Call resolves name and executes. A missing executor for a known kind is
// also an ErrUnknownTool — the tool exists in the vocabulary but not in this
// deployment.
func (r *Registry) Call(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	k, err := KindFromName(name)
	if err != nil {
		return nil, err
	}
	e, ok := r.executors[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q not configured", ErrUnknownTool, name)
	}
	return e.Execute(ctx, input)
}

// Specs returns the llm declarations for the named tools, in the given order,
// skipping names this registry cannot serve.
func (r *Registry) Specs(names []string) []llm.ToolSpec {
	var specs []llm.ToolSpec
	for _, n := range names {
		k, err := KindFromName(n)
		if err != nil {
			continue
		}
		if _, ok := r.executors[k]; !ok {
			continue
		}
		specs = append(specs, toolSpecs[k])
	}
	return specs
}

// toolSpecs declares each tool's contract to the model.
var toolSpecs = map[Kind]llm.ToolSpec{
	KindWeather: {
		Name:        "weather",
		Description: "Current conditions and 5-day forecast for a location in India.",
		Params:      map[string]string{"location": "village, district or city name"},
	},
	KindCropAdvisory: {
		Name:        "crop_advisory",
		Description: "Sowing, input and harvest guidance for a crop in a state and season.",
		Params: map[string]string{
			"crop":   "crop name",
			"state":  "Indian state",
			"season": "kharif, rabi or zaid",
		},
	},
	KindPestAlert: {
		Name:        "pest_alert",
		Description: "Active pest and disease alerts plus approved treatments for a crop.",
		Params: map[string]string{
			"crop":    "crop name",
			"symptom": "what the farmer is seeing",
		},
	},
	KindSchemesSearch: {
		Name:        "schemes_search",
		Description: "Central and state government schemes matching a farmer's need.",
		Params:      map[string]string{"query": "what support the farmer is looking for"},
	},
	KindProfileLookup: {
		Name:        "profile_lookup",
		Description: "The registered profile for the current farmer.",
		Params:      map[string]string{"farmer_id": "identity of the farmer"},
	},
}

// HTTPExecutor POSTs the input as JSON to a collaborator endpoint and decodes
// the JSON reply.
type HTTPExecutor struct {
	endpoint string
	client   *http.Client
}

func NewHTTPExecutor(endpoint string, timeout time.Duration) *HTTPExecutor {
	return &HTTPExecutor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *HTTPExecutor) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Execute: %s returned %d", e.endpoint, resp.StatusCode)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("Execute: %w", err)
	}
	return out, nil
}
