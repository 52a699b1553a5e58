package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements Model on the Gemini API.
type Gemini struct {
	client    *genai.Client
	modelName string
}

// NewGemini creates a client for the named model (e.g. "gemini-2.0-flash").
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("NewGemini: %w", err)
	}
	return &Gemini{client: client, modelName: modelName}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) newModel(system string) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.modelName)
	if system != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}
	m.SetTemperature(0.2)
	return m
}

func (g *Gemini) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.newModel(system).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Generate: %w", err)
	}
	return firstText(resp), nil
}

func (g *Gemini) StartToolSession(_ context.Context, system string, tools []ToolSpec) (ToolSession, error) {
	m := g.newModel(system)

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]*genai.Schema, len(t.Params))
		for name, desc := range t.Params {
			props[name] = &genai.Schema{Type: genai.TypeString, Description: desc}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: props},
		})
	}
	if len(decls) > 0 {
		m.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return &geminiSession{chat: m.StartChat()}, nil
}

type geminiSession struct {
	chat *genai.ChatSession
}

func (s *geminiSession) Send(ctx context.Context, prompt string) (Turn, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return Turn{}, fmt.Errorf("Send: %w", err)
	}
	return toTurn(resp), nil
}

func (s *geminiSession) Reply(ctx context.Context, result ToolResult) (Turn, error) {
	resp, err := s.chat.SendMessage(ctx, genai.FunctionResponse{
		Name:     result.Name,
		Response: result.Output,
	})
	if err != nil {
		return Turn{}, fmt.Errorf("Reply: %w", err)
	}
	return toTurn(resp), nil
}

// toTurn extracts the first function call if present, otherwise concatenated
// prose. A response carrying both is treated as a tool call — the prose half
// is preamble the next turn will regenerate.
func toTurn(resp *genai.GenerateContentResponse) Turn {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Turn{}
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.FunctionCall:
			return Turn{ToolCall: &ToolCall{Name: p.Name, Args: p.Args}}
		case genai.Text:
			text += string(p)
		}
	}
	return Turn{Text: text}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return text
}
