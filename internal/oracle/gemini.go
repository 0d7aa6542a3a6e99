package oracle

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini is the production oracle backed by Google's Gemini API.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini-backed oracle.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{client: client}, nil
}

// Complete implements Oracle.
func (g *Gemini) Complete(ctx context.Context, model string, messages []Message, opts Options) (string, error) {
	contents, config := g.buildRequest(messages, opts)

	result, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty completion")
	}
	return text, nil
}

// CompleteJSON implements Oracle. The request forces a JSON response MIME
// type; the result is still re-parsed defensively because providers do not
// guarantee well-formed output under truncation.
func (g *Gemini) CompleteJSON(ctx context.Context, model string, messages []Message, opts Options) (map[string]any, error) {
	opts.JSONMode = true
	text, err := g.Complete(ctx, model, messages, opts)
	if err != nil {
		return nil, err
	}
	return ParseJSONObject(text)
}

// buildRequest converts oracle messages into genai contents plus config.
// System messages are folded into the request's system instruction.
func (g *Gemini) buildRequest(messages []Message, opts Options) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.JSONMode {
		config.ResponseMIMEType = "application/json"
	}

	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if config.SystemInstruction == nil {
				config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
			} else {
				config.SystemInstruction.Parts = append(config.SystemInstruction.Parts,
					genai.NewPartFromText(m.Content))
			}
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	return contents, config
}
