package synth

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/insightforge/company-intel/pkg/anthropic"
)

// anthropicGenerator adapts the Anthropic client to the Generator contract.
type anthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicGenerator wraps an Anthropic client as a Generator.
func NewAnthropicGenerator(client anthropic.Client, model string, maxTokens int64) Generator {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &anthropicGenerator{client: client, model: model, maxTokens: maxTokens}
}

func (g *anthropicGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	temp := 0.1
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      system,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", eris.New("synth: model returned no text content")
	}
	return text, nil
}
