package anthropic

import (
	"context"

	"github.com/rotisserie/eris"
)

// Complete sends a single-turn prompt and returns the response text and
// token usage. system may be empty.
func Complete(ctx context.Context, client Client, model, system, prompt string, maxTokens int64) (string, TokenUsage, error) {
	resp, err := client.CreateMessage(ctx, MessageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", TokenUsage{}, err
	}
	if resp == nil {
		return "", TokenUsage{}, eris.New("anthropic: empty response")
	}
	return resp.Text(), resp.Usage, nil
}
