package synthesis

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/pkg/anthropic"
)

// Narrator turns a compiled summary into prose. The engine hands over the
// standardized structures and treats the returned text as opaque.
type Narrator interface {
	Narrate(ctx context.Context, summary *model.Summary) (string, error)
}

const narrativePrompt = `You are writing a due-diligence brief about a financial institution. You are given structured findings aggregated from multiple external sources: news indices, consumer complaint registries, regulatory filings, and litigation databases.

Write a concise professional narrative (3-5 paragraphs). Lead with the most material risk flags, then positive indicators, then note which data categories were unavailable. Do not invent facts beyond the findings provided.`

// ClaudeNarrator implements Narrator on the Anthropic API.
type ClaudeNarrator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeNarrator creates a narrator for the given model.
func NewClaudeNarrator(client anthropic.Client, modelID string, maxTokens int) *ClaudeNarrator {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &ClaudeNarrator{client: client, model: modelID, maxTokens: int64(maxTokens)}
}

// Narrate renders the summary as JSON and asks Claude for the brief.
func (n *ClaudeNarrator) Narrate(ctx context.Context, summary *model.Summary) (string, error) {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "narrate: marshal summary")
	}

	resp, err := n.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     n.model,
		MaxTokens: n.maxTokens,
		System:    narrativePrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: string(payload)},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "narrate: create message")
	}

	zap.L().Debug("narrate: complete",
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return resp.Text(), nil
}
