package mapper

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/profile-cli/internal/model"
	"github.com/sells-group/profile-cli/pkg/anthropic"
)

const mappingPrompt = `You are selecting search keys for external data sources about a financial institution's corporate family. You are given the family as JSON: the queried entity, its ultimate parent, and all known family members with their relationships and countries.

Available sources and their IDs:
- "news_rss": press coverage search, one query per name
- "cfpb": US consumer complaint database, matched on company name
- "edgar": SEC full-text filing search, matched on filer name
- "courtlistener": federal docket search, matched on party name

For each source, pick the entity names most likely to match that provider's records (consumer-facing brand names for complaints, the registered filer for filings). Omit a source to keep its default mapping.

Respond with ONLY a JSON object keyed by source ID:
{"cfpb": {"keys": ["..."], "rationale": "..."}}`

// ClaudeSemanticMapper implements SemanticMapper on the Anthropic API.
type ClaudeSemanticMapper struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeSemanticMapper creates a semantic mapper for the given model.
func NewClaudeSemanticMapper(client anthropic.Client, modelID string, maxTokens int) *ClaudeSemanticMapper {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &ClaudeSemanticMapper{client: client, model: modelID, maxTokens: int64(maxTokens)}
}

// ResolveEntityMapping asks Claude for per-source key selections. Any
// error here is non-fatal to the caller; the mapper falls back to the
// deterministic scope rules.
func (m *ClaudeSemanticMapper) ResolveEntityMapping(ctx context.Context, family *model.CorporateFamily) (map[string]KeySelection, error) {
	payload, err := json.MarshalIndent(family, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "mapper: marshal family")
	}

	resp, err := m.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     m.model,
		MaxTokens: m.maxTokens,
		System:    mappingPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: string(payload)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "mapper: create message")
	}

	text := extractJSON(resp.Text())
	var selections map[string]KeySelection
	if err := json.Unmarshal([]byte(text), &selections); err != nil {
		return nil, eris.Wrap(err, "mapper: parse mapping response")
	}

	zap.L().Debug("mapper: semantic mapping resolved",
		zap.Int("sources_overridden", len(selections)),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)
	return selections, nil
}

// extractJSON strips any prose or code fences around the JSON object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
