// Package extract sends contract text to the Anthropic API and persists one
// validated pricing record per client.
package extract

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/procudo/contract-cli/internal/model"
	"github.com/procudo/contract-cli/pkg/anthropic"
)

// Extractor turns one client's document text into a structured result.
type Extractor interface {
	Extract(ctx context.Context, clientID, folderName, documentText string) (*model.ExtractionResult, error)
}

// claudeExtractor calls the Messages API with a forced tool.
type claudeExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewExtractor returns an Extractor backed by the given API client.
func NewExtractor(client anthropic.Client, model string, maxTokens int64) Extractor {
	return &claudeExtractor{client: client, model: model, maxTokens: maxTokens}
}

func (e *claudeExtractor) Extract(ctx context.Context, clientID, folderName, documentText string) (*model.ExtractionResult, error) {
	req := buildRequest(e.model, e.maxTokens, folderName, documentText)
	resp, err := e.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: client %s", clientID)
	}
	resp.Usage.LogCost(e.model, "extraction")
	return resultFromResponse(clientID, resp)
}

// resultFromResponse locates the forced tool call in a response and validates
// its input.
func resultFromResponse(clientID string, resp *anthropic.MessageResponse) (*model.ExtractionResult, error) {
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == toolName {
			return ParseToolInput(clientID, block.Input)
		}
	}
	return nil, eris.Errorf("extract: client %s: no %s tool call in response", clientID, toolName)
}
