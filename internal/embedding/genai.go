// Package embedding adapts the Google GenAI API to the memory store's
// Embedder interface.
package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/airi-ai/airi/internal/memory"
)

// GenAI generates embeddings via the Gemini embedding models.
type GenAI struct {
	client *genai.Client
	model  string
}

// NewGenAI creates a GenAI embedder. model defaults to gemini-embedding-001.
func NewGenAI(ctx context.Context, apiKey, model string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedder API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GenAI{client: client, model: model}, nil
}

// Embed generates a vector for a single text. The output dimensionality is
// pinned to the width of the memories table.
func (g *GenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := int32(memory.VectorDimension)
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := g.client.Models.EmbedContent(ctx, g.model, contents,
		&genai.EmbedContentConfig{OutputDimensionality: &dim})
	if err != nil {
		return nil, fmt.Errorf("embedding content: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return result.Embeddings[0].Values, nil
}
