package querymem

import "context"

// Embedder converts text to vector embeddings. Every query is embedded
// once at save time and once per similarity lookup.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
