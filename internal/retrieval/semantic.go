package retrieval

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// Embedder turns text into an embedding vector
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingIndex finds pages nearest to an embedding
type EmbeddingIndex interface {
	SearchDocsByEmbedding(ctx context.Context, embedding []float32, tenantIDs []string, limit int) ([]*domain.DocPage, error)
}

// SemanticSearcher implements DocSearcher over an embedder and a vector index
type SemanticSearcher struct {
	embedder Embedder
	index    EmbeddingIndex
}

// NewSemanticSearcher creates a SemanticSearcher
func NewSemanticSearcher(embedder Embedder, index EmbeddingIndex) *SemanticSearcher {
	return &SemanticSearcher{embedder: embedder, index: index}
}

// SearchDocs embeds the query and returns the nearest published pages
func (s *SemanticSearcher) SearchDocs(ctx context.Context, tenantIDs []string, query string, limit int) ([]*domain.DocPage, error) {
	if len(tenantIDs) == 0 || query == "" {
		return nil, nil
	}
	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	pages, err := s.index.SearchDocsByEmbedding(ctx, embedding, tenantIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search documentation: %w", err)
	}
	return pages, nil
}
