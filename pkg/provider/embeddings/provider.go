// Package embeddings defines the Provider interface for text embedding
// backends used by the medical-knowledge retrieval layer.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any embeddings backend.
type Provider interface {
	// Embed returns the vector representation of text. The vector dimension
	// matches Dimensions().
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the output dimension of the configured model.
	Dimensions() int

	// ModelID returns the identifier of the configured embedding model.
	ModelID() string
}
