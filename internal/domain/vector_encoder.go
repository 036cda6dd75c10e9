package domain

import "context"

// VectorEncoder converts texts into embedding vectors. Implementations call
// the external embedding provider; the core never does.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
