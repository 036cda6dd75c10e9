package usecase

import "fmt"

// RetrievalConfig holds tunable parameters for policy retrieval.
type RetrievalConfig struct {
	// SearchLimit is the number of candidates to fetch from vector search
	// before grouping and conflict resolution. It stays a multiple of TopK
	// so resolution has superseded revisions to compare against.
	SearchLimit int

	// TopK is the number of context chunks handed to the generator after
	// ranking.
	TopK int
}

// DefaultRetrievalConfig returns the defaults used when the environment
// does not override them.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		SearchLimit: 16,
		TopK:        4,
	}
}

// Validate checks that the configuration values are usable.
func (c RetrievalConfig) Validate() error {
	if c.SearchLimit <= 0 {
		return fmt.Errorf("searchLimit must be positive, got %d", c.SearchLimit)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("topK must be positive, got %d", c.TopK)
	}
	if c.TopK > c.SearchLimit {
		return fmt.Errorf("topK (%d) must not exceed searchLimit (%d)", c.TopK, c.SearchLimit)
	}
	return nil
}
