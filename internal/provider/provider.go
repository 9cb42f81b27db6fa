// Package provider defines the vector-search and LLM ports consumed around
// the consistency engine, with OpenAI-backed implementations. The engine
// itself never calls the LLM; re-justification is driven by the caller
// over the cascade queue; the engine only needs embeddings for drift
// signals when the extraction did not supply them.
package provider

import (
	"context"

	"skg/internal/storage"
)

// Embedder is the vector-search port.
type Embedder interface {
	// Embed returns a semantic embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// JustificationRequest carries everything the LLM needs to (re-)justify
// one entity.
type JustificationRequest struct {
	EntityID  string
	Name      string
	Kind      string
	FilePath  string
	Signature string
	Body      string
	// CalleePurposes summarizes the current justifications of entities
	// this one calls, so purposes compose bottom-up.
	CalleePurposes []string
}

// Justifier is the LLM provider port: structured generation against a
// fixed justification schema.
type Justifier interface {
	GenerateJustification(ctx context.Context, req JustificationRequest) (*storage.Justification, error)
}
