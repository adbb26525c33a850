// Package nlu defines the contracts for external natural-language
// understanding delegates.
//
// The pipeline ships rule engines for intent classification and entity
// extraction; a host may substitute trained models by providing these
// interfaces. Delegate failures are never fatal — the pipeline falls back to
// its rule engines and records a warning.
package nlu

import (
	"context"

	"github.com/nadzzz/signalbox/internal/utterance"
)

// Alternative is a lower-ranked intent candidate.
type Alternative struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Classification is the outcome of intent classification.
type Classification struct {
	// Intent is the winning intent identifier, empty when nothing matched.
	Intent string `json:"intent"`

	// Confidence is the certainty of the winning intent in [0, 1].
	Confidence float64 `json:"confidence"`

	// Alternatives are the next-best distinct intents, highest first.
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Classifier maps normalized utterance text to an intent.
type Classifier interface {
	// Name returns the backend identifier (e.g., "openai").
	Name() string

	// Classify determines the intent of the normalized text.
	Classify(ctx context.Context, text string) (*Classification, error)
}

// Extractor finds typed entities in normalized utterance text.
type Extractor interface {
	// Name returns the backend identifier (e.g., "openai").
	Name() string

	// Extract returns the entities found in the normalized text.
	Extract(ctx context.Context, text string) ([]utterance.Entity, error)
}
