package llm

import (
	"context"
	"errors"
)

// ErrUnavailable indicates a transient failure (network, rate limit,
// server error) that survived the retry.
var ErrUnavailable = errors.New("llm: service unavailable")

// ErrContentBlocked indicates the model refused the prompt or response
// on safety grounds. Distinct from ErrUnavailable so callers can ask
// the user to rephrase rather than retry later.
var ErrContentBlocked = errors.New("llm: content blocked")

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Completer generates text for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
