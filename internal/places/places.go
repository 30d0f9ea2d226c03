package places

import (
	"context"
	"errors"

	"staychat/internal/domain"
)

// ErrUnavailable indicates the lookup service could not be reached or
// answered with an error. Distinct from finding nothing.
var ErrUnavailable = errors.New("places: service unavailable")

// ErrNoResults indicates the lookup succeeded but found nothing nearby.
var ErrNoResults = errors.New("places: no results")

// Searcher finds places of a category near a coordinate. Results keep
// the service's relevance order.
type Searcher interface {
	Search(ctx context.Context, lat, lon float64, category string, radiusMeters int) ([]domain.LookupResult, error)
}
