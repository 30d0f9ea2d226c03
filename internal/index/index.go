package index

import (
	"errors"
	"sort"

	"staychat/internal/domain"
)

// ErrIndexEmpty is returned when a property has no knowledge records.
// The caller falls back to the property's context blob.
var ErrIndexEmpty = errors.New("index: no records")

// Index answers top-k similarity queries over one property's knowledge
// records using a brute-force dot-product scan. Records are immutable
// after construction, so concurrent Search calls need no locking.
type Index struct {
	records []domain.KnowledgeRecord
}

// New builds an index over the given records. The slice is retained;
// callers must not mutate it afterwards.
func New(records []domain.KnowledgeRecord) *Index {
	return &Index{records: records}
}

// Len returns the number of indexed records.
func (ix *Index) Len() int { return len(ix.records) }

// Search returns up to topK records ranked by descending dot-product
// similarity to the query vector. Ties keep insertion order.
func (ix *Index) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	if len(ix.records) == 0 {
		return nil, ErrIndexEmpty
	}
	if topK <= 0 {
		topK = 5
	}
	idxs := make([]int, len(ix.records))
	scores := make([]float64, len(ix.records))
	for i := range ix.records {
		idxs[i] = i
		scores[i] = dot(ix.records[i].Embedding, vector)
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Record: ix.records[j], Score: scores[j]})
	}
	return results, nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
