package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"staychat/internal/dispatch"
	"staychat/internal/domain"
	"staychat/internal/knowledge"
	"staychat/internal/llm"
	"staychat/internal/places"
	"staychat/internal/session"
)

type fakeEmbedder struct {
	vec []float64
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.vec, f.err
}

type fakeCompleter struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

type fakeSearcher struct {
	results  []domain.LookupResult
	err      error
	category string
	lat, lon float64
	radius   int
	calls    int
}

func (f *fakeSearcher) Search(ctx context.Context, lat, lon float64, category string, radiusMeters int) ([]domain.LookupResult, error) {
	f.calls++
	f.lat, f.lon, f.category, f.radius = lat, lon, category, radiusMeters
	return f.results, f.err
}

func testCatalog(t *testing.T) *knowledge.Catalog {
	t.Helper()
	cat, err := knowledge.NewCatalog([]domain.Property{
		{
			ID: "cabin", Name: "Treetop Paradise", Latitude: 35.7, Longitude: -83.5,
			Records: []domain.KnowledgeRecord{
				{PropertyID: "cabin", Label: "Check-in", Text: "Check-in starts at 3pm.", Embedding: []float64{1, 0}},
				{PropertyID: "cabin", Label: "Hot tub", Text: "The deck has a private hot tub.", Embedding: []float64{0, 1}},
			},
		},
		{ID: "chalet", Name: "Ray's Chalet", Latitude: 35.6, Longitude: -83.4, Blob: "A cozy chalet with wifi."},
	}, 0)
	require.NoError(t, err)
	return cat
}

func newTestService(t *testing.T, emb *fakeEmbedder, comp *fakeCompleter, search *fakeSearcher) *ChatService {
	t.Helper()
	return New(testCatalog(t), emb, comp, search, session.NewStore(),
		dispatch.NewParser(map[string]string{"gardens": "park"}), dispatch.NewComposer(10),
		Options{TopK: 2, RadiusMeters: 5000})
}

func TestAskFinalAnswer(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{1, 0}}
	comp := &fakeCompleter{reply: "Check-in starts at 3pm."}
	search := &fakeSearcher{}
	svc := newTestService(t, emb, comp, search)

	snap, err := svc.Select("cabin")
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), snap.ID, "When is check-in?")
	require.NoError(t, err)
	require.Equal(t, "Check-in starts at 3pm.", answer)
	require.Zero(t, search.calls)

	// retrieved passages were grounded into the prompt
	require.Contains(t, comp.lastPrompt, "PASSAGE 1: Check-in starts at 3pm.")
	require.Contains(t, comp.lastPrompt, "Question: When is check-in?")

	got, err := svc.Snapshot()
	require.NoError(t, err)
	require.Equal(t, domain.RoleAssistant, got.Messages[len(got.Messages)-1].Role)
}

func TestAskNearbyLookup(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{1, 0}}
	comp := &fakeCompleter{reply: "NEARBY_SEARCH,pool"}
	search := &fakeSearcher{results: []domain.LookupResult{
		{Name: "City Pool", Vicinity: "12 Main St"},
		{Name: "Swim Club", Vicinity: "Shore Rd"},
	}}
	svc := newTestService(t, emb, comp, search)

	snap, err := svc.Select("cabin")
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), snap.ID, "Is there a pool nearby?")
	require.NoError(t, err)
	require.Equal(t, 1, search.calls)
	require.Equal(t, "pool", search.category)
	require.Equal(t, 35.7, search.lat)
	require.Equal(t, -83.5, search.lon)
	require.Equal(t, 5000, search.radius)

	require.Contains(t, answer, "1. City Pool (12 Main St)")
	require.Contains(t, answer, "2. Swim Club (Shore Rd)")
	require.NotContains(t, answer, "3.")
}

func TestAskLookupFailureCommitsSafeReply(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{1, 0}}
	comp := &fakeCompleter{reply: "NEARBY_SEARCH,pool"}
	search := &fakeSearcher{err: fmt.Errorf("%w: context deadline exceeded", places.ErrUnavailable)}
	svc := newTestService(t, emb, comp, search)

	snap, err := svc.Select("cabin")
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), snap.ID, "Is there a pool nearby?")
	require.NoError(t, err)
	require.Equal(t, dispatch.LookupFailedMessage, answer)
	require.NotContains(t, answer, "deadline")

	got, err := svc.Snapshot()
	require.NoError(t, err)
	last := got.Messages[len(got.Messages)-1]
	require.Equal(t, domain.RoleAssistant, last.Role)
	require.Equal(t, dispatch.LookupFailedMessage, last.Content)
}

func TestAskBlobPropertySkipsEmbedding(t *testing.T) {
	emb := &fakeEmbedder{err: fmt.Errorf("%w: should not be called", llm.ErrUnavailable)}
	comp := &fakeCompleter{reply: "It has wifi."}
	svc := newTestService(t, emb, comp, &fakeSearcher{})

	snap, err := svc.Select("chalet")
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), snap.ID, "Does it have wifi?")
	require.NoError(t, err)
	require.Equal(t, "It has wifi.", answer)
	require.Contains(t, comp.lastPrompt, "A cozy chalet with wifi.")
	require.NotContains(t, comp.lastPrompt, "PASSAGE")
}

func TestAskTransientCompletionFailure(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{1, 0}}
	comp := &fakeCompleter{err: fmt.Errorf("%w: 503", llm.ErrUnavailable)}
	svc := newTestService(t, emb, comp, &fakeSearcher{})

	snap, err := svc.Select("cabin")
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), snap.ID, "hello")
	require.NoError(t, err)
	require.Equal(t, TransientFailureMessage, answer)
}

func TestAskSafetyRejection(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{1, 0}}
	comp := &fakeCompleter{err: fmt.Errorf("%w: response blocked", llm.ErrContentBlocked)}
	svc := newTestService(t, emb, comp, &fakeSearcher{})

	snap, err := svc.Select("cabin")
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), snap.ID, "hello")
	require.NoError(t, err)
	require.Equal(t, SafetyBlockedMessage, answer)
}

func TestAskEmbeddingDimensionMismatch(t *testing.T) {
	// catalog records are 2-dimensional; a 3-dimensional embedder is a
	// configuration fault and must not silently rank against truncated
	// vectors.
	emb := &fakeEmbedder{vec: []float64{1, 0, 0}}
	comp := &fakeCompleter{reply: "should never be generated"}
	svc := newTestService(t, emb, comp, &fakeSearcher{})

	snap, err := svc.Select("cabin")
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), snap.ID, "When is check-in?")
	require.NoError(t, err)
	require.Equal(t, TransientFailureMessage, answer)
	require.Empty(t, comp.lastPrompt)
}

func TestAskStaleSessionDiscarded(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{1, 0}}
	comp := &fakeCompleter{reply: "answer"}
	svc := newTestService(t, emb, comp, &fakeSearcher{})

	old, err := svc.Select("cabin")
	require.NoError(t, err)
	_, err = svc.Select("chalet")
	require.NoError(t, err)

	_, err = svc.Ask(context.Background(), old.ID, "late question")
	require.ErrorIs(t, err, session.ErrStaleSession)

	got, err := svc.Snapshot()
	require.NoError(t, err)
	require.Equal(t, "chalet", got.PropertyID)
	require.Len(t, got.Messages, 1)
}

func TestAskAliasRemap(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{1, 0}}
	comp := &fakeCompleter{reply: "NEARBY_SEARCH,Gardens"}
	search := &fakeSearcher{err: places.ErrNoResults}
	svc := newTestService(t, emb, comp, search)

	snap, err := svc.Select("cabin")
	require.NoError(t, err)

	answer, err := svc.Ask(context.Background(), snap.ID, "Any gardens nearby?")
	require.NoError(t, err)
	require.Equal(t, "park", search.category)
	require.Equal(t, "I could not find any nearby park for this property.", answer)
}

func TestSelectUnknownProperty(t *testing.T) {
	svc := newTestService(t, &fakeEmbedder{}, &fakeCompleter{}, &fakeSearcher{})
	_, err := svc.Select("nope")
	require.Error(t, err)
}
