package service

import (
	"context"
	"errors"
	"fmt"

	"staychat/internal/dispatch"
	"staychat/internal/domain"
	"staychat/internal/index"
	"staychat/internal/knowledge"
	"staychat/internal/llm"
	"staychat/internal/places"
	"staychat/internal/prompt"
	"staychat/internal/session"
)

// TransientFailureMessage is the reply committed when an external call
// fails after its retry. The underlying error never reaches the user.
const TransientFailureMessage = "I'm sorry, I'm having trouble answering right now. Please try again in a moment."

// SafetyBlockedMessage is the reply committed when the model refuses on
// safety grounds.
const SafetyBlockedMessage = "I'm sorry, I can't help with that request. Could you try rephrasing your question?"

// ErrDimensionMismatch reports an embedder whose output width does not
// match the knowledge records. This is a configuration fault: ranking
// against truncated vectors would silently degrade instead of failing.
var ErrDimensionMismatch = errors.New("service: embedding dimension mismatch")

// Options tunes the retrieval and lookup behavior.
type Options struct {
	TopK         int
	RadiusMeters int
}

// ChatService runs one conversation turn as a sequential pipeline:
// embed, retrieve, assemble, complete, parse, and, for nearby-places
// directives, lookup and compose.
type ChatService struct {
	catalog  *knowledge.Catalog
	indexes  map[string]*index.Index
	embedder llm.Embedder
	complete llm.Completer
	searcher places.Searcher
	store    *session.Store
	parser   *dispatch.Parser
	composer *dispatch.Composer
	opts     Options
}

// New builds a ChatService over the loaded catalog. Per-property
// indexes are built once here and are read-only afterwards.
func New(catalog *knowledge.Catalog, embedder llm.Embedder, completer llm.Completer,
	searcher places.Searcher, store *session.Store, parser *dispatch.Parser,
	composer *dispatch.Composer, opts Options) *ChatService {
	if opts.TopK <= 0 {
		opts.TopK = 7
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = 5000
	}
	indexes := make(map[string]*index.Index)
	for _, p := range catalog.Properties() {
		if p.HasRecords() {
			indexes[p.ID] = index.New(p.Records)
		}
	}
	return &ChatService{
		catalog:  catalog,
		indexes:  indexes,
		embedder: embedder,
		complete: completer,
		searcher: searcher,
		store:    store,
		parser:   parser,
		composer: composer,
		opts:     opts,
	}
}

// Properties lists every selectable property in catalog order.
func (s *ChatService) Properties() []domain.Property { return s.catalog.Properties() }

// Select activates a session for the property and returns its state.
func (s *ChatService) Select(propertyID string) (session.Snapshot, error) {
	prop, ok := s.catalog.Get(propertyID)
	if !ok {
		return session.Snapshot{}, fmt.Errorf("unknown property %q", propertyID)
	}
	return s.store.Select(prop.ID, prop.Name), nil
}

// Snapshot returns the active session's state.
func (s *ChatService) Snapshot() (session.Snapshot, error) { return s.store.Snapshot() }

// Reset clears the current conversation without changing the selection.
func (s *ChatService) Reset() (session.Snapshot, error) {
	snap, err := s.store.Snapshot()
	if err != nil {
		return session.Snapshot{}, err
	}
	prop, ok := s.catalog.Get(snap.PropertyID)
	if !ok {
		return session.Snapshot{}, fmt.Errorf("unknown property %q", snap.PropertyID)
	}
	return s.store.Reset(prop.Name)
}

// Ask runs one turn for the named session and returns the committed
// assistant reply. External failures become fixed user-safe replies and
// still complete the turn. If the session stopped being active while
// the turn was in flight, the result is discarded and
// session.ErrStaleSession is returned.
func (s *ChatService) Ask(ctx context.Context, sessionID, question string) (string, error) {
	snap, err := s.store.Snapshot()
	if err != nil {
		return "", err
	}
	if snap.ID != sessionID {
		return "", session.ErrStaleSession
	}
	prop, ok := s.catalog.Get(snap.PropertyID)
	if !ok {
		return "", fmt.Errorf("unknown property %q", snap.PropertyID)
	}
	if err := s.store.AppendUser(sessionID, question); err != nil {
		return "", err
	}

	answer := s.runTurn(ctx, prop, question)
	if !s.store.CommitAssistant(sessionID, answer) {
		return "", session.ErrStaleSession
	}
	return answer, nil
}

// runTurn produces the assistant reply for one question. It never
// returns an error: every failure mode maps to a fixed reply.
func (s *ChatService) runTurn(ctx context.Context, prop domain.Property, question string) string {
	grounding, err := s.ground(ctx, prop, question)
	if err != nil {
		return failureReply(err)
	}

	raw, err := s.complete.Complete(ctx, prompt.Build(question, grounding))
	if err != nil {
		return failureReply(err)
	}

	directive := s.parser.Parse(raw)
	if directive.Command != domain.PlacesLookup {
		return s.composer.Compose(directive, nil, nil)
	}
	results, lookupErr := s.searcher.Search(ctx, prop.Latitude, prop.Longitude, directive.Category, s.opts.RadiusMeters)
	return s.composer.Compose(directive, results, lookupErr)
}

// ground retrieves the top passages for the question, or falls back to
// the property's context blob when no records exist.
func (s *ChatService) ground(ctx context.Context, prop domain.Property, question string) (prompt.Grounding, error) {
	ix, ok := s.indexes[prop.ID]
	if !ok {
		return prompt.Grounding{Blob: prop.Blob}, nil
	}
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return prompt.Grounding{}, err
	}
	if want := s.catalog.Dimension(); want > 0 && len(vec) != want {
		return prompt.Grounding{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), want)
	}
	results, err := ix.Search(vec, s.opts.TopK)
	if err != nil {
		if errors.Is(err, index.ErrIndexEmpty) {
			return prompt.Grounding{Blob: prop.Blob}, nil
		}
		return prompt.Grounding{}, err
	}
	passages := make([]string, 0, len(results))
	for _, r := range results {
		passages = append(passages, r.Record.Text)
	}
	return prompt.Grounding{Passages: passages}, nil
}

func failureReply(err error) string {
	if errors.Is(err, llm.ErrContentBlocked) {
		return SafetyBlockedMessage
	}
	return TransientFailureMessage
}
