package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"staychat/internal/domain"
)

// ErrNoActiveSession is returned when no property has been selected yet.
var ErrNoActiveSession = errors.New("session: no active session")

// ErrStaleSession is returned when an operation names a session that is
// no longer the active one (property switched or history cleared).
var ErrStaleSession = errors.New("session: stale session")

// ErrAwaitingReply is returned when a user message arrives before the
// previous turn produced its assistant message.
var ErrAwaitingReply = errors.New("session: awaiting assistant reply")

// Snapshot is a read-only copy of the active session's state.
type Snapshot struct {
	ID         string
	PropertyID string
	Messages   []domain.Message
}

type sessionState struct {
	id         string
	propertyID string
	messages   []domain.Message
	awaiting   bool
}

// Store holds the single active conversation. Selecting a different
// property replaces the session wholesale; nothing carries over.
type Store struct {
	mu     sync.RWMutex
	active *sessionState
}

// NewStore creates an empty session store.
func NewStore() *Store { return &Store{} }

// Select activates a session for the property. Re-selecting the current
// property keeps the existing conversation; any other selection starts
// a fresh session whose only message is the greeting.
func (s *Store) Select(propertyID, propertyName string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.propertyID == propertyID {
		return s.snapshotLocked()
	}
	s.active = newSession(propertyID, propertyName)
	return s.snapshotLocked()
}

// Reset clears the conversation for the current property, keeping the
// selection. The session gets a new identity so in-flight turns from
// the old conversation cannot commit into the new one.
func (s *Store) Reset(propertyName string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Snapshot{}, ErrNoActiveSession
	}
	s.active = newSession(s.active.propertyID, propertyName)
	return s.snapshotLocked(), nil
}

// AppendUser records a user message on the named session. It fails if
// the session is stale or the previous turn has not been answered yet.
func (s *Store) AppendUser(sessionID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoActiveSession
	}
	if s.active.id != sessionID {
		return ErrStaleSession
	}
	if s.active.awaiting {
		return ErrAwaitingReply
	}
	s.active.messages = append(s.active.messages, domain.Message{Role: domain.RoleUser, Content: text})
	s.active.awaiting = true
	return nil
}

// CommitAssistant records the assistant reply for the named session.
// It reports false when the session is no longer active, in which case
// the reply is discarded.
func (s *Store) CommitAssistant(sessionID, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.id != sessionID {
		return false
	}
	s.active.messages = append(s.active.messages, domain.Message{Role: domain.RoleAssistant, Content: text})
	s.active.awaiting = false
	return true
}

// Snapshot returns a copy of the active session.
func (s *Store) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return Snapshot{}, ErrNoActiveSession
	}
	return s.snapshotLocked(), nil
}

func (s *Store) snapshotLocked() Snapshot {
	msgs := make([]domain.Message, len(s.active.messages))
	copy(msgs, s.active.messages)
	return Snapshot{ID: s.active.id, PropertyID: s.active.propertyID, Messages: msgs}
}

func newSession(propertyID, propertyName string) *sessionState {
	return &sessionState{
		id:         uuid.NewString(),
		propertyID: propertyID,
		messages: []domain.Message{{
			Role:    domain.RoleAssistant,
			Content: Greeting(propertyName),
		}},
	}
}

// Greeting is the assistant message every session starts with.
func Greeting(propertyName string) string {
	return fmt.Sprintf("Welcome to %s! How can I assist you today?", propertyName)
}
