package chat

import (
	"context"
	"sync"

	"github.com/hempbis/hempbis-agent/internal/domain"
	"github.com/hempbis/hempbis-agent/internal/persona"
)

// SessionManager lazily holds one live model session for the active
// thread and persona. Invalidate drops the handle; the next Ensure
// recreates it from the persona and projected history it is given.
// A failed create leaves the manager empty so the next turn retries.
type SessionManager struct {
	backend domain.ModelBackend

	mu      sync.Mutex
	current domain.ModelSession
}

func NewSessionManager(backend domain.ModelBackend) *SessionManager {
	return &SessionManager{backend: backend}
}

// Ensure returns the live session, creating one if none exists.
func (m *SessionManager) Ensure(ctx context.Context, p domain.Persona, history []domain.Turn) (domain.ModelSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current, nil
	}
	sess, err := m.backend.CreateSession(ctx, domain.SessionParams{
		Model:        p.Model,
		SystemPrompt: p.SystemPrompt,
		History:      history,
		EnableSearch: persona.SearchEnabled(p.ID),
	})
	if err != nil {
		return nil, err
	}
	m.current = sess
	return sess, nil
}

// Invalidate forgets the current session. Called on persona switches,
// thread changes, and turn failures, where the remote conversation
// state no longer matches the timeline.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// projectHistory reduces a timeline to the turns a fresh model session
// is seeded with. Only user and assistant messages carry over; typing
// placeholders, system notices, and thread-history markers stay local.
func projectHistory(messages []*domain.Message) []domain.Turn {
	var turns []domain.Turn
	for _, m := range messages {
		if m.Typing {
			continue
		}
		switch m.Sender {
		case domain.SenderUser, domain.SenderAssistant:
			turns = append(turns, domain.Turn{
				Role: m.Sender,
				Text: m.Text,
				File: m.File,
			})
		}
	}
	return turns
}
