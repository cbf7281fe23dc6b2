// Package chat orchestrates conversation turns: it owns the active
// timeline, streams model output into it, and commits finalized
// threads to the store.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hempbis/hempbis-agent/internal/domain"
	"github.com/hempbis/hempbis-agent/internal/persona"
	"github.com/hempbis/hempbis-agent/internal/suggest"
)

const (
	defaultTitle     = "New Conversation"
	maxTitleRunes    = 40
	streamCursor     = "▋"
	defaultTurnLimit = 120 * time.Second
)

// TurnEvent is one observable step of a turn, pushed to the caller's
// sink as the timeline changes.
type TurnEvent struct {
	// Type is "message" for a newly appended message, "update" for a
	// revision of an existing one, "error" for a failed turn, and
	// "done" when the turn has fully settled.
	Type    string
	Message *domain.Message
	Err     error
}

// TurnSink receives TurnEvents in order. A nil sink is allowed.
type TurnSink func(TurnEvent)

// streamTag identifies which timeline a stream was started against.
// Chunks arriving after the tag changed are stale and must be dropped.
type streamTag struct {
	thread  domain.ThreadID
	persona domain.PersonaID
	serial  uint64
}

// Service is the turn orchestrator. All timeline state is guarded by
// mu; at most one model stream runs at a time.
type Service struct {
	sessions *SessionManager
	store    domain.ThreadStore
	logger   *slog.Logger
	redact   func(error) string
	timeout  time.Duration

	mu            sync.Mutex
	messages      []*domain.Message
	activeThread  domain.ThreadID
	activeTitle   string
	activeCreated time.Time
	activePersona domain.Persona
	streaming     bool
	tag           streamTag
	serial        uint64
}

// Option configures a Service.
type Option func(*Service)

// WithTurnTimeout caps how long a single model turn may run.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithErrorRedactor installs the function that converts raw backend
// failures into user-facing message text.
func WithErrorRedactor(f func(error) string) Option {
	return func(s *Service) {
		if f != nil {
			s.redact = f
		}
	}
}

func NewService(backend domain.ModelBackend, store domain.ThreadStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		sessions: NewSessionManager(backend),
		store:    store,
		logger:   logger,
		redact:   func(err error) string { return "The model request failed: " + err.Error() },
		timeout:  defaultTurnLimit,
	}
	for _, o := range opts {
		o(s)
	}
	s.resetLocked(persona.Default())
	return s
}

// resetLocked points the service at a fresh unsaved thread for p.
// Callers hold mu or are in the constructor.
func (s *Service) resetLocked(p domain.Persona) {
	s.activeThread = ""
	s.activeTitle = defaultTitle
	s.activeCreated = time.Time{}
	s.activePersona = p
	s.messages = []*domain.Message{{
		ID:        domain.MessageID(uuid.NewString()),
		Sender:    domain.SenderAssistant,
		Text:      p.Greeting,
		CreatedAt: time.Now(),
		PersonaID: p.ID,
	}}
	s.orphanStreamLocked()
	s.sessions.Invalidate()
}

// orphanStreamLocked detaches any in-flight stream from the timeline.
// The stream keeps running until its context ends but its chunks no
// longer match the tag, so they are dropped.
func (s *Service) orphanStreamLocked() {
	s.streaming = false
	s.serial++
	s.tag = streamTag{serial: s.serial}
}

// StartNewThread abandons the active timeline and begins a fresh
// unsaved thread for the given persona (the default persona when id is
// empty).
func (s *Service) StartNewThread(id domain.PersonaID) ([]*domain.Message, error) {
	p := persona.Default()
	if id != "" {
		var ok bool
		if p, ok = persona.Get(id); !ok {
			return nil, domain.ErrUnknownPersona
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(p)
	return s.timelineLocked(), nil
}

// SelectThread loads a stored thread and makes it the active timeline,
// appending a marker noting what was opened.
func (s *Service) SelectThread(id domain.ThreadID) ([]*domain.Message, error) {
	t, err := s.store.GetThread(id)
	if err != nil {
		return nil, err
	}
	p, ok := persona.Get(t.PersonaID)
	if !ok {
		p = persona.Default()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orphanStreamLocked()
	s.sessions.Invalidate()
	s.activeThread = t.ID
	s.activeTitle = t.Title
	s.activeCreated = t.CreatedAt
	s.activePersona = p
	s.messages = append(t.Messages, &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Sender:    domain.SenderHistory,
		Text:      fmt.Sprintf("Opened: %q (Persona: %s).", t.Title, p.Name),
		CreatedAt: time.Now(),
		PersonaID: p.ID,
	})
	return s.timelineLocked(), nil
}

// DeleteThread removes a thread from the store. Deleting the active
// thread falls back to the most recently updated remaining thread, or
// to a fresh conversation when none is left.
func (s *Service) DeleteThread(id domain.ThreadID) error {
	if err := s.store.DeleteThread(id); err != nil {
		return err
	}
	s.mu.Lock()
	wasActive := s.activeThread == id
	p := s.activePersona
	s.mu.Unlock()
	if !wasActive {
		return nil
	}

	remaining, err := s.store.ListThreads()
	if err == nil && len(remaining) > 0 {
		if _, err := s.SelectThread(remaining[0].ID); err == nil {
			return nil
		}
	}
	s.mu.Lock()
	s.resetLocked(p)
	s.mu.Unlock()
	return nil
}

// RenameThread updates a stored thread's title.
func (s *Service) RenameThread(id domain.ThreadID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	t, err := s.store.GetThread(id)
	if err != nil {
		return err
	}
	t.Title = title
	t.LastUpdatedAt = time.Now()
	if err := s.store.UpdateThread(t); err != nil {
		return err
	}
	s.mu.Lock()
	if s.activeThread == id {
		s.activeTitle = title
	}
	s.mu.Unlock()
	return nil
}

// SwitchPersona changes the active persona mid-thread, appending a
// marker with the new persona's greeting. The next turn seeds a new
// model session with the new system prompt over the shared history.
func (s *Service) SwitchPersona(id domain.PersonaID, sink TurnSink) error {
	p, ok := persona.Get(id)
	if !ok {
		return domain.ErrUnknownPersona
	}
	s.mu.Lock()
	if s.activePersona.ID == p.ID {
		s.mu.Unlock()
		return nil
	}
	s.orphanStreamLocked()
	s.sessions.Invalidate()
	s.activePersona = p
	marker := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Sender:    domain.SenderSystem,
		Text:      fmt.Sprintf("Switched to %s. %s", p.Name, p.Greeting),
		CreatedAt: time.Now(),
		PersonaID: p.ID,
	}
	s.messages = append(s.messages, marker)
	committed := s.activeThread != ""
	s.mu.Unlock()

	// A committed thread records its new persona binding right away.
	if committed {
		if err := s.commit(); err != nil {
			s.logger.Error("thread commit failed", "error", err)
		}
	}
	notify(sink, TurnEvent{Type: "message", Message: marker.Clone()})
	return nil
}

// Timeline returns a copy of the active message list.
func (s *Service) Timeline() []*domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timelineLocked()
}

func (s *Service) timelineLocked() []*domain.Message {
	out := make([]*domain.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

// ActiveThreadID returns the id of the active thread, empty while the
// thread has not been committed yet.
func (s *Service) ActiveThreadID() domain.ThreadID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeThread
}

// ActivePersona returns the persona currently answering.
func (s *Service) ActivePersona() domain.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePersona
}

// Threads lists stored threads, most recent first.
func (s *Service) Threads() ([]*domain.ChatThread, error) {
	return s.store.ListThreads()
}

// SendMessage runs one full conversation turn: it appends the user
// message and a typing placeholder, streams the model's answer into
// the placeholder, then finalizes and commits the thread. Returns
// domain.ErrTurnInFlight if a stream is already running.
func (s *Service) SendMessage(ctx context.Context, text string, file *domain.FileData, sink TurnSink) error {
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return domain.ErrTurnInFlight
	}
	p := s.activePersona
	history := projectHistory(s.messages)
	now := time.Now()
	userMsg := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Sender:    domain.SenderUser,
		Text:      text,
		CreatedAt: now,
		File:      file,
	}
	placeholder := &domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		Sender:    domain.SenderAssistant,
		Text:      fmt.Sprintf("%s is typing... %s", p.Name, streamCursor),
		CreatedAt: now,
		PersonaID: p.ID,
		Typing:    true,
	}
	s.messages = append(s.messages, userMsg, placeholder)
	s.streaming = true
	s.serial++
	tag := streamTag{thread: s.activeThread, persona: p.ID, serial: s.serial}
	s.tag = tag
	s.mu.Unlock()

	notify(sink, TurnEvent{Type: "message", Message: userMsg.Clone()})
	notify(sink, TurnEvent{Type: "message", Message: placeholder.Clone()})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.sessions.Ensure(ctx, p, history)
	if err != nil {
		return s.failTurn(tag, placeholder.ID, err, sink)
	}
	stream, err := sess.SendStream(ctx, text, file)
	if err != nil {
		return s.failTurn(tag, placeholder.ID, err, sink)
	}

	var accumulated strings.Builder
	var final *domain.StreamChunk
	for chunk := range stream {
		if chunk.Err != nil {
			return s.failTurn(tag, placeholder.ID, chunk.Err, sink)
		}
		if chunk.Final {
			c := chunk
			final = &c
			continue
		}
		accumulated.WriteString(chunk.Text)
		parsed := suggest.Parse(accumulated.String())
		updated, ok := s.applyText(tag, placeholder.ID, parsed.Main+streamCursor, true)
		if !ok {
			// Timeline moved on underneath this stream; drop it.
			return nil
		}
		notify(sink, TurnEvent{Type: "update", Message: updated})
	}
	if final == nil {
		if err := ctx.Err(); err != nil {
			return s.failTurn(tag, placeholder.ID, err, sink)
		}
		return s.failTurn(tag, placeholder.ID, fmt.Errorf("model stream ended without a terminal chunk"), sink)
	}

	parsed := suggest.Parse(accumulated.String())
	finalMsg, ok := s.finalizeTurn(tag, placeholder.ID, parsed, final.Sources)
	if !ok {
		return nil
	}
	if err := s.commit(); err != nil {
		s.logger.Error("thread commit failed", "error", err)
	}
	notify(sink, TurnEvent{Type: "update", Message: finalMsg})
	notify(sink, TurnEvent{Type: "done"})
	return nil
}

// applyText rewrites the placeholder's text if the stream still owns
// the timeline. Reports false when the stream went stale.
func (s *Service) applyText(tag streamTag, id domain.MessageID, text string, typing bool) (*domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming || s.tag != tag {
		return nil, false
	}
	m := s.findLocked(id)
	if m == nil {
		return nil, false
	}
	m.Text = text
	m.Typing = typing
	return m.Clone(), true
}

// finalizeTurn fixes the placeholder into its final form and releases
// the streaming slot.
func (s *Service) finalizeTurn(tag streamTag, id domain.MessageID, parsed suggest.Parsed, sources []domain.GroundingSource) (*domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming || s.tag != tag {
		return nil, false
	}
	m := s.findLocked(id)
	if m == nil {
		return nil, false
	}
	m.Text = parsed.Main
	m.Suggestions = parsed.Suggestions
	m.Sources = sources
	m.Typing = false
	s.streaming = false
	return m.Clone(), true
}

// failTurn converts a backend failure into a user-visible message in
// place of the placeholder, commits what we have, and drops the model
// session so the next turn starts clean.
func (s *Service) failTurn(tag streamTag, id domain.MessageID, cause error, sink TurnSink) error {
	s.logger.Warn("turn failed", "error", cause)
	s.sessions.Invalidate()

	s.mu.Lock()
	if !s.streaming || s.tag != tag {
		s.mu.Unlock()
		return nil
	}
	m := s.findLocked(id)
	if m == nil {
		s.mu.Unlock()
		return nil
	}
	m.Text = s.redact(cause)
	m.Typing = false
	s.streaming = false
	failed := m.Clone()
	committed := s.activeThread != ""
	s.mu.Unlock()

	// An already-stored thread keeps its failed turn visible across
	// restarts; a thread that never produced a successful turn is not
	// created for its error alone.
	if committed {
		if err := s.commit(); err != nil {
			s.logger.Error("thread commit failed", "error", err)
		}
	}
	notify(sink, TurnEvent{Type: "update", Message: failed})
	notify(sink, TurnEvent{Type: "error", Err: cause})
	notify(sink, TurnEvent{Type: "done"})
	return nil
}

func (s *Service) findLocked(id domain.MessageID) *domain.Message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// commit persists the active timeline: the first commit creates the
// thread with a title derived from the first user message, later ones
// update it in place.
func (s *Service) commit() error {
	s.mu.Lock()
	now := time.Now()
	creating := s.activeThread == ""
	if creating {
		s.activeThread = domain.ThreadID(uuid.NewString())
		s.activeCreated = now
		s.activeTitle = deriveTitle(s.messages)
	}
	// Only settled messages are persisted; a placeholder from a turn
	// that started after this one finished stays out of the snapshot.
	settled := make([]*domain.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Typing {
			continue
		}
		settled = append(settled, m.Clone())
	}
	t := &domain.ChatThread{
		ID:            s.activeThread,
		Title:         s.activeTitle,
		Messages:      settled,
		CreatedAt:     s.activeCreated,
		LastUpdatedAt: now,
		PersonaID:     s.activePersona.ID,
		SystemPrompt:  s.activePersona.SystemPrompt,
		Model:         s.activePersona.Model,
	}
	s.mu.Unlock()

	if creating {
		return s.store.CreateThread(t)
	}
	return s.store.UpdateThread(t)
}

// deriveTitle names a thread after its first user message, trimmed to
// a sidebar-friendly length.
func deriveTitle(messages []*domain.Message) string {
	for _, m := range messages {
		if m.Sender != domain.SenderUser {
			continue
		}
		title := strings.TrimSpace(m.Text)
		if title == "" {
			continue
		}
		runes := []rune(title)
		if len(runes) > maxTitleRunes {
			return string(runes[:maxTitleRunes]) + "..."
		}
		return title
	}
	return defaultTitle
}

// lastUserMessage finds the most recent user turn for auto-forwarding.
func (s *Service) lastUserMessage() (*domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Sender == domain.SenderUser {
			return s.messages[i].Clone(), true
		}
	}
	return nil, false
}

func notify(sink TurnSink, ev TurnEvent) {
	if sink != nil {
		sink(ev)
	}
}
