package llm

import (
	"context"
	"sync"

	"github.com/hempbis/hempbis-agent/internal/domain"
)

// MockBackend is a scripted domain.ModelBackend for development mode
// and tests. Replies are consumed in order; once the script runs out,
// every send gets a canned echo.
type MockBackend struct {
	mu       sync.Mutex
	script   []MockReply
	Sessions []*MockSession
}

// MockReply is one scripted model turn.
type MockReply struct {
	Chunks  []string
	Sources []domain.GroundingSource
	Err     error
}

func NewMockBackend(script ...MockReply) *MockBackend {
	return &MockBackend{script: script}
}

// CreateSession implements domain.ModelBackend.
func (b *MockBackend) CreateSession(_ context.Context, p domain.SessionParams) (domain.ModelSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &MockSession{backend: b, Params: p}
	b.Sessions = append(b.Sessions, s)
	return s, nil
}

func (b *MockBackend) nextReply() MockReply {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.script) == 0 {
		return MockReply{Chunks: []string{"Namaste! This is a mock reply from the development model."}}
	}
	r := b.script[0]
	b.script = b.script[1:]
	return r
}

// MockSession records what was sent through it.
type MockSession struct {
	backend *MockBackend
	Params  domain.SessionParams

	mu    sync.Mutex
	Sent  []string
	Files []*domain.FileData
}

// SendStream implements domain.ModelSession.
func (s *MockSession) SendStream(ctx context.Context, text string, file *domain.FileData) (<-chan domain.StreamChunk, error) {
	s.mu.Lock()
	s.Sent = append(s.Sent, text)
	s.Files = append(s.Files, file)
	s.mu.Unlock()

	reply := s.backend.nextReply()
	out := make(chan domain.StreamChunk)
	go func() {
		defer close(out)
		if reply.Err != nil {
			emit(ctx, out, domain.StreamChunk{Err: reply.Err})
			return
		}
		for _, c := range reply.Chunks {
			if !emit(ctx, out, domain.StreamChunk{Text: c}) {
				return
			}
		}
		emit(ctx, out, domain.StreamChunk{Final: true, Sources: reply.Sources})
	}()
	return out, nil
}

// SentTexts returns a copy of the messages sent on this session.
func (s *MockSession) SentTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Sent))
	copy(out, s.Sent)
	return out
}
