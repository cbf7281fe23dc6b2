package domain

import "context"

// Turn is one projected history entry handed to the model backend.
type Turn struct {
	Role Sender // SenderUser or SenderAssistant only
	Text string
	File *FileData
}

// SessionParams describe the model conversation to create.
type SessionParams struct {
	Model        string
	SystemPrompt string
	History      []Turn
	EnableSearch bool
}

// StreamChunk is one event of a streamed model response, delivered in arrival
// order. Exactly one chunk has Final set; an error chunk is always final.
type StreamChunk struct {
	Text    string
	Sources []GroundingSource
	Final   bool
	Err     error
}

// ModelSession is a live model conversation bound to one persona's system
// prompt and a history snapshot. At most one stream may be open against a
// session at a time.
type ModelSession interface {
	SendStream(ctx context.Context, text string, file *FileData) (<-chan StreamChunk, error)
}

// ModelBackend defines how the core talks to the remote chat-completion
// service.
type ModelBackend interface {
	CreateSession(ctx context.Context, p SessionParams) (ModelSession, error)
}

// ThreadStore defines thread persistence. The orchestrator's finalize step is
// the single writer.
type ThreadStore interface {
	CreateThread(t *ChatThread) error
	UpdateThread(t *ChatThread) error
	GetThread(id ThreadID) (*ChatThread, error)
	ListThreads() ([]*ChatThread, error)
	DeleteThread(id ThreadID) error
}

// ThreadSnapshotter persists the full thread list as one blob: read once at
// startup, rewritten after every store mutation.
type ThreadSnapshotter interface {
	Load() ([]*ChatThread, error)
	Save(threads []*ChatThread) error
}
