// Package memory keeps threads in process memory, optionally mirrored
// to a snapshot blob after every mutation.
package memory

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/hempbis/hempbis-agent/internal/domain"
)

// ThreadStore is an in-memory domain.ThreadStore. When built with a
// snapshotter it loads the previous state at construction and rewrites
// the snapshot after each mutation, so restarts keep their threads.
type ThreadStore struct {
	mu       sync.RWMutex
	threads  map[domain.ThreadID]*domain.ChatThread
	snapshot domain.ThreadSnapshotter
	logger   *slog.Logger
}

// NewThreadStore builds a store. snapshot may be nil for a purely
// volatile store. A snapshot that fails to load is logged and ignored;
// the store starts empty rather than refusing to boot.
func NewThreadStore(snapshot domain.ThreadSnapshotter, logger *slog.Logger) *ThreadStore {
	s := &ThreadStore{
		threads:  make(map[domain.ThreadID]*domain.ChatThread),
		snapshot: snapshot,
		logger:   logger,
	}
	if snapshot != nil {
		loaded, err := snapshot.Load()
		if err != nil {
			logger.Warn("thread snapshot unreadable, starting empty", "error", err)
		} else {
			for _, t := range loaded {
				s.threads[t.ID] = t
			}
		}
	}
	return s
}

func (s *ThreadStore) CreateThread(t *domain.ChatThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[t.ID] = cloneThread(t)
	return s.persistLocked()
}

func (s *ThreadStore) UpdateThread(t *domain.ChatThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[t.ID]; !ok {
		return domain.ErrThreadNotFound
	}
	s.threads[t.ID] = cloneThread(t)
	return s.persistLocked()
}

func (s *ThreadStore) GetThread(id domain.ThreadID) (*domain.ChatThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, domain.ErrThreadNotFound
	}
	return cloneThread(t), nil
}

// ListThreads returns all threads, most recently updated first.
func (s *ThreadStore) ListThreads() ([]*domain.ChatThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ChatThread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, cloneThread(t))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdatedAt.After(out[j].LastUpdatedAt)
	})
	return out, nil
}

func (s *ThreadStore) DeleteThread(id domain.ThreadID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return domain.ErrThreadNotFound
	}
	delete(s.threads, id)
	return s.persistLocked()
}

// persistLocked mirrors the current state to the snapshot. Snapshot
// failures are logged, not returned: the in-memory state is already
// updated and remains authoritative for this process.
func (s *ThreadStore) persistLocked() error {
	if s.snapshot == nil {
		return nil
	}
	all := make([]*domain.ChatThread, 0, len(s.threads))
	for _, t := range s.threads {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastUpdatedAt.After(all[j].LastUpdatedAt)
	})
	if err := s.snapshot.Save(all); err != nil {
		s.logger.Warn("thread snapshot save failed", "error", err)
	}
	return nil
}

func cloneThread(t *domain.ChatThread) *domain.ChatThread {
	cp := *t
	cp.Messages = make([]*domain.Message, len(t.Messages))
	for i, m := range t.Messages {
		cp.Messages[i] = m.Clone()
	}
	return &cp
}
