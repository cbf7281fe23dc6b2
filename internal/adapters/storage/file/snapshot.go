// Package file persists the thread list as a single keyed JSON blob on
// disk.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hempbis/hempbis-agent/internal/domain"
)

// SnapshotKey versions the blob format. A blob written under a
// different key is discarded on load instead of being migrated.
const SnapshotKey = "hempbisAiChatThreads_v4_dark"

type snapshotBlob struct {
	Key     string               `json:"key"`
	Threads []*domain.ChatThread `json:"threads"`
}

// Snapshot is a domain.ThreadSnapshotter backed by one JSON file.
type Snapshot struct {
	path string
}

func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

// Load reads the blob. A missing file, malformed JSON, or a key
// mismatch all yield an empty thread list with no error; only real I/O
// failures are reported.
func (s *Snapshot) Load() ([]*domain.ChatThread, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading thread snapshot: %w", err)
	}
	var blob snapshotBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, nil
	}
	if blob.Key != SnapshotKey {
		return nil, nil
	}
	return blob.Threads, nil
}

// Save writes the blob atomically via a temp file rename.
func (s *Snapshot) Save(threads []*domain.ChatThread) error {
	blob := snapshotBlob{Key: SnapshotKey, Threads: threads}
	raw, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encoding thread snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".threads-*.json")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing thread snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing thread snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing thread snapshot: %w", err)
	}
	return nil
}
