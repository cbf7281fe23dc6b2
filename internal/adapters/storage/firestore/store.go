// Package firestore persists threads in Cloud Firestore, one document
// per thread with its messages in a subcollection.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hempbis/hempbis-agent/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore-backed thread store for the given GCP
// project.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) threadsCol() *firestore.CollectionRef {
	return s.client.Collection("threads")
}

func (s *Store) threadDoc(id domain.ThreadID) *firestore.DocumentRef {
	return s.threadsCol().Doc(string(id))
}

func (s *Store) messagesCol(id domain.ThreadID) *firestore.CollectionRef {
	return s.threadDoc(id).Collection("messages")
}

type threadDoc struct {
	Title         string    `firestore:"title"`
	PersonaID     string    `firestore:"persona_id"`
	SystemPrompt  string    `firestore:"system_prompt"`
	Model         string    `firestore:"model"`
	CreatedAt     time.Time `firestore:"created_at"`
	LastUpdatedAt time.Time `firestore:"last_updated_at"`
}

type messageDoc struct {
	Sender      string                   `firestore:"sender"`
	Text        string                   `firestore:"text"`
	PersonaID   string                   `firestore:"persona_id"`
	CreatedAt   time.Time                `firestore:"created_at"`
	Suggestions []string                 `firestore:"suggestions"`
	Sources     []domain.GroundingSource `firestore:"sources"`
	FileName    string                   `firestore:"file_name"`
	FileMIME    string                   `firestore:"file_mime"`
	FileData    []byte                   `firestore:"file_data"`
}

func toMessageDoc(m *domain.Message) messageDoc {
	doc := messageDoc{
		Sender:      string(m.Sender),
		Text:        m.Text,
		PersonaID:   string(m.PersonaID),
		CreatedAt:   m.CreatedAt,
		Suggestions: m.Suggestions,
		Sources:     m.Sources,
	}
	if m.File != nil {
		doc.FileName = m.File.Name
		doc.FileMIME = m.File.MIMEType
		doc.FileData = m.File.Data
	}
	return doc
}

func fromMessageDoc(id domain.MessageID, doc messageDoc) *domain.Message {
	m := &domain.Message{
		ID:          id,
		Sender:      domain.Sender(doc.Sender),
		Text:        doc.Text,
		PersonaID:   domain.PersonaID(doc.PersonaID),
		CreatedAt:   doc.CreatedAt,
		Suggestions: doc.Suggestions,
		Sources:     doc.Sources,
	}
	if doc.FileName != "" || len(doc.FileData) > 0 {
		m.File = &domain.FileData{Name: doc.FileName, MIMEType: doc.FileMIME, Data: doc.FileData}
	}
	return m
}

func (s *Store) CreateThread(t *domain.ChatThread) error {
	ctx := context.Background()

	doc := threadDoc{
		Title:         t.Title,
		PersonaID:     string(t.PersonaID),
		SystemPrompt:  t.SystemPrompt,
		Model:         t.Model,
		CreatedAt:     t.CreatedAt,
		LastUpdatedAt: t.LastUpdatedAt,
	}
	if _, err := s.threadDoc(t.ID).Create(ctx, doc); err != nil {
		return fmt.Errorf("firestore CreateThread: %w", err)
	}
	return s.writeMessages(ctx, t)
}

func (s *Store) UpdateThread(t *domain.ChatThread) error {
	ctx := context.Background()

	doc := map[string]interface{}{
		"title":           t.Title,
		"persona_id":      string(t.PersonaID),
		"system_prompt":   t.SystemPrompt,
		"model":           t.Model,
		"created_at":      t.CreatedAt,
		"last_updated_at": t.LastUpdatedAt,
	}
	if _, err := s.threadDoc(t.ID).Set(ctx, doc, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore UpdateThread: %w", err)
	}
	return s.writeMessages(ctx, t)
}

// writeMessages upserts every message of the thread. Message documents
// are immutable once finalized, so rewriting existing ones is a no-op
// in content terms.
func (s *Store) writeMessages(ctx context.Context, t *domain.ChatThread) error {
	for _, m := range t.Messages {
		if _, err := s.messagesCol(t.ID).Doc(string(m.ID)).Set(ctx, toMessageDoc(m)); err != nil {
			return fmt.Errorf("firestore write message %s: %w", m.ID, err)
		}
	}
	return nil
}

func (s *Store) GetThread(id domain.ThreadID) (*domain.ChatThread, error) {
	ctx := context.Background()

	snap, err := s.threadDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrThreadNotFound
		}
		return nil, fmt.Errorf("firestore GetThread: %w", err)
	}

	var doc threadDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetThread decode: %w", err)
	}

	msgs, err := s.readMessages(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.ChatThread{
		ID:            id,
		Title:         doc.Title,
		Messages:      msgs,
		CreatedAt:     doc.CreatedAt,
		LastUpdatedAt: doc.LastUpdatedAt,
		PersonaID:     domain.PersonaID(doc.PersonaID),
		SystemPrompt:  doc.SystemPrompt,
		Model:         doc.Model,
	}, nil
}

func (s *Store) readMessages(ctx context.Context, id domain.ThreadID) ([]*domain.Message, error) {
	iter := s.messagesCol(id).OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore read messages: %w", err)
		}
		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		out = append(out, fromMessageDoc(domain.MessageID(snap.Ref.ID), doc))
	}
	return out, nil
}

// ListThreads returns thread metadata ordered by recency. Messages are
// loaded lazily through GetThread, not here.
func (s *Store) ListThreads() ([]*domain.ChatThread, error) {
	ctx := context.Background()

	iter := s.threadsCol().OrderBy("last_updated_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []*domain.ChatThread
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListThreads: %w", err)
		}
		var doc threadDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode threadDoc: %w", err)
		}
		out = append(out, &domain.ChatThread{
			ID:            domain.ThreadID(snap.Ref.ID),
			Title:         doc.Title,
			CreatedAt:     doc.CreatedAt,
			LastUpdatedAt: doc.LastUpdatedAt,
			PersonaID:     domain.PersonaID(doc.PersonaID),
			SystemPrompt:  doc.SystemPrompt,
			Model:         doc.Model,
		})
	}
	return out, nil
}

func (s *Store) DeleteThread(id domain.ThreadID) error {
	ctx := context.Background()

	iter := s.messagesCol(id).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return fmt.Errorf("firestore DeleteThread messages: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("firestore delete message: %w", err)
		}
	}

	if _, err := s.threadDoc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteThread: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
