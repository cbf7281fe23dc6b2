// Package llm adapts the Gemini API to the model ports the chat and
// digest services consume, plus a scripted mock for development and
// tests.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hempbis/hempbis-agent/internal/domain"
)

// GeminiBackend creates streaming chat sessions against the Gemini
// developer API.
type GeminiBackend struct {
	client *genai.Client
}

// NewGeminiBackend builds a backend from an API key.
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, domain.ErrConfigurationMissing
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

// CreateSession implements domain.ModelBackend. The session is seeded
// with the projected history so a restored thread continues where it
// left off.
func (b *GeminiBackend) CreateSession(ctx context.Context, p domain.SessionParams) (domain.ModelSession, error) {
	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.SystemPrompt, genai.RoleUser),
		Temperature:       &temp,
	}
	if p.EnableSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	chat, err := b.client.Chats.Create(ctx, p.Model, cfg, historyContents(p.History))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionCreationFailed, RedactError(err))
	}
	return &geminiSession{chat: chat}, nil
}

type geminiSession struct {
	chat *genai.Chat
}

// SendStream implements domain.ModelSession. Chunks are pushed on the
// returned channel as the model produces them; the final chunk carries
// Final=true, or Err on failure. The channel is closed when the turn
// ends or ctx is cancelled.
func (s *geminiSession) SendStream(ctx context.Context, text string, file *domain.FileData) (<-chan domain.StreamChunk, error) {
	parts := []genai.Part{{Text: text}}
	if file != nil && len(file.Data) > 0 {
		parts = append(parts, genai.Part{
			InlineData: &genai.Blob{
				MIMEType: file.MIMEType,
				Data:     file.Data,
			},
		})
	}

	out := make(chan domain.StreamChunk)
	go func() {
		defer close(out)
		var sources []domain.GroundingSource
		seen := map[string]bool{}
		for resp, err := range s.chat.SendMessageStream(ctx, parts...) {
			if err != nil {
				emit(ctx, out, domain.StreamChunk{Err: err})
				return
			}
			chunk := domain.StreamChunk{Text: resp.Text()}
			for _, src := range groundingSources(resp) {
				if !seen[src.URI] {
					seen[src.URI] = true
					sources = append(sources, src)
				}
			}
			if !emit(ctx, out, chunk) {
				return
			}
		}
		emit(ctx, out, domain.StreamChunk{Final: true, Sources: sources})
	}()
	return out, nil
}

func emit(ctx context.Context, out chan<- domain.StreamChunk, c domain.StreamChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// groundingSources pulls web citations out of a streamed response when
// the search tool grounded it.
func groundingSources(resp *genai.GenerateContentResponse) []domain.GroundingSource {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []domain.GroundingSource
	for _, ch := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if ch.Web == nil || ch.Web.URI == "" {
			continue
		}
		title := ch.Web.Title
		if title == "" {
			title = ch.Web.URI
		}
		out = append(out, domain.GroundingSource{URI: ch.Web.URI, Title: title})
	}
	return out
}
