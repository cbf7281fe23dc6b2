package digest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hempbis/hempbis-agent/internal/domain"
)

// replyByPrompt answers each send based on its system prompt, so the
// parallel fan-out stays deterministic.
type replyByPrompt struct {
	fail domain.PersonaID
}

func (b *replyByPrompt) CreateSession(_ context.Context, p domain.SessionParams) (domain.ModelSession, error) {
	return &promptSession{params: p, backend: b}, nil
}

type promptSession struct {
	params  domain.SessionParams
	backend *replyByPrompt
}

func (s *promptSession) SendStream(ctx context.Context, text string, _ *domain.FileData) (<-chan domain.StreamChunk, error) {
	out := make(chan domain.StreamChunk, 2)
	go func() {
		defer close(out)
		if s.backend.fail != "" && strings.Contains(s.params.SystemPrompt, focusFor(s.backend.fail)) {
			out <- domain.StreamChunk{Err: errors.New("expert unavailable")}
			return
		}
		label := "general"
		switch {
		case strings.Contains(s.params.SystemPrompt, "RESEARCH SCIENTIST"):
			label = "science"
		case strings.Contains(s.params.SystemPrompt, "CULTIVATOR"):
			label = "cultivation"
		case strings.Contains(s.params.SystemPrompt, "POLICY & LAW"):
			label = "policy"
		}
		out <- domain.StreamChunk{Text: label + " take on " + shortID(text)}
		out <- domain.StreamChunk{Final: true}
	}()
	return out, nil
}

func focusFor(id domain.PersonaID) string {
	switch id {
	case domain.PersonaResearchScientist:
		return "RESEARCH SCIENTIST"
	case domain.PersonaCultivator:
		return "CULTIVATOR"
	case domain.PersonaPolicyLaw:
		return "POLICY & LAW"
	}
	return ""
}

func shortID(text string) string {
	if len(text) > 20 {
		return text[:20]
	}
	return text
}

func TestGenerateAssemblesAllSections(t *testing.T) {
	svc := NewService(&replyByPrompt{}, slog.New(slog.DiscardHandler))
	d, err := svc.Generate(context.Background(), "hemp licensing updates")
	if err != nil {
		t.Fatal(err)
	}
	if d.Topic != "hemp licensing updates" {
		t.Fatalf("topic = %q", d.Topic)
	}
	if len(d.Sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(d.Sections))
	}
	wantOrder := []domain.PersonaID{
		domain.PersonaResearchScientist,
		domain.PersonaCultivator,
		domain.PersonaPolicyLaw,
	}
	for i, sec := range d.Sections {
		if sec.PersonaID != wantOrder[i] {
			t.Fatalf("section %d persona = %q, want %q", i, sec.PersonaID, wantOrder[i])
		}
		if sec.Content == "" {
			t.Fatalf("section %d empty", i)
		}
	}
	if !strings.HasPrefix(d.Editorial, "general take") {
		t.Fatalf("editorial = %q, want general persona output", d.Editorial)
	}
}

func TestGenerateDefaultTopic(t *testing.T) {
	svc := NewService(&replyByPrompt{}, slog.New(slog.DiscardHandler))
	d, err := svc.Generate(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if d.Topic == "" || strings.TrimSpace(d.Topic) != d.Topic {
		t.Fatalf("topic = %q", d.Topic)
	}
}

func TestGenerateFailsWhenExpertFails(t *testing.T) {
	svc := NewService(&replyByPrompt{fail: domain.PersonaCultivator}, slog.New(slog.DiscardHandler))
	_, err := svc.Generate(context.Background(), "anything")
	if err == nil || !strings.Contains(err.Error(), "cultivator_agronomist") {
		t.Fatalf("err = %v, want cultivator section failure", err)
	}
}
