// Package digest produces an on-demand editorial digest by fanning a
// topic out to every expert persona and synthesizing their takes.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hempbis/hempbis-agent/internal/domain"
	"github.com/hempbis/hempbis-agent/internal/persona"
	"github.com/hempbis/hempbis-agent/internal/suggest"
)

const defaultTopic = "notable recent developments in cannabis and hemp in India"

// Section is one expert's contribution to a digest.
type Section struct {
	PersonaID domain.PersonaID `json:"persona_id"`
	Name      string           `json:"name"`
	Content   string           `json:"content"`
}

// Digest is the assembled result.
type Digest struct {
	Topic       string    `json:"topic"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []Section `json:"sections"`
	Editorial   string    `json:"editorial"`
}

type Service struct {
	backend domain.ModelBackend
	logger  *slog.Logger
}

func NewService(backend domain.ModelBackend, logger *slog.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

// Generate asks the three expert personas about the topic in parallel,
// then has the general persona write an editorial over their answers.
// Any failing expert aborts the whole digest.
func (s *Service) Generate(ctx context.Context, topic string) (*Digest, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = defaultTopic
	}

	experts := []domain.PersonaID{
		domain.PersonaResearchScientist,
		domain.PersonaCultivator,
		domain.PersonaPolicyLaw,
	}

	sections := make([]Section, len(experts))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range experts {
		g.Go(func() error {
			p, ok := persona.Get(id)
			if !ok {
				return domain.ErrUnknownPersona
			}
			prompt := fmt.Sprintf(
				"Write a concise digest section (3-5 paragraphs) from your expert perspective on: %s. Do not greet; start directly with the content.",
				topic,
			)
			text, err := s.ask(gctx, p, prompt)
			if err != nil {
				return fmt.Errorf("digest section %s: %w", id, err)
			}
			sections[i] = Section{PersonaID: p.ID, Name: p.Name, Content: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	editorial, err := s.synthesize(ctx, topic, sections)
	if err != nil {
		return nil, err
	}

	return &Digest{
		Topic:       topic,
		GeneratedAt: time.Now(),
		Sections:    sections,
		Editorial:   editorial,
	}, nil
}

// synthesize turns the expert sections into one editorial via the
// general persona.
func (s *Service) synthesize(ctx context.Context, topic string, sections []Section) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Below are three expert digest sections on %q. Write a short editorial introduction (2-3 paragraphs) that ties them together for a general reader. Do not greet; start directly with the content.\n", topic)
	for _, sec := range sections {
		fmt.Fprintf(&b, "\n## %s\n%s\n", sec.Name, sec.Content)
	}
	text, err := s.ask(ctx, persona.Default(), b.String())
	if err != nil {
		return "", fmt.Errorf("digest editorial: %w", err)
	}
	return text, nil
}

// ask runs a single one-shot turn against a fresh session for p and
// returns the full answer with any suggestion block stripped.
func (s *Service) ask(ctx context.Context, p domain.Persona, prompt string) (string, error) {
	sess, err := s.backend.CreateSession(ctx, domain.SessionParams{
		Model:        p.Model,
		SystemPrompt: p.SystemPrompt,
		EnableSearch: persona.SearchEnabled(p.ID),
	})
	if err != nil {
		return "", err
	}
	stream, err := sess.SendStream(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	var full strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		full.WriteString(chunk.Text)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return suggest.StripMarkers(full.String()), nil
}
