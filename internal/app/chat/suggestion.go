package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hempbis/hempbis-agent/internal/domain"
	"github.com/hempbis/hempbis-agent/internal/persona"
)

// HandleSuggestion runs a clicked follow-up suggestion. Three shapes
// exist: an auto-forward suggestion switches persona and resubmits the
// user's last question to the new expert, a plain switch suggestion
// only changes persona, and anything else is sent as a normal message.
func (s *Service) HandleSuggestion(ctx context.Context, text string, sink TurnSink) error {
	route := persona.RouteSuggestion(text)
	if route.PersonaID == "" {
		return s.SendMessage(ctx, text, nil, sink)
	}

	if route.AutoForward {
		last, ok := s.lastUserMessage()
		if !ok {
			p, _ := persona.Get(route.PersonaID)
			notice := &domain.Message{
				ID:        domain.MessageID(uuid.NewString()),
				Sender:    domain.SenderSystem,
				Text:      fmt.Sprintf("Could not find a previous question to forward to the %s.", p.Name),
				CreatedAt: time.Now(),
				PersonaID: route.PersonaID,
			}
			s.mu.Lock()
			s.messages = append(s.messages, notice)
			s.mu.Unlock()
			notify(sink, TurnEvent{Type: "message", Message: notice.Clone()})
			return domain.ErrNoPriorUserMessage
		}
		if err := s.SwitchPersona(route.PersonaID, sink); err != nil {
			return err
		}
		return s.SendMessage(ctx, last.Text, last.File, sink)
	}

	return s.SwitchPersona(route.PersonaID, sink)
}
