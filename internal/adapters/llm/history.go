package llm

import (
	"google.golang.org/genai"

	"github.com/hempbis/hempbis-agent/internal/domain"
)

// historyContents converts stored turns into the wire history a new
// chat session is seeded with. Assistant turns map to the model role;
// everything else speaks as the user. File turns re-attach their bytes
// so the model keeps seeing previously uploaded documents.
func historyContents(turns []domain.Turn) []*genai.Content {
	if len(turns) == 0 {
		return nil
	}
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == domain.SenderAssistant {
			role = genai.RoleModel
		}
		text := t.Text
		if text == "" {
			// The API rejects empty parts; a single space preserves the
			// turn's position in the transcript.
			text = " "
		}
		parts := []*genai.Part{{Text: text}}
		if t.File != nil && len(t.File.Data) > 0 {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: t.File.MIMEType,
					Data:     t.File.Data,
				},
			})
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}
