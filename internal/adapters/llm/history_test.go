package llm

import (
	"testing"

	"google.golang.org/genai"

	"github.com/hempbis/hempbis-agent/internal/domain"
)

func TestHistoryContentsRoles(t *testing.T) {
	turns := []domain.Turn{
		{Role: domain.SenderUser, Text: "hello"},
		{Role: domain.SenderAssistant, Text: "hi there"},
	}
	contents := historyContents(turns)
	if len(contents) != 2 {
		t.Fatalf("got %d contents, want 2", len(contents))
	}
	if contents[0].Role != genai.RoleUser {
		t.Fatalf("first role = %q", contents[0].Role)
	}
	if contents[1].Role != genai.RoleModel {
		t.Fatalf("second role = %q", contents[1].Role)
	}
}

func TestHistoryContentsEmptyTextBecomesSpace(t *testing.T) {
	contents := historyContents([]domain.Turn{{Role: domain.SenderAssistant, Text: ""}})
	if got := contents[0].Parts[0].Text; got != " " {
		t.Fatalf("text = %q, want single space", got)
	}
}

func TestHistoryContentsFileAttachment(t *testing.T) {
	turns := []domain.Turn{{
		Role: domain.SenderUser,
		Text: "see attached",
		File: &domain.FileData{Name: "report.pdf", MIMEType: "application/pdf", Data: []byte{1, 2, 3}},
	}}
	contents := historyContents(turns)
	if len(contents[0].Parts) != 2 {
		t.Fatalf("got %d parts, want text plus blob", len(contents[0].Parts))
	}
	blob := contents[0].Parts[1].InlineData
	if blob == nil || blob.MIMEType != "application/pdf" || len(blob.Data) != 3 {
		t.Fatalf("blob = %+v", blob)
	}
}

func TestHistoryContentsEmpty(t *testing.T) {
	if got := historyContents(nil); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
