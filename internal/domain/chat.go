package domain

// Persona pairs a system prompt and model with display metadata. Defined at
// process start; never mutated.
type Persona struct {
	ID           PersonaID
	Name         string
	Description  string
	SystemPrompt string
	Model        string
	Greeting     string

	// Display metadata, forwarded to the UI untouched.
	Accent      string
	Placeholder string
	Starters    []string
}

// GroundingSource is a web citation attached to an assistant message when the
// backend grounded its answer with search.
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// FileData is an inline file payload attached to a user message.
type FileData struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Message is one entry in a thread timeline.
type Message struct {
	ID        MessageID `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"created_at"`

	// Attribution for assistant and system messages. Fixed once finalized.
	PersonaID PersonaID `json:"persona_id,omitempty"`

	// Suggestions stay empty until the terminal chunk of a stream, then fixed.
	Suggestions []string          `json:"suggestions,omitempty"`
	Sources     []GroundingSource `json:"sources,omitempty"`
	File        *FileData         `json:"file,omitempty"`

	// Typing marks an in-flight placeholder. Never true on a persisted message.
	Typing bool `json:"typing,omitempty"`
}

// Clone returns a shallow copy with its own suggestion and source slices.
func (m *Message) Clone() *Message {
	cp := *m
	if m.Suggestions != nil {
		cp.Suggestions = append([]string(nil), m.Suggestions...)
	}
	if m.Sources != nil {
		cp.Sources = append([]GroundingSource(nil), m.Sources...)
	}
	return &cp
}

// ChatThread is an ordered message log bound to a persona. Only finalized
// messages are ever stored; LastUpdatedAt increases on every mutation.
type ChatThread struct {
	ID            ThreadID   `json:"id"`
	Title         string     `json:"title"`
	Messages      []*Message `json:"messages"`
	CreatedAt     Timestamp  `json:"created_at"`
	LastUpdatedAt Timestamp  `json:"last_updated_at"`

	PersonaID    PersonaID `json:"persona_id"`
	SystemPrompt string    `json:"system_prompt"`
	Model        string    `json:"model"`
}
