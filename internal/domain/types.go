package domain

import "time"

type ThreadID string
type MessageID string
type PersonaID string

// The persona set is closed: unknown ids are rejected at the boundary.
const (
	PersonaHempbisAI         PersonaID = "hempbis_ai"
	PersonaResearchScientist PersonaID = "research_scientist"
	PersonaCultivator        PersonaID = "cultivator_agronomist"
	PersonaPolicyLaw         PersonaID = "policy_law_expert"
)

// Known reports whether id names one of the built-in personas.
func (id PersonaID) Known() bool {
	switch id {
	case PersonaHempbisAI, PersonaResearchScientist, PersonaCultivator, PersonaPolicyLaw:
		return true
	}
	return false
}

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"       // errors, announcements
	SenderHistory   Sender = "history_info" // thread lifecycle notices
)

type Timestamp = time.Time
