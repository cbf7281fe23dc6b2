// Package persona holds the catalog of assistant personas and the
// routing rules that move a conversation between them.
package persona

import "github.com/hempbis/hempbis-agent/internal/domain"

const defaultModel = "gemini-2.5-flash"

// catalog is ordered; the first entry is the default persona.
var catalog = []domain.Persona{
	{
		ID:           domain.PersonaHempbisAI,
		Name:         "Hempbis AI",
		Description:  "Your general guide to the world of cannabis and hemp in India.",
		SystemPrompt: basePrompt,
		Model:        defaultModel,
		Greeting:     "Namaste! How can I assist you today?",
		Accent:       "emerald",
		Placeholder:  "Ask Hempbis AI anything...",
		Starters: []string{
			"What is the difference between hemp and cannabis?",
			"Tell me about the uses of hemp seeds.",
			"Is CBD legal in India?",
		},
	},
	{
		ID:           domain.PersonaResearchScientist,
		Name:         "Research Scientist",
		Description:  "In-depth scientific analysis, grounded by Google Search for recent findings.",
		SystemPrompt: expertBasePrompt + researchFocus,
		Model:        defaultModel,
		Greeting:     "Namaste. I am the Research Scientist persona. Which scientific aspect of cannabis or hemp shall we analyze today?",
		Accent:       "sky",
		Placeholder:  "Ask about phytochemistry, genetics, studies...",
		Starters: []string{
			"Explain the entourage effect.",
			"What are the latest findings on CBG?",
			"How does HPLC analysis of cannabinoids work?",
		},
	},
	{
		ID:           domain.PersonaCultivator,
		Name:         "Cultivator Expert",
		Description:  "Practical agronomy advice for cultivating hemp in Indian conditions.",
		SystemPrompt: expertBasePrompt + cultivatorFocus,
		Model:        defaultModel,
		Greeting:     "Namaskar! I am the Cultivator Expert. Tell me about your growing conditions, and let's get started.",
		Accent:       "lime",
		Placeholder:  "Ask about soil, pests, irrigation, seasons...",
		Starters: []string{
			"Which hemp varieties suit black cotton soil?",
			"How do I manage pests organically?",
			"When is the best time to sow hemp in North India?",
		},
	},
	{
		ID:           domain.PersonaPolicyLaw,
		Name:         "Policy & Law Expert",
		Description:  "The Indian legal and regulatory landscape for cannabis and hemp.",
		SystemPrompt: expertBasePrompt + policyFocus,
		Model:        defaultModel,
		Greeting:     "Namaste. I am the Policy & Law Expert persona. Please note my responses are for general understanding and not legal advice. What would you like to know?",
		Accent:       "amber",
		Placeholder:  "Ask about the NDPS Act, licensing, state policies...",
		Starters: []string{
			"Summarize the NDPS Act's stance on hemp.",
			"Which Indian states permit hemp cultivation?",
			"What licenses does a hemp food business need?",
		},
	},
}

// All returns the personas in their canonical display order.
func All() []domain.Persona {
	out := make([]domain.Persona, len(catalog))
	copy(out, catalog)
	return out
}

// Get looks a persona up by ID.
func Get(id domain.PersonaID) (domain.Persona, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Persona{}, false
}

// Default returns the persona new threads start with.
func Default() domain.Persona {
	return catalog[0]
}

// SearchEnabled reports whether a persona's model sessions should carry
// the Google Search grounding tool.
func SearchEnabled(id domain.PersonaID) bool {
	return id == domain.PersonaResearchScientist
}
