package persona

import (
	"fmt"
	"strings"

	"github.com/hempbis/hempbis-agent/internal/domain"
)

// Route is the outcome of matching a suggestion against the persona
// switch patterns. A zero PersonaID means no match.
type Route struct {
	PersonaID   domain.PersonaID
	AutoForward bool
}

// RouteSuggestion inspects a follow-up suggestion the user clicked and
// decides whether it asks for a persona switch. Auto-forward phrasing
// ("Ask the X instead?") must match the whole suggestion and is checked
// against every persona before the softer switch phrasings, so an
// auto-forward for one persona can never be shadowed by a general
// pattern of another.
func RouteSuggestion(text string) Route {
	lowered := strings.ToLower(strings.TrimSpace(text))

	for _, p := range catalog {
		name := strings.ToLower(p.Name)
		if lowered == fmt.Sprintf("ask the %s instead?", name) {
			return Route{PersonaID: p.ID, AutoForward: true}
		}
	}

	for _, p := range catalog {
		name := strings.ToLower(p.Name)
		patterns := []string{
			fmt.Sprintf("switch to %s", name),
			fmt.Sprintf("consult the %s", name),
			fmt.Sprintf("%s's domain", name),
		}
		for _, pat := range patterns {
			if strings.Contains(lowered, pat) {
				return Route{PersonaID: p.ID}
			}
		}
	}

	return Route{}
}
