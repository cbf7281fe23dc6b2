// Package suggest extracts follow-up suggestions from model output.
// Personas are instructed to wrap suggestions between sentinel markers;
// everything outside the markers is the answer shown to the user.
package suggest

import (
	"strings"

	"github.com/hempbis/hempbis-agent/internal/persona"
)

// Parsed is a model response split into its visible text and any
// follow-up suggestions the model proposed.
type Parsed struct {
	Main        string
	Suggestions []string
}

// Parse splits raw model output on the suggestion markers. When the
// markers are absent or malformed the whole text is treated as the
// answer, so a model that forgets the protocol still renders cleanly.
func Parse(raw string) Parsed {
	start := strings.Index(raw, persona.SuggestionsStartMarker)
	if start < 0 {
		return Parsed{Main: strings.TrimSpace(raw)}
	}
	rest := raw[start+len(persona.SuggestionsStartMarker):]
	end := strings.Index(rest, persona.SuggestionsEndMarker)
	if end < 0 {
		return Parsed{Main: strings.TrimSpace(raw)}
	}

	// Everything from the start marker onward is protocol, not answer;
	// stray text after the end marker is discarded with it.
	main := strings.TrimSpace(raw[:start])

	var suggestions []string
	for _, line := range strings.Split(rest[:end], "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			suggestions = append(suggestions, line)
		}
	}

	return Parsed{Main: main, Suggestions: suggestions}
}

// StripMarkers removes a suggestion block without collecting the
// suggestions. Used where model output feeds another model rather than
// the user, such as digest synthesis.
func StripMarkers(raw string) string {
	return Parse(raw).Main
}
