package llm

import "strings"

const maxRedactedErrLen = 150

// RedactError maps raw model API failures to messages safe to surface
// in a chat timeline. Known failure classes get a stable explanation;
// anything else is truncated so stack traces and request payloads never
// reach the user.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "API_KEY_INVALID") || strings.Contains(msg, "API key not valid"):
		return "The configured API key is invalid. Please verify the key and restart the service."
	case strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "quota"):
		return "The model quota has been exhausted. Please try again later."
	case strings.Contains(msg, "history") && strings.Contains(msg, "role"):
		return "The conversation history could not be restored for the model. Starting a fresh exchange may help."
	}
	if len(msg) > maxRedactedErrLen {
		msg = msg[:maxRedactedErrLen] + "..."
	}
	return "The model request failed: " + msg
}
