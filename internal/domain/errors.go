package domain

import "errors"

// All of these are recovered locally: each produces a visible system-attributed
// message and returns the orchestrator to idle.
var (
	// ErrConfigurationMissing means no usable backend credential is present.
	ErrConfigurationMissing = errors.New("model backend configuration missing")

	// ErrSessionCreationFailed means the backend rejected session init or the
	// projected history was malformed.
	ErrSessionCreationFailed = errors.New("model session creation failed")

	// ErrNoPriorUserMessage means an auto-forward was requested with no user
	// message to resubmit.
	ErrNoPriorUserMessage = errors.New("no prior user message to forward")

	// ErrTurnInFlight means a send arrived while a stream was still open.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	ErrThreadNotFound = errors.New("thread not found")
	ErrUnknownPersona = errors.New("unknown persona")
)
