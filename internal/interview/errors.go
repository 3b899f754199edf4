package interview

import "errors"

// Error taxonomy for lifecycle operations. Handlers select HTTP status codes
// with errors.Is against these sentinels; no raw gateway error crosses the
// manager boundary unwrapped.
var (
	// ErrInvalidInput marks malformed request parameters, e.g. a blank role.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidState marks a lifecycle call issued out of order.
	ErrInvalidState = errors.New("invalid session state")

	// ErrSessionBusy is returned when the session's exclusive lock cannot be
	// acquired within the configured bound.
	ErrSessionBusy = errors.New("session busy")

	// ErrEmptyAudio marks a zero-byte answer submission.
	ErrEmptyAudio = errors.New("empty audio")

	ErrTranscription      = errors.New("transcription unavailable")
	ErrEvaluation         = errors.New("evaluation unavailable")
	ErrQuestionGeneration = errors.New("question generation unavailable")
)
