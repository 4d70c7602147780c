package session

import "errors"

// Error kinds surfaced to the tool-call boundary as structured error
// responses. Callers match with errors.Is.
var (
	// ErrDuplicateSession is returned when starting a session whose
	// identifier is already live in the store.
	ErrDuplicateSession = errors.New("session already exists")

	// ErrUnknownSession is returned for any operation referencing a
	// session identifier not present in the store.
	ErrUnknownSession = errors.New("session not found")

	// ErrTooManySessions is returned when the concurrent session limit
	// would be exceeded.
	ErrTooManySessions = errors.New("too many concurrent sessions")

	// ErrNoAudioData is returned by Finalize when a session holds no
	// audio chunks.
	ErrNoAudioData = errors.New("no audio data in session")
)
