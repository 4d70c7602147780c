// Package session provides the in-memory session store and lifecycle
// handling for audio recording sessions. It owns all session state,
// serializes same-session mutation behind a per-session mutex, and
// expires idle sessions on a configurable timeout.
package session
