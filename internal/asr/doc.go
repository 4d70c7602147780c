// Package asr implements the HTTP client for the speech-to-text backend.
// It uploads WAV audio as multipart form data, bounds concurrent model
// invocations, and parses timed transcript segments from the verbose
// JSON response.
package asr
