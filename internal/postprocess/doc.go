// Package postprocess implements the optional language-model cleanup
// pass over assembled transcripts. Failures degrade gracefully to the
// unprocessed text and are never surfaced to the caller as errors.
package postprocess
