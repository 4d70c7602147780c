// Package transcript assembles timed ASR segments into full transcripts
// and serializes them to JSON, plain text, or SRT subtitle format.
package transcript
