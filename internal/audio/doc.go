// Package audio handles audio format conversion for transcription.
// It wraps raw 16-bit PCM in WAV containers, validates incoming WAV
// payloads, and estimates durations from byte counts.
package audio
