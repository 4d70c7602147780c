// Package storage persists completed transcripts to disk, one JSON file
// per session, and serves listing and retrieval of saved files.
package storage
