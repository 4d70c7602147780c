// Package server implements the MCP stdio server exposing the
// transcription tools and an optional HTTP server providing
// monitoring/management endpoints.
package server
