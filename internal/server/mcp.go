package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mkadrlik/meeting-transcription-agent/internal/asr"
	"github.com/mkadrlik/meeting-transcription-agent/internal/audio"
	"github.com/mkadrlik/meeting-transcription-agent/internal/config"
	"github.com/mkadrlik/meeting-transcription-agent/internal/metrics"
	"github.com/mkadrlik/meeting-transcription-agent/internal/postprocess"
	"github.com/mkadrlik/meeting-transcription-agent/internal/session"
	"github.com/mkadrlik/meeting-transcription-agent/internal/storage"
	"github.com/mkadrlik/meeting-transcription-agent/internal/transcript"
)

const (
	ServiceName    = "meeting-transcription-agent"
	ServiceVersion = "1.0.0"
)

// MCPServer exposes the transcription tool surface over the MCP stdio
// transport. Every tool call is answered with a structured JSON payload;
// failures become {"error": ...} responses and never escape the handler.
type MCPServer struct {
	logger  *slog.Logger
	config  *config.Config
	store   *session.Store
	asr     *asr.Client
	cleanup *postprocess.Client
	storage *storage.Store
	metrics *metrics.Metrics

	mcp *mcpserver.MCPServer
}

// NewMCPServer wires the tool handlers to their backing components.
func NewMCPServer(
	logger *slog.Logger,
	cfg *config.Config,
	store *session.Store,
	asrClient *asr.Client,
	cleanupClient *postprocess.Client,
	storageStore *storage.Store,
	m *metrics.Metrics,
) *MCPServer {
	s := &MCPServer{
		logger:  logger,
		config:  cfg,
		store:   store,
		asr:     asrClient,
		cleanup: cleanupClient,
		storage: storageStore,
		metrics: m,
	}

	s.mcp = mcpserver.NewMCPServer(
		ServiceName,
		ServiceVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	s.registerTools()

	return s
}

// Serve runs the MCP server on stdio until the client disconnects.
func (s *MCPServer) Serve() error {
	s.logger.Info("MCP server listening on stdio",
		slog.String("service", ServiceName),
		slog.String("version", ServiceVersion),
	)
	return mcpserver.ServeStdio(s.mcp)
}

func (s *MCPServer) registerTools() {
	s.mcp.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a new transcription session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Unique identifier for the session"),
		),
		mcp.WithNumber("sample_rate",
			mcp.Description("PCM sample rate in Hz (defaults to server configuration)"),
		),
		mcp.WithNumber("channels",
			mcp.Description("PCM channel count (defaults to server configuration)"),
		),
	), s.handleStartSession)

	s.mcp.AddTool(mcp.NewTool("add_audio_chunk",
		mcp.WithDescription("Add base64-encoded audio chunk to session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithString("audio_data",
			mcp.Required(),
			mcp.Description("Base64-encoded audio data (raw PCM or WAV)"),
		),
	), s.handleAddAudioChunk)

	s.mcp.AddTool(mcp.NewTool("transcribe_session",
		mcp.WithDescription("Transcribe all audio in session and save to file"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
		mcp.WithString("export",
			mcp.Description("Optional additional rendering of the transcript: json, txt, or srt"),
		),
	), s.handleTranscribeSession)

	s.mcp.AddTool(mcp.NewTool("get_session_status",
		mcp.WithDescription("Get status of a transcription session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session identifier"),
		),
	), s.handleGetSessionStatus)

	s.mcp.AddTool(mcp.NewTool("list_transcriptions",
		mcp.WithDescription("List all saved transcription files"),
	), s.handleListTranscriptions)

	s.mcp.AddTool(mcp.NewTool("get_transcription",
		mcp.WithDescription("Get content of a specific transcription file"),
		mcp.WithString("filename",
			mcp.Required(),
			mcp.Description("Name of the transcription file"),
		),
	), s.handleGetTranscription)
}

// jsonResult marshals a payload into a text tool result.
func (s *MCPServer) jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return s.errorResult(tool, fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	s.metrics.RecordToolCall(tool, false)
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult wraps a failure message as a structured {"error": ...}
// payload. Tool handlers never return Go errors for domain failures so
// a single bad request cannot take the server down.
func (s *MCPServer) errorResult(tool, message string) *mcp.CallToolResult {
	s.metrics.RecordToolCall(tool, true)
	s.logger.Warn("Tool call failed",
		slog.String("tool", tool),
		slog.String("error", message),
	)

	data, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return mcp.NewToolResultText(`{"error": "internal error"}`)
	}
	return mcp.NewToolResultText(string(data))
}

func (s *MCPServer) handleStartSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "start_session"

	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	cfg := session.AudioConfig{
		SampleRate: req.GetInt("sample_rate", s.config.Audio.SampleRate),
		Channels:   req.GetInt("channels", s.config.Audio.Channels),
	}

	if cfg.SampleRate <= 0 || cfg.Channels <= 0 {
		return s.errorResult(tool, fmt.Sprintf("invalid audio config: sample_rate=%d channels=%d",
			cfg.SampleRate, cfg.Channels)), nil
	}

	snapshot, err := s.store.Start(sessionID, cfg)
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	s.metrics.RecordSessionStarted(s.store.ActiveCount())

	return s.jsonResult(tool, map[string]any{
		"success":    true,
		"session_id": snapshot.ID,
		"status":     snapshot.Status,
	})
}

func (s *MCPServer) handleAddAudioChunk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "add_audio_chunk"

	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	audioData, err := req.RequireString("audio_data")
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	decoded, err := base64.StdEncoding.DecodeString(audioData)
	if err != nil {
		s.metrics.RecordDecodeError()
		return s.errorResult(tool, fmt.Sprintf("invalid base64 audio data: %v", err)), nil
	}

	count, err := s.store.AppendChunk(sessionID, decoded)
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	s.metrics.RecordChunkReceived(len(decoded))

	return s.jsonResult(tool, map[string]any{
		"success":     true,
		"chunk_count": count,
	})
}

func (s *MCPServer) handleTranscribeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "transcribe_session"

	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	exportFormat := req.GetString("export", "")
	switch exportFormat {
	case "", transcript.FormatJSON, transcript.FormatTXT, transcript.FormatSRT:
	default:
		return s.errorResult(tool, fmt.Sprintf("%v: %q", transcript.ErrUnsupportedFormat, exportFormat)), nil
	}

	snapshot, err := s.store.Snapshot(sessionID)
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	pcm, audioCfg, err := s.store.Finalize(sessionID)
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	s.metrics.RecordSessionFinalized(time.Since(snapshot.CreatedAt).Seconds(), s.store.ActiveCount())

	wav, err := audio.EnsureWAV(pcm, audioCfg.SampleRate, audioCfg.Channels)
	if err != nil {
		return s.errorResult(tool, fmt.Sprintf("failed to prepare audio: %v", err)), nil
	}

	s.logger.Info("Transcribing session audio",
		slog.String("session_id", sessionID),
		slog.Int("audio_bytes", len(wav)),
		slog.Float64("duration_estimate", audio.EstimateDuration(len(pcm), audioCfg.SampleRate, audioCfg.Channels)),
	)

	s.metrics.RecordTranscriptionRequest()
	startTime := time.Now()

	result, err := s.asr.Transcribe(ctx, wav)
	if err != nil {
		s.metrics.RecordTranscriptionFailure(time.Since(startTime).Seconds())
		return s.errorResult(tool, err.Error()), nil
	}

	s.metrics.RecordTranscriptionSuccess(time.Since(startTime).Seconds())

	segments := make([]transcript.Segment, 0, len(result.Segments))
	for _, seg := range result.Segments {
		segments = append(segments, transcript.Segment{
			Start:      seg.Start,
			End:        seg.End,
			Text:       strings.TrimSpace(seg.Text),
			Confidence: seg.Confidence,
		})
	}

	t := transcript.Assemble(segments)
	t.SessionID = sessionID
	t.Timestamp = time.Now()
	t.Language = result.Language
	t.LanguageProbability = result.LanguageProbability

	if s.cleanup.Enabled() {
		cleaned, processed := s.cleanup.Cleanup(ctx, t.FullText)
		t.FullText = cleaned
		t.PostProcessed = processed
		s.metrics.RecordCleanup(processed)
	}

	outputFile, err := s.storage.Save(&t)
	if err != nil {
		return s.errorResult(tool, fmt.Sprintf("failed to save transcript: %v", err)), nil
	}

	s.metrics.RecordTranscriptSaved()

	s.logger.Info("Session transcription completed",
		slog.String("session_id", sessionID),
		slog.Int("segments", len(t.Segments)),
		slog.Int("word_count", t.WordCount),
		slog.Float64("duration", t.Duration),
		slog.Bool("post_processed", t.PostProcessed),
		slog.String("output_file", outputFile),
	)

	payload := map[string]any{
		"success":     true,
		"transcript":  t,
		"output_file": outputFile,
	}

	if exportFormat != "" {
		rendered, err := transcript.Export(&t, exportFormat)
		if err != nil {
			return s.errorResult(tool, err.Error()), nil
		}
		payload["export_format"] = exportFormat
		payload["export"] = rendered
	}

	return s.jsonResult(tool, payload)
}

func (s *MCPServer) handleGetSessionStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "get_session_status"

	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	snapshot, err := s.store.Snapshot(sessionID)
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	return s.jsonResult(tool, snapshot)
}

func (s *MCPServer) handleListTranscriptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "list_transcriptions"

	result, err := s.storage.List()
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	return s.jsonResult(tool, result)
}

func (s *MCPServer) handleGetTranscription(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const tool = "get_transcription"

	filename, err := req.RequireString("filename")
	if err != nil {
		return s.errorResult(tool, err.Error()), nil
	}

	data, err := s.storage.Get(filename)
	if err != nil {
		return s.errorResult(tool, "File not found"), nil
	}

	s.metrics.RecordToolCall(tool, false)
	return mcp.NewToolResultText(string(data)), nil
}
