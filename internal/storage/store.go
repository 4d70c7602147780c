package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mkadrlik/meeting-transcription-agent/internal/transcript"
)

// ErrNotFound is returned when a requested transcription file does not
// exist in the transcriptions directory.
var ErrNotFound = errors.New("file not found")

// internalDataDir is the container-internal fallback location used when
// no transcriptions directory is configured.
const internalDataDir = "/app/data/transcriptions"

// Store persists assembled transcripts as one JSON file per completed
// session.
type Store struct {
	dir    string
	logger *slog.Logger
}

// FileInfo describes one persisted transcription file.
type FileInfo struct {
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// ListResult is the response shape of the list_transcriptions tool.
type ListResult struct {
	TranscriptionsDir string     `json:"transcriptions_dir"`
	Files             []FileInfo `json:"files"`
	TotalFiles        int        `json:"total_files"`
}

// NewStore resolves the transcriptions directory and returns a store
// writing into it. Resolution order: the configured (host-mounted) path,
// the internal data path, then a fresh temporary directory with a logged
// warning that results will not survive restarts.
func NewStore(configuredDir string, logger *slog.Logger) (*Store, error) {
	dir, err := resolveDir(configuredDir, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Transcription storage ready", slog.String("dir", dir))

	return &Store{dir: dir, logger: logger}, nil
}

func resolveDir(configuredDir string, logger *slog.Logger) (string, error) {
	candidates := []string{}
	if configuredDir != "" {
		candidates = append(candidates, configuredDir)
	}
	candidates = append(candidates, internalDataDir)

	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return dir, nil
		} else {
			logger.Warn("Transcriptions directory unavailable",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
		}
	}

	dir, err := os.MkdirTemp("", "transcriptions-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary transcriptions directory: %w", err)
	}

	logger.Warn("Using temporary transcriptions directory, results will not persist across restarts",
		slog.String("dir", dir),
	)

	return dir, nil
}

// Dir returns the resolved transcriptions directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the transcript as <session_id>_<unix_timestamp>.json and
// returns the full file path.
func (s *Store) Save(t *transcript.Transcript) (string, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript: %w", err)
	}

	filename := fmt.Sprintf("%s_%d.json", sanitizeSessionID(t.SessionID), time.Now().Unix())
	path := filepath.Join(s.dir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write transcript file: %w", err)
	}

	s.logger.Info("Transcription saved",
		slog.String("session_id", t.SessionID),
		slog.String("file", path),
		slog.Int("size_bytes", len(data)),
	)

	return path, nil
}

// List returns all persisted transcription files, newest first.
func (s *Store) List() (*ListResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcriptions directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("Failed to stat transcription file",
				slog.String("file", entry.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}

		files = append(files, FileInfo{
			Filename: entry.Name(),
			Path:     filepath.Join(s.dir, entry.Name()),
			Size:     info.Size(),
			Created:  info.ModTime(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Created.After(files[j].Created)
	})

	return &ListResult{
		TranscriptionsDir: s.dir,
		Files:             files,
		TotalFiles:        len(files),
	}, nil
}

// Get reads one persisted transcription file by name. The name is
// reduced to its base to keep lookups inside the transcriptions
// directory.
func (s *Store) Get(filename string) (json.RawMessage, error) {
	path := filepath.Join(s.dir, filepath.Base(filename))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read transcription file: %w", err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("transcription file %s is not valid JSON", filename)
	}

	return json.RawMessage(data), nil
}

// sanitizeSessionID keeps session identifiers filesystem-safe.
func sanitizeSessionID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}
