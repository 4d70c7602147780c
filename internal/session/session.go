package session

import (
	"sync"
	"time"
)

// Status describes where a session is in its lifecycle.
type Status string

const (
	// StatusActive means the session was started and holds no audio yet.
	StatusActive Status = "active"
	// StatusReceiving means at least one audio chunk has been appended.
	StatusReceiving Status = "receiving"
	// StatusCompleted means the session was finalized; no transition
	// leaves this state.
	StatusCompleted Status = "completed"
)

// AudioConfig carries the audio parameters a session was started with.
type AudioConfig struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
}

// Session accumulates audio chunks for one recording. All mutation goes
// through the owning Store; the per-session mutex keeps append and
// finalize from interleaving their read-modify-write of the chunk slice.
type Session struct {
	ID           string
	Config       AudioConfig
	CreatedAt    time.Time
	LastActivity time.Time

	status Status
	chunks [][]byte
	bytes  int

	mu sync.Mutex
}

// Snapshot is a read-only copy of session state for status queries and
// monitoring endpoints.
type Snapshot struct {
	ID           string      `json:"session_id"`
	Status       Status      `json:"status"`
	ChunkCount   int         `json:"chunk_count"`
	TotalBytes   int         `json:"total_bytes"`
	Duration     float64     `json:"duration_estimate"`
	Config       AudioConfig `json:"config"`
	CreatedAt    time.Time   `json:"created"`
	LastActivity time.Time   `json:"last_activity"`
}

// appendChunk appends data to the chunk sequence in arrival order and
// returns the new chunk count. A session that was already finalized
// refuses the append: a caller holding a stale handle must not get an
// acknowledgement for bytes the finalized audio does not contain.
func (s *Session) appendChunk(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusCompleted {
		return 0, ErrUnknownSession
	}

	s.chunks = append(s.chunks, data)
	s.bytes += len(data)
	s.status = StatusReceiving
	s.LastActivity = time.Now()

	return len(s.chunks), nil
}

// finalize concatenates all chunks in arrival order, clears the chunk
// sequence, and marks the session completed.
func (s *Session) finalize() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	combined := make([]byte, 0, s.bytes)
	for _, chunk := range s.chunks {
		combined = append(combined, chunk...)
	}

	s.chunks = nil
	s.bytes = 0
	s.status = StatusCompleted
	s.LastActivity = time.Now()

	return combined
}

// snapshot returns a copy of the current session state.
func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:           s.ID,
		Status:       s.status,
		ChunkCount:   len(s.chunks),
		TotalBytes:   s.bytes,
		Duration:     estimateDuration(s.bytes, s.Config.SampleRate, s.Config.Channels),
		Config:       s.Config,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

func (s *Session) chunkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

func (s *Session) lastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastActivity
}

// estimateDuration converts an accumulated byte count to seconds of
// 16-bit PCM audio.
func estimateDuration(byteCount, sampleRate, channels int) float64 {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return float64(byteCount) / float64(sampleRate*channels*2)
}
