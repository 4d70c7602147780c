package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Store owns all active sessions. Operations for different sessions run
// concurrently; operations for the same session serialize on the
// session's own mutex.
type Store struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger

	maxSessions int
	timeout     time.Duration

	// Cleanup management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}

	// Lifetime counters
	started   uint64
	finalized uint64
	expired   uint64

	// Called after idle sessions are expired, with the number expired
	// and the number still active.
	onExpire func(expired, active int)
}

// SetExpireHook registers a callback invoked after idle session cleanup.
// Must be called before any sessions are created.
func (st *Store) SetExpireHook(hook func(expired, active int)) {
	st.onExpire = hook
}

// NewStore creates a session store and starts its background cleanup
// routine. Call Stop to release it.
func NewStore(logger *slog.Logger, maxSessions int, timeout time.Duration) *Store {
	ctx, cancel := context.WithCancel(context.Background())

	st := &Store{
		sessions:    make(map[string]*Session),
		logger:      logger,
		maxSessions: maxSessions,
		timeout:     timeout,
		ctx:         ctx,
		cancel:      cancel,
		cleanup:     make(chan struct{}),
	}

	go st.startCleanupRoutine()

	return st
}

// Start creates a new session with the given identifier and audio
// configuration. It fails with ErrDuplicateSession while the identifier
// is live, including after finalize until the session is removed.
func (st *Store) Start(id string, cfg AudioConfig) (Snapshot, error) {
	if id == "" {
		return Snapshot{}, fmt.Errorf("session id cannot be empty")
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.sessions[id]; exists {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrDuplicateSession, id)
	}

	if len(st.sessions) >= st.maxSessions {
		return Snapshot{}, fmt.Errorf("%w: limit %d", ErrTooManySessions, st.maxSessions)
	}

	now := time.Now()
	sess := &Session{
		ID:           id,
		Config:       cfg,
		CreatedAt:    now,
		LastActivity: now,
		status:       StatusActive,
	}
	st.sessions[id] = sess
	st.started++

	st.logger.Info("Session started",
		slog.String("session_id", id),
		slog.Int("sample_rate", cfg.SampleRate),
		slog.Int("channels", cfg.Channels),
		slog.Int("active_sessions", len(st.sessions)),
	)

	return sess.snapshot(), nil
}

// AppendChunk appends decoded audio bytes to a session and returns the
// new chunk count. Chunks are never reordered or dropped.
func (st *Store) AppendChunk(id string, data []byte) (int, error) {
	sess, err := st.get(id)
	if err != nil {
		return 0, err
	}

	count, err := sess.appendChunk(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", err, id)
	}

	st.logger.Debug("Audio chunk appended",
		slog.String("session_id", id),
		slog.Int("chunk_bytes", len(data)),
		slog.Int("chunk_count", count),
	)

	return count, nil
}

// Finalize concatenates the session's chunks in arrival order, marks the
// session completed, and removes it from the store so the identifier can
// be reused. The concatenated bytes are returned along with the audio
// configuration the session was started with. A session without chunks
// fails with ErrNoAudioData and stays in the store so the client can
// append audio and retry.
func (st *Store) Finalize(id string) ([]byte, AudioConfig, error) {
	st.mu.Lock()
	sess, exists := st.sessions[id]
	if !exists {
		st.mu.Unlock()
		return nil, AudioConfig{}, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	if sess.chunkCount() == 0 {
		st.mu.Unlock()
		return nil, sess.Config, fmt.Errorf("%w: %s", ErrNoAudioData, id)
	}
	delete(st.sessions, id)
	st.finalized++
	st.mu.Unlock()

	combined := sess.finalize()

	st.logger.Info("Session finalized",
		slog.String("session_id", id),
		slog.Int("total_bytes", len(combined)),
		slog.Duration("session_age", time.Since(sess.CreatedAt)),
	)

	return combined, sess.Config, nil
}

// Snapshot returns a read-only view of a session's state.
func (st *Store) Snapshot(id string) (Snapshot, error) {
	sess, err := st.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.snapshot(), nil
}

// Remove deletes a session regardless of its state. It reports whether
// the session existed.
func (st *Store) Remove(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.sessions[id]; !exists {
		return false
	}
	delete(st.sessions, id)

	st.logger.Info("Session removed", slog.String("session_id", id))
	return true
}

// ActiveCount returns the number of live sessions.
func (st *Store) ActiveCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Snapshots returns read-only views of all live sessions for monitoring.
func (st *Store) Snapshots() []Snapshot {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}
	st.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		snapshots = append(snapshots, sess.snapshot())
	}
	return snapshots
}

// Stats reports lifetime store counters.
type Stats struct {
	Active    int    `json:"active_sessions"`
	Started   uint64 `json:"sessions_started"`
	Finalized uint64 `json:"sessions_finalized"`
	Expired   uint64 `json:"sessions_expired"`
}

// Stats returns lifetime counters for monitoring endpoints.
func (st *Store) Stats() Stats {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return Stats{
		Active:    len(st.sessions),
		Started:   st.started,
		Finalized: st.finalized,
		Expired:   st.expired,
	}
}

// Stop shuts down the cleanup routine and discards any live sessions.
func (st *Store) Stop() {
	st.cancel()
	<-st.cleanup

	st.mu.Lock()
	remaining := len(st.sessions)
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	st.logger.Info("Session store stopped", slog.Int("discarded_sessions", remaining))
}

func (st *Store) get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sess, exists := st.sessions[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return sess, nil
}

// startCleanupRoutine runs in a separate goroutine to expire idle sessions
func (st *Store) startCleanupRoutine() {
	defer close(st.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	st.logger.Info("Session cleanup routine started",
		slog.Duration("timeout", st.timeout),
		slog.Duration("check_interval", 30*time.Second),
	)

	for {
		select {
		case <-st.ctx.Done():
			st.logger.Info("Session cleanup routine stopping")
			return

		case <-ticker.C:
			st.expireIdleSessions()
		}
	}
}

// expireIdleSessions removes sessions that have been inactive longer than
// the configured timeout.
func (st *Store) expireIdleSessions() {
	now := time.Now()
	idle := make([]string, 0)

	st.mu.RLock()
	for id, sess := range st.sessions {
		if now.Sub(sess.lastActivity()) > st.timeout {
			idle = append(idle, id)
		}
	}
	st.mu.RUnlock()

	if len(idle) == 0 {
		return
	}

	st.logger.Info("Cleaning up idle sessions", slog.Int("idle_count", len(idle)))

	st.mu.Lock()
	removed := 0
	for _, id := range idle {
		if _, exists := st.sessions[id]; exists {
			delete(st.sessions, id)
			st.expired++
			removed++
		}
	}
	active := len(st.sessions)
	st.mu.Unlock()

	if removed > 0 && st.onExpire != nil {
		st.onExpire(removed, active)
	}
}
