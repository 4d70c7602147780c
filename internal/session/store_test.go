package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() AudioConfig {
	return AudioConfig{SampleRate: 16000, Channels: 1}
}

func TestStoreStartSession(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	snapshot, err := store.Start("meeting-1", testConfig())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if snapshot.ID != "meeting-1" {
		t.Errorf("Expected session_id 'meeting-1', got %q", snapshot.ID)
	}
	if snapshot.Status != StatusActive {
		t.Errorf("Expected status active, got %q", snapshot.Status)
	}
	if snapshot.ChunkCount != 0 {
		t.Errorf("Expected 0 chunks, got %d", snapshot.ChunkCount)
	}
	if store.ActiveCount() != 1 {
		t.Errorf("Expected 1 active session, got %d", store.ActiveCount())
	}
}

func TestStoreStartDuplicateSession(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err := store.Start("meeting-1", testConfig())
	if !errors.Is(err, ErrDuplicateSession) {
		t.Errorf("Expected ErrDuplicateSession, got %v", err)
	}
}

func TestStoreStartEmptyID(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	if _, err := store.Start("", testConfig()); err == nil {
		t.Errorf("Expected error for empty session id")
	}
}

func TestStoreSessionLimit(t *testing.T) {
	store := NewStore(testLogger(), 2, time.Hour)
	defer store.Stop()

	for i := 0; i < 2; i++ {
		if _, err := store.Start(fmt.Sprintf("meeting-%d", i), testConfig()); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
	}

	_, err := store.Start("meeting-overflow", testConfig())
	if !errors.Is(err, ErrTooManySessions) {
		t.Errorf("Expected ErrTooManySessions, got %v", err)
	}

	// Finalizing one session frees a slot
	if _, err := store.AppendChunk("meeting-0", []byte{1, 2}); err != nil {
		t.Fatalf("AppendChunk failed: %v", err)
	}
	if _, _, err := store.Finalize("meeting-0"); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if _, err := store.Start("meeting-overflow", testConfig()); err != nil {
		t.Errorf("Expected slot to be free after finalize, got %v", err)
	}
}

func TestStoreAppendChunkUnknownSession(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	_, err := store.AppendChunk("ghost", []byte{1, 2, 3})
	if !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Expected ErrUnknownSession, got %v", err)
	}
}

func TestStoreAppendChunkOrder(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunks := [][]byte{{1, 1}, {2, 2, 2}, {3}}
	for i, chunk := range chunks {
		count, err := store.AppendChunk("meeting-1", chunk)
		if err != nil {
			t.Fatalf("AppendChunk %d failed: %v", i, err)
		}
		if count != i+1 {
			t.Errorf("Expected chunk count %d, got %d", i+1, count)
		}
	}

	snapshot, err := store.Snapshot("meeting-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snapshot.Status != StatusReceiving {
		t.Errorf("Expected status receiving, got %q", snapshot.Status)
	}
	if snapshot.TotalBytes != 6 {
		t.Errorf("Expected 6 total bytes, got %d", snapshot.TotalBytes)
	}

	combined, _, err := store.Finalize("meeting-1")
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	expected := []byte{1, 1, 2, 2, 2, 3}
	if !bytes.Equal(combined, expected) {
		t.Errorf("Expected %v, got %v", expected, combined)
	}
}

func TestStoreFinalize(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	cfg := AudioConfig{SampleRate: 8000, Channels: 2}
	if _, err := store.Start("meeting-1", cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := store.AppendChunk("meeting-1", []byte{9, 9}); err != nil {
		t.Fatalf("AppendChunk failed: %v", err)
	}

	combined, gotCfg, err := store.Finalize("meeting-1")
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if !bytes.Equal(combined, []byte{9, 9}) {
		t.Errorf("Unexpected audio: %v", combined)
	}
	if gotCfg != cfg {
		t.Errorf("Expected config %+v, got %+v", cfg, gotCfg)
	}

	// Session is gone after finalize and the id is reusable
	if _, err := store.Snapshot("meeting-1"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Expected ErrUnknownSession after finalize, got %v", err)
	}
	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Errorf("Expected id to be reusable after finalize, got %v", err)
	}
}

func TestStoreFinalizeUnknownSession(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	_, _, err := store.Finalize("ghost")
	if !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Expected ErrUnknownSession, got %v", err)
	}
}

func TestStoreFinalizeNoAudio(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, _, err := store.Finalize("meeting-1")
	if !errors.Is(err, ErrNoAudioData) {
		t.Errorf("Expected ErrNoAudioData, got %v", err)
	}

	// The empty finalize keeps the session so the client can retry
	snapshot, err := store.Snapshot("meeting-1")
	if err != nil {
		t.Fatalf("Expected session to survive empty finalize, got %v", err)
	}
	if snapshot.Status != StatusActive {
		t.Errorf("Expected status active, got %q", snapshot.Status)
	}

	if _, err := store.AppendChunk("meeting-1", []byte{7, 7}); err != nil {
		t.Fatalf("AppendChunk after empty finalize failed: %v", err)
	}
	combined, _, err := store.Finalize("meeting-1")
	if err != nil {
		t.Fatalf("Finalize after retry failed: %v", err)
	}
	if !bytes.Equal(combined, []byte{7, 7}) {
		t.Errorf("Unexpected audio after retry: %v", combined)
	}
}

func TestStoreAppendAfterFinalizeFails(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := store.AppendChunk("meeting-1", []byte{1, 1}); err != nil {
		t.Fatalf("AppendChunk failed: %v", err)
	}

	// Hold a direct handle to the session, as a concurrent append would
	// after resolving the id just before finalize removes it.
	store.mu.RLock()
	sess := store.sessions["meeting-1"]
	store.mu.RUnlock()

	combined, _, err := store.Finalize("meeting-1")
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// The stale handle must not acknowledge bytes the finalized audio
	// does not contain.
	if _, err := sess.appendChunk([]byte{2, 2}); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("Expected ErrUnknownSession from append on finalized session, got %v", err)
	}
	if !bytes.Equal(combined, []byte{1, 1}) {
		t.Errorf("Finalized audio changed: %v", combined)
	}
}

func TestStoreRemove(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !store.Remove("meeting-1") {
		t.Errorf("Expected Remove to report true")
	}
	if store.Remove("meeting-1") {
		t.Errorf("Expected Remove to report false for missing session")
	}
}

func TestStoreSnapshotDurationEstimate(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 1 second of 16kHz mono 16-bit PCM
	if _, err := store.AppendChunk("meeting-1", make([]byte, 32000)); err != nil {
		t.Fatalf("AppendChunk failed: %v", err)
	}

	snapshot, err := store.Snapshot("meeting-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snapshot.Duration != 1.0 {
		t.Errorf("Expected 1.0s duration estimate, got %f", snapshot.Duration)
	}
}

func TestStoreExpireIdleSessions(t *testing.T) {
	store := NewStore(testLogger(), 5, 10*time.Millisecond)
	defer store.Stop()

	var expiredCount int
	var mu sync.Mutex
	store.SetExpireHook(func(expired, active int) {
		mu.Lock()
		expiredCount += expired
		mu.Unlock()
	})

	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	store.expireIdleSessions()

	if store.ActiveCount() != 0 {
		t.Errorf("Expected idle session to be expired")
	}

	mu.Lock()
	if expiredCount != 1 {
		t.Errorf("Expected expire hook to report 1 session, got %d", expiredCount)
	}
	mu.Unlock()

	stats := store.Stats()
	if stats.Expired != 1 {
		t.Errorf("Expected 1 expired session in stats, got %d", stats.Expired)
	}
}

func TestStoreStats(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := store.Start("meeting-2", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := store.AppendChunk("meeting-1", []byte{1}); err != nil {
		t.Fatalf("AppendChunk failed: %v", err)
	}
	if _, _, err := store.Finalize("meeting-1"); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	stats := store.Stats()
	if stats.Started != 2 {
		t.Errorf("Expected 2 started, got %d", stats.Started)
	}
	if stats.Finalized != 1 {
		t.Errorf("Expected 1 finalized, got %d", stats.Finalized)
	}
	if stats.Active != 1 {
		t.Errorf("Expected 1 active, got %d", stats.Active)
	}

	snapshots := store.Snapshots()
	if len(snapshots) != 1 {
		t.Errorf("Expected 1 snapshot, got %d", len(snapshots))
	}
}

func TestStoreConcurrentAppends(t *testing.T) {
	store := NewStore(testLogger(), 5, time.Hour)
	defer store.Stop()

	if _, err := store.Start("meeting-1", testConfig()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	const goroutines = 10
	const chunksPerGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < chunksPerGoroutine; i++ {
				if _, err := store.AppendChunk("meeting-1", []byte{0xAB}); err != nil {
					t.Errorf("AppendChunk failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	combined, _, err := store.Finalize("meeting-1")
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	expected := goroutines * chunksPerGoroutine
	if len(combined) != expected {
		t.Errorf("Expected %d bytes, got %d", expected, len(combined))
	}
}
