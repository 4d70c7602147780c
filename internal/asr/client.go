package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client provides HTTP client functionality for ASR backend requests.
// The semaphore bounds concurrent model invocations so a slow backend
// cannot stall chunk uploads for other sessions.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{}

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains ASR client configuration
type Config struct {
	Endpoint      string
	Model         string
	Language      string
	Timeout       time.Duration
	MaxConcurrent int
}

// Segment is a timed span of recognized text. Confidence is the
// model-reported average log-probability; it is nil when the backend
// does not report one, never a guessed sentinel.
type Segment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Result is the parsed response for one transcription request.
type Result struct {
	Text                string    `json:"text"`
	Language            string    `json:"language,omitempty"`
	LanguageProbability *float64  `json:"language_probability,omitempty"`
	Duration            float64   `json:"duration"`
	Segments            []Segment `json:"segments"`
}

// TranscriptionError wraps an ASR backend failure with its underlying
// cause. The caller decides how to surface it; the client never retries.
type TranscriptionError struct {
	RequestID string
	Err       error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed (request %s): %v", e.RequestID, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// wire format of the backend's verbose JSON response
type transcriptionResponse struct {
	Text                string        `json:"text"`
	Language            string        `json:"language"`
	LanguageProbability *float64      `json:"language_probability"`
	Duration            float64       `json:"duration"`
	Segments            []wireSegment `json:"segments"`
}

type wireSegment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	AvgLogprob *float64 `json:"avg_logprob"`
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a new ASR HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Model == "" {
		config.Model = "base"
	}

	if config.Timeout <= 0 {
		config.Timeout = 300 * time.Second
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 2
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Transcribe sends WAV audio to the ASR backend and returns the timed
// segments. Empty input short-circuits to an empty result without
// touching the backend. A backend failure is returned as a
// *TranscriptionError; there is no automatic retry.
func (c *Client) Transcribe(ctx context.Context, wav []byte) (*Result, error) {
	if len(wav) == 0 {
		return &Result{Segments: []Segment{}}, nil
	}

	// Acquire semaphore so concurrent sessions cannot oversubscribe the model
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	requestID := uuid.NewString()
	startTime := time.Now()
	c.incrementTotalRequests()

	result, err := c.doRequest(ctx, requestID, wav)
	if err != nil {
		c.incrementFailedRequests()
		return nil, &TranscriptionError{RequestID: requestID, Err: err}
	}

	c.incrementSuccessRequests()
	c.updateAvgResponseTime(time.Since(startTime))

	return result, nil
}

// doRequest performs a single HTTP request to the ASR backend
func (c *Client) doRequest(ctx context.Context, requestID string, wav []byte) (*Result, error) {
	body, contentType, err := c.createMultipartRequest(requestID, wav)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "meeting-transcription-agent/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var wire transcriptionResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}

	segments := make([]Segment, 0, len(wire.Segments))
	for _, ws := range wire.Segments {
		segments = append(segments, Segment{
			Start:      ws.Start,
			End:        ws.End,
			Text:       ws.Text,
			Confidence: ws.AvgLogprob,
		})
	}

	return &Result{
		Text:                wire.Text,
		Language:            wire.Language,
		LanguageProbability: wire.LanguageProbability,
		Duration:            wire.Duration,
		Segments:            segments,
	}, nil
}

// createMultipartRequest creates a multipart/form-data request body
func (c *Client) createMultipartRequest(requestID string, wav []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", requestID+".wav")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := fileWriter.Write(wav); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"model":           c.config.Model,
		"response_format": "verbose_json",
		"request_id":      requestID,
	}

	if c.config.Language != "" {
		fields["language"] = c.config.Language
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}

// Close drains the semaphore, waiting for in-flight requests to finish.
func (c *Client) Close() error {
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}

	return nil
}
