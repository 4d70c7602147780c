package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	Session       SessionConfig       `yaml:"session"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Cleanup       CleanupConfig       `yaml:"cleanup"`
	Storage       StorageConfig       `yaml:"storage"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains the optional HTTP monitoring server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// AudioConfig contains default audio parameters applied to new sessions
type AudioConfig struct {
	SampleRate    int `yaml:"sample_rate"`
	Channels      int `yaml:"channels"`
	BitDepth      int `yaml:"bit_depth"`
	ChunkDuration int `yaml:"chunk_duration"` // seconds, advisory chunk length for clients
}

// SessionConfig contains session store limits and lifecycle parameters
type SessionConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
	Timeout       int `yaml:"timeout"` // seconds of inactivity before cleanup
}

// TranscriptionConfig contains the ASR backend configuration
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint"`
	ModelSize     string `yaml:"model_size"`
	Language      string `yaml:"language"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// CleanupConfig contains the optional LLM post-processing configuration.
// Post-processing is disabled when URL is empty.
type CleanupConfig struct {
	URL     string `yaml:"url"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"` // seconds
}

// StorageConfig contains transcript persistence configuration
type StorageConfig struct {
	TranscriptionsDir string `yaml:"transcriptions_dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
			Enabled: false,
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			Channels:      1,
			BitDepth:      16,
			ChunkDuration: 30,
		},
		Session: SessionConfig{
			MaxConcurrent: 5,
			Timeout:       3600,
		},
		Transcription: TranscriptionConfig{
			Endpoint:      "http://localhost:8178/v1/audio/transcriptions",
			ModelSize:     "base",
			Language:      "",
			Timeout:       300,
			MaxConcurrent: 2,
		},
		Cleanup: CleanupConfig{
			URL:     "",
			Model:   "llama2",
			Timeout: 30,
		},
		Storage: StorageConfig{
			TranscriptionsDir: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads the configuration file, applies environment overrides, and
// validates the result. A missing file is not an error: the defaults plus
// environment overrides are used, so an env-only deployment needs no file.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// applyEnvOverrides maps the recognized environment variables onto the
// configuration. Environment always wins over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WHISPER_MODEL_SIZE"); v != "" {
		c.Transcription.ModelSize = v
	}
	if v := os.Getenv("WHISPER_ENDPOINT"); v != "" {
		c.Transcription.Endpoint = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.Cleanup.URL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Cleanup.Model = v
	}
	if v, ok := envInt("DEFAULT_SAMPLE_RATE"); ok {
		c.Audio.SampleRate = v
	}
	if v, ok := envInt("DEFAULT_CHANNELS"); ok {
		c.Audio.Channels = v
	}
	if v, ok := envInt("DEFAULT_CHUNK_DURATION"); ok {
		c.Audio.ChunkDuration = v
	}
	if v, ok := envInt("MAX_CONCURRENT_SESSIONS"); ok {
		c.Session.MaxConcurrent = v
	}
	if v, ok := envInt("SESSION_TIMEOUT"); ok {
		c.Session.Timeout = v
	}
	if v := os.Getenv("TRANSCRIPTIONS_DIR"); v != "" {
		c.Storage.TranscriptionsDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Cleanup.Validate(); err != nil {
		return fmt.Errorf("cleanup config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.Channels < 1 || a.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.ChunkDuration < 1 {
		return fmt.Errorf("chunk_duration must be at least 1 second, got %d", a.ChunkDuration)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", s.MaxConcurrent)
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.ModelSize == "" {
		return fmt.Errorf("model_size cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates cleanup configuration
func (c *CleanupConfig) Validate() error {
	if c.URL == "" {
		return nil // post-processing disabled
	}

	if c.Model == "" {
		return fmt.Errorf("model cannot be empty when cleanup URL is set")
	}

	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", c.Timeout)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the session inactivity timeout as a time.Duration
func (s *SessionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the cleanup request timeout as a time.Duration
func (c *CleanupConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetChunkDuration returns the advisory chunk duration as a time.Duration
func (a *AudioConfig) GetChunkDuration() time.Duration {
	return time.Duration(a.ChunkDuration) * time.Second
}
