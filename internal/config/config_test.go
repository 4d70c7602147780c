package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "default configuration is valid",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid sample rate",
			mutate: func(c *Config) {
				c.Audio.SampleRate = 4000
			},
			expectError: true,
			errorMsg:    "sample_rate must be between 8000 and 48000",
		},
		{
			name: "invalid channel count",
			mutate: func(c *Config) {
				c.Audio.Channels = 3
			},
			expectError: true,
			errorMsg:    "channels must be 1 or 2",
		},
		{
			name: "invalid bit depth",
			mutate: func(c *Config) {
				c.Audio.BitDepth = 24
			},
			expectError: true,
			errorMsg:    "bit_depth must be 16",
		},
		{
			name: "zero max concurrent sessions",
			mutate: func(c *Config) {
				c.Session.MaxConcurrent = 0
			},
			expectError: true,
			errorMsg:    "max_concurrent must be at least 1",
		},
		{
			name: "empty transcription endpoint",
			mutate: func(c *Config) {
				c.Transcription.Endpoint = ""
			},
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name: "cleanup enabled without model",
			mutate: func(c *Config) {
				c.Cleanup.URL = "http://localhost:11434"
				c.Cleanup.Model = ""
			},
			expectError: true,
			errorMsg:    "model cannot be empty",
		},
		{
			name: "http enabled with invalid port",
			mutate: func(c *Config) {
				c.HTTP.Enabled = true
				c.HTTP.Port = 70000
			},
			expectError: true,
			errorMsg:    "http port must be between 1 and 65535",
		},
		{
			name: "http disabled ignores port",
			mutate: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 0
			},
			expectError: false,
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "trace"
			},
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
audio:
  sample_rate: 16000
  channels: 1
  bit_depth: 16
  chunk_duration: 30
session:
  max_concurrent: 5
  timeout: 3600
transcription:
  endpoint: "http://localhost:8178/v1/audio/transcriptions"
  model_size: "base"
  timeout: 300
  max_concurrent: 2
logging:
  level: "info"
  format: "text"
  output: "stderr"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
session:
  max_concurrent: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "file overriding defaults with invalid value",
			configYAML: `
audio:
  sample_rate: 1000
`,
			expectError: true,
			errorMsg:    "sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Expected default sample rate 16000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Session.MaxConcurrent != 5 {
		t.Errorf("Expected default max sessions 5, got %d", cfg.Session.MaxConcurrent)
	}
	if cfg.Transcription.ModelSize != "base" {
		t.Errorf("Expected default model size 'base', got %q", cfg.Transcription.ModelSize)
	}
	if cfg.Cleanup.URL != "" {
		t.Errorf("Expected cleanup disabled by default, got URL %q", cfg.Cleanup.URL)
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("WHISPER_MODEL_SIZE", "large")
	t.Setenv("WHISPER_ENDPOINT", "http://asr:9999/v1/audio/transcriptions")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("OLLAMA_MODEL", "mistral")
	t.Setenv("DEFAULT_SAMPLE_RATE", "8000")
	t.Setenv("DEFAULT_CHANNELS", "2")
	t.Setenv("MAX_CONCURRENT_SESSIONS", "10")
	t.Setenv("SESSION_TIMEOUT", "600")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Transcription.ModelSize != "large" {
		t.Errorf("Expected model size 'large', got %q", cfg.Transcription.ModelSize)
	}
	if cfg.Transcription.Endpoint != "http://asr:9999/v1/audio/transcriptions" {
		t.Errorf("Unexpected endpoint: %q", cfg.Transcription.Endpoint)
	}
	if cfg.Cleanup.URL != "http://ollama:11434" {
		t.Errorf("Unexpected cleanup URL: %q", cfg.Cleanup.URL)
	}
	if cfg.Cleanup.Model != "mistral" {
		t.Errorf("Unexpected cleanup model: %q", cfg.Cleanup.Model)
	}
	if cfg.Audio.SampleRate != 8000 {
		t.Errorf("Expected sample rate 8000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 2 {
		t.Errorf("Expected 2 channels, got %d", cfg.Audio.Channels)
	}
	if cfg.Session.MaxConcurrent != 10 {
		t.Errorf("Expected 10 max sessions, got %d", cfg.Session.MaxConcurrent)
	}
	if cfg.Session.Timeout != 600 {
		t.Errorf("Expected 600s session timeout, got %d", cfg.Session.Timeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level 'debug', got %q", cfg.Logging.Level)
	}
}

func TestConfigEnvOverridesIgnoreMalformedInts(t *testing.T) {
	t.Setenv("DEFAULT_SAMPLE_RATE", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Expected default sample rate to survive malformed env, got %d", cfg.Audio.SampleRate)
	}
}

func TestDurationHelpers(t *testing.T) {
	session := SessionConfig{Timeout: 3600}
	if session.GetTimeoutDuration() != time.Hour {
		t.Errorf("Expected 1 hour, got %v", session.GetTimeoutDuration())
	}

	transcription := TranscriptionConfig{Timeout: 300}
	if transcription.GetTimeoutDuration() != 5*time.Minute {
		t.Errorf("Expected 5 minutes, got %v", transcription.GetTimeoutDuration())
	}

	cleanup := CleanupConfig{Timeout: 30}
	if cleanup.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", cleanup.GetTimeoutDuration())
	}

	audio := AudioConfig{ChunkDuration: 30}
	if audio.GetChunkDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", audio.GetChunkDuration())
	}
}
