// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the application reads from the environment.
type Config struct {
	// Azure speech credentials for remote synthesis. When the key is
	// empty the application runs with local synthesis only.
	AzureSpeechKey    string `env:"AZURE_SPEECH_KEY"`
	AzureSpeechRegion string `env:"AZURE_SPEECH_REGION" envDefault:"eastus"`
	Voice             string `env:"SOUSVOX_VOICE" envDefault:"en-US-AvaNeural"`

	// Whisper transcription.
	WhisperBin     string        `env:"SOUSVOX_WHISPER_BIN" envDefault:"whisper"`
	WhisperModel   string        `env:"SOUSVOX_WHISPER_MODEL" envDefault:"base.en"`
	RecordDuration time.Duration `env:"SOUSVOX_RECORD_DURATION" envDefault:"2s"`

	// Audio cache.
	CacheDir  string `env:"SOUSVOX_CACHE_DIR" envDefault:".sousvox-cache"`
	DiskCache bool   `env:"SOUSVOX_DISK_CACHE" envDefault:"true"`

	// Matching.
	FuzzyThreshold float64 `env:"SOUSVOX_FUZZY_THRESHOLD" envDefault:"0.6"`

	// Trailing delay before capture resumes after feedback playback.
	ResumeDelay time.Duration `env:"SOUSVOX_RESUME_DELAY" envDefault:"400ms"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		return nil, fmt.Errorf("fuzzy threshold %v out of range (0, 1]", cfg.FuzzyThreshold)
	}
	return cfg, nil
}

// RemoteSpeechEnabled reports whether Azure synthesis is configured.
func (c *Config) RemoteSpeechEnabled() bool {
	return c.AzureSpeechKey != ""
}
