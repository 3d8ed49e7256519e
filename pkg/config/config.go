package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	OCR      OCRConfig      `yaml:"ocr"`
	TTS      TTSConfig      `yaml:"tts"`
	Narrator NarratorConfig `yaml:"narrator"`
	Scroll   ScrollConfig   `yaml:"scroll"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// GeminiConfig holds settings for the Gemini vision OCR engine.
type GeminiConfig struct {
	Key   string `yaml:"key"` // falls back to GEMINI_API_KEY env
	Model string `yaml:"model"`
}

// OCRConfig holds text extraction settings.
type OCRConfig struct {
	Engine       string       `yaml:"engine"` // "tesseract", "gemini"
	Languages    []string     `yaml:"languages"`
	CacheEnabled bool         `yaml:"cache_enabled"`
	Gemini       GeminiConfig `yaml:"gemini"`
}

// EdgeTTSConfig holds settings for Edge TTS.
type EdgeTTSConfig struct {
	VoiceID string `yaml:"voice"` // e.g. "en-US-AvaMultilingualNeural"
}

// SAPIConfig holds settings for the Windows SAPI fallback voice.
type SAPIConfig struct {
	VoiceID string `yaml:"voice"`
}

// TTSConfig holds settings for the local fallback speech engine.
type TTSConfig struct {
	Engine    string        `yaml:"engine"` // "edge_tts", "sapi"
	OutputDir string        `yaml:"output_dir"`
	EdgeTTS   EdgeTTSConfig `yaml:"edge_tts"`
	SAPI      SAPIConfig    `yaml:"sapi"`
}

// NarratorConfig holds settings for the narration sequencer.
type NarratorConfig struct {
	// Pause between consecutive items; PauseMax applies when the next item
	// comes from a different page image.
	PauseMin Duration `yaml:"pause_min"`
	PauseMax Duration `yaml:"pause_max"`
	// Smart-pause visibility gating.
	VisibilityThreshold float64  `yaml:"visibility_threshold"`
	PollInterval        Duration `yaml:"poll_interval"`
	// Attempts on the primary speech engine before falling back.
	EngineRetries int `yaml:"engine_retries"`
}

// ScrollConfig holds settings for the scroll coordinator.
type ScrollConfig struct {
	SettleDelay        Duration `yaml:"settle_delay"`
	Alignment          float64  `yaml:"alignment"` // vertical alignment fraction of viewport height
	AlignmentTolerance float64  `yaml:"alignment_tolerance"`
	EdgeMargin         float64  `yaml:"edge_margin"` // px from viewport edges
	HighlightDuration  Duration `yaml:"highlight_duration"`
	PulseDuration      Duration `yaml:"pulse_duration"`
	UserScrollGrace    Duration `yaml:"user_scroll_grace"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8791",
		},
		Log: LogConfig{
			Path:  "logs/comicvox.log",
			Level: "INFO",
		},
		DB: DBConfig{
			Path: "data/comicvox.db",
		},
		OCR: OCRConfig{
			Engine:       "tesseract",
			Languages:    []string{"eng"},
			CacheEnabled: true,
			Gemini: GeminiConfig{
				Model: "gemini-2.0-flash",
			},
		},
		TTS: TTSConfig{
			Engine:    "edge_tts",
			OutputDir: "data/audio",
			EdgeTTS: EdgeTTSConfig{
				VoiceID: "en-US-AvaMultilingualNeural",
			},
		},
		Narrator: NarratorConfig{
			PauseMin:            Duration(500 * time.Millisecond),
			PauseMax:            Duration(2500 * time.Millisecond),
			VisibilityThreshold: 0.5,
			PollInterval:        Duration(300 * time.Millisecond),
			EngineRetries:       1,
		},
		Scroll: ScrollConfig{
			SettleDelay:        Duration(150 * time.Millisecond),
			Alignment:          0.35,
			AlignmentTolerance: 0.1,
			EdgeMargin:         24,
			HighlightDuration:  Duration(2 * time.Second),
			PulseDuration:      Duration(600 * time.Millisecond),
			UserScrollGrace:    Duration(1500 * time.Millisecond),
		},
	}
}

// Load reads the config file at path, applying defaults for missing values.
// Secrets absent from the file are taken from the environment but never
// written back to disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.OCR.Gemini.Key == "" {
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.OCR.Gemini.Key = key
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Narrator.VisibilityThreshold <= 0 || c.Narrator.VisibilityThreshold > 1 {
		return fmt.Errorf("narrator.visibility_threshold must be in (0, 1], got %v", c.Narrator.VisibilityThreshold)
	}
	if c.Scroll.Alignment < 0 || c.Scroll.Alignment > 1 {
		return fmt.Errorf("scroll.alignment must be in [0, 1], got %v", c.Scroll.Alignment)
	}
	if time.Duration(c.Narrator.PollInterval) <= 0 {
		return fmt.Errorf("narrator.poll_interval must be positive")
	}
	return nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GenerateDefault writes a default config file if none exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
