// Package config provides configuration loading for scribed.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for scribed.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	LLM      LLMConfig      `koanf:"llm"`
	Corpus   CorpusConfig   `koanf:"corpus"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LLMConfig holds the text-completion backend settings.
//
// AnalysisModel is used for directory-role and per-file analysis calls,
// DraftModel for outline and article generation. This mirrors the usual
// cheap-model/strong-model split.
type LLMConfig struct {
	BaseURL       string `koanf:"base_url"`
	APIKey        Secret `koanf:"api_key"`
	AnalysisModel string `koanf:"analysis_model"`
	DraftModel    string `koanf:"draft_model"`
}

// CorpusConfig controls which files are read into the corpus.
type CorpusConfig struct {
	// MaxFileSize is the per-file byte ceiling. Files above it are skipped.
	MaxFileSize int64 `koanf:"max_file_size"`

	// MaxFileChars is the per-file decoded length ceiling.
	MaxFileChars int `koanf:"max_file_chars"`

	// SkipDirs are directory names excluded at every depth.
	SkipDirs []string `koanf:"skip_dirs"`

	// DisallowedExtensions are file extensions excluded from the corpus.
	DisallowedExtensions []string `koanf:"disallowed_extensions"`
}

// PipelineConfig controls generation behavior.
type PipelineConfig struct {
	// Strategy selects the drafting strategy: "per_chapter" or "whole_document".
	Strategy string `koanf:"strategy"`

	// MaxContinuationRounds bounds sentinel-driven continuation calls.
	MaxContinuationRounds int `koanf:"max_continuation_rounds"`

	// Language is the default explanation language code.
	Language string `koanf:"language"`

	// TargetAudience is the default audience description.
	TargetAudience string `koanf:"target_audience"`

	// Tone is the default article tone.
	Tone string `koanf:"tone"`
}

// LoggingConfig holds zap logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		LLM: LLMConfig{
			BaseURL:       "https://api.openai.com/v1",
			AnalysisModel: "o3-mini",
			DraftModel:    "gpt-4o",
		},
		Corpus: CorpusConfig{
			MaxFileSize:  20 * 1024 * 1024,
			MaxFileChars: 20000,
			SkipDirs: []string{
				".git", ".svn", ".hg",
				"node_modules", "vendor",
				".venv", "venv", "__pycache__",
				".idea", ".vscode", ".cache",
				"dist", "build", ".next", "target",
			},
			DisallowedExtensions: []string{
				".lock",
				".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".tiff", ".ico",
				".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv",
				".mp3", ".wav", ".aac", ".flac", ".ogg", ".m4a",
				".zip", ".rar", ".7z", ".tar", ".gz", ".bz2", ".xz",
				".exe", ".dll", ".so", ".bin", ".app", ".msi", ".deb", ".rpm",
				".ttf", ".otf", ".woff", ".woff2",
				".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
			},
		},
		Pipeline: PipelineConfig{
			Strategy:              "per_chapter",
			MaxContinuationRounds: 10,
			Language:              "ja",
			TargetAudience:        "general engineers",
			Tone:                  "casual but technically grounded",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Corpus.MaxFileSize <= 0 {
		return fmt.Errorf("corpus.max_file_size must be positive, got %d", c.Corpus.MaxFileSize)
	}
	if c.Corpus.MaxFileChars <= 0 {
		return fmt.Errorf("corpus.max_file_chars must be positive, got %d", c.Corpus.MaxFileChars)
	}
	if c.Pipeline.MaxContinuationRounds < 1 {
		return fmt.Errorf("pipeline.max_continuation_rounds must be at least 1, got %d", c.Pipeline.MaxContinuationRounds)
	}
	switch c.Pipeline.Strategy {
	case "per_chapter", "whole_document":
	default:
		return fmt.Errorf("pipeline.strategy must be per_chapter or whole_document, got %q", c.Pipeline.Strategy)
	}
	return nil
}
