// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port            int           `yaml:"port" env:"ECHOBOOK_PORT"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RateLimit       int           `yaml:"rate_limit"`  // requests per window on mutating routes, 0 = off
	RateWindow      time.Duration `yaml:"rate_window"` // fixed window length
}

type LogConfig struct {
	Level    string `yaml:"level" env:"ECHOBOOK_LOG_LEVEL"` // trace|debug|info|warn|error
	Format   string `yaml:"format"`                         // json|console
	Sampling bool   `yaml:"sampling"`                       // enable sampling in prod
}

type StorageConfig struct {
	JobsDir string `yaml:"jobs_dir" env:"ECHOBOOK_JOBS_DIR"`
	Backend string `yaml:"backend"` // local | s3
}

type WorkerConfig struct {
	Size      int `yaml:"size"`
	QueueSize int `yaml:"queue_size"`
}

type PipelineConfig struct {
	// Concurrency > 1 synthesizes pages of one job in parallel; order is restored before assembly.
	Concurrency int `yaml:"concurrency"`
}

type ProviderConfig struct {
	Name           string        `yaml:"name" env:"ECHOBOOK_PROVIDER"` // resemble | openai | gemini
	DefaultVoice   string        `yaml:"default_voice" env:"ECHOBOOK_DEFAULT_VOICE"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	MaxRetries     int           `yaml:"max_retries"`

	Resemble ResembleConfig `yaml:"resemble"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Gemini   GeminiConfig   `yaml:"gemini"`
}

type ResembleConfig struct {
	APIKey      string `yaml:"api_key" env:"RESEMBLE_API"`
	BaseURL     string `yaml:"base_url"`
	ProjectUUID string `yaml:"project_uuid" env:"RESEMBLE_PROJECT"`
	SampleRate  int    `yaml:"sample_rate"`
	Precision   string `yaml:"precision"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key" env:"GEMINI_API_KEY"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type VoiceConfig struct {
	AllowedExtensions []string `yaml:"allowed_extensions"`
	UploadTakes       int      `yaml:"upload_takes"`
	SampleRate        int      `yaml:"sample_rate"`
	Channels          int      `yaml:"channels"`
	BitDepth          int      `yaml:"bit_depth"`
}

type AudioConfig struct {
	OutputFormat string `yaml:"output_format"` // wav | mp3
	FFmpegPath   string `yaml:"ffmpeg_path" env:"ECHOBOOK_FFMPEG"`
}

type RedisConfig struct {
	URL      string `yaml:"url" env:"REDIS_URL"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
	Region    string `yaml:"region" env:"S3_REGION"`
	Secure    bool   `yaml:"secure"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Worker   WorkerConfig   `yaml:"worker"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Provider ProviderConfig `yaml:"provider"`
	Voice    VoiceConfig    `yaml:"voice"`
	Audio    AudioConfig    `yaml:"audio"`
	Redis    RedisConfig    `yaml:"redis"`
	S3       S3Config       `yaml:"s3"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (a missing file is allowed), applies
// .env and environment overrides, fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only deployment
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 5 * time.Minute
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 100
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.RateWindow <= 0 {
		cfg.Server.RateWindow = time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Storage.JobsDir == "" {
		cfg.Storage.JobsDir = "jobs"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Worker.Size <= 0 {
		cfg.Worker.Size = 4
	}
	if cfg.Worker.QueueSize <= 0 {
		cfg.Worker.QueueSize = cfg.Worker.Size * 16
	}
	if cfg.Pipeline.Concurrency <= 0 {
		cfg.Pipeline.Concurrency = 1
	}

	p := &cfg.Provider
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if p.Name == "" {
		p.Name = "resemble"
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = 120 * time.Second
	}
	if p.Resemble.BaseURL == "" {
		p.Resemble.BaseURL = "https://app.resemble.ai/api/v2"
	}
	if p.Resemble.SampleRate == 0 {
		p.Resemble.SampleRate = 22050
	}
	if p.Resemble.Precision == "" {
		p.Resemble.Precision = "PCM_16"
	}
	if p.OpenAI.Model == "" {
		p.OpenAI.Model = "gpt-4o-mini-tts"
	}
	if p.Gemini.Model == "" {
		p.Gemini.Model = "gemini-2.5-flash-preview-tts"
	}

	if len(cfg.Voice.AllowedExtensions) == 0 {
		cfg.Voice.AllowedExtensions = []string{".wav", ".mp3", ".m4a", ".flac", ".ogg", ".webm"}
	}
	if cfg.Voice.UploadTakes <= 0 {
		cfg.Voice.UploadTakes = 3
	}
	if cfg.Voice.SampleRate == 0 {
		cfg.Voice.SampleRate = 22050
	}
	if cfg.Voice.Channels == 0 {
		cfg.Voice.Channels = 1
	}
	if cfg.Voice.BitDepth == 0 {
		cfg.Voice.BitDepth = 16
	}

	cfg.Audio.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.Audio.OutputFormat))
	if cfg.Audio.OutputFormat == "" {
		cfg.Audio.OutputFormat = "wav"
	}
	if cfg.Audio.FFmpegPath == "" {
		cfg.Audio.FFmpegPath = "ffmpeg"
	}
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "resemble":
		if c.Provider.Resemble.APIKey == "" {
			return errors.New("provider.resemble.api_key (RESEMBLE_API) is required")
		}
	case "openai":
		if c.Provider.OpenAI.APIKey == "" {
			return errors.New("provider.openai.api_key (OPENAI_API_KEY) is required")
		}
	case "gemini":
		if c.Provider.Gemini.APIKey == "" {
			return errors.New("provider.gemini.api_key (GEMINI_API_KEY) is required")
		}
	default:
		return fmt.Errorf("unknown provider.name %q", c.Provider.Name)
	}

	switch c.Audio.OutputFormat {
	case "wav", "mp3":
	default:
		return fmt.Errorf("unsupported audio.output_format %q", c.Audio.OutputFormat)
	}

	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			return errors.New("s3.endpoint and s3.bucket are required for storage.backend=s3")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}
