package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultServerURL = "http://localhost:8001"

// Config stores runtime configuration for the journaling client.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	Rules   RulesConfig   `yaml:"rules"`
	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	URL       string `yaml:"url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Timeout is zero when requests are bounded only by their context.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

type AudioConfig struct {
	RecorderCommand string `yaml:"recorder_command"`
	PlayerCommand   string `yaml:"player_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	ChunkSize       int    `yaml:"chunk_size"`
}

type RulesConfig struct {
	Path           string `yaml:"path"`
	IterationLimit int    `yaml:"iteration_limit"`
}

// JournalConfig enables the sqlite transcript mirror when Path is set.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig enables the /metrics listener when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load resolves configuration in order: defaults, a .env file in the working
// directory (never overriding the real environment), the YAML file named by
// TIMESCRIBE_CONFIG, then environment variables.
func Load() (Config, error) {
	if err := loadDotEnv(envOrDefault("TIMESCRIBE_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg, err := defaults()
	if err != nil {
		return Config{}, err
	}

	if path := strings.TrimSpace(os.Getenv("TIMESCRIBE_CONFIG")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	cfg.sanitize()
	return cfg, nil
}

func defaults() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	rulesPath := filepath.Join(home, ".config", "timescribe", "substitutions.rules")
	if _, err := os.Stat(rulesPath); err != nil {
		rulesPath = ""
	}

	return Config{
		Server: ServerConfig{URL: DefaultServerURL},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			PlayerCommand:   "ffplay",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      48000,
			Channels:        1,
			ChunkSize:       4096,
		},
		Rules: RulesConfig{Path: rulesPath, IterationLimit: 30},
		Log:   LogConfig{Level: "info", Format: "text"},
	}, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.URL = envOrDefault("TIMESCRIBE_SERVER_URL", cfg.Server.URL)
	cfg.Server.TimeoutMS = envOrDefaultInt("TIMESCRIBE_HTTP_TIMEOUT_MS", cfg.Server.TimeoutMS)

	cfg.Audio.RecorderCommand = envOrDefault("TIMESCRIBE_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.PlayerCommand = envOrDefault("TIMESCRIBE_PLAYER_COMMAND", cfg.Audio.PlayerCommand)
	cfg.Audio.InputFormat = envOrDefault("TIMESCRIBE_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = envOrDefault("TIMESCRIBE_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.SampleRate = envOrDefaultInt("TIMESCRIBE_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("TIMESCRIBE_CHANNELS", cfg.Audio.Channels)
	cfg.Audio.ChunkSize = envOrDefaultInt("TIMESCRIBE_AUDIO_CHUNK_SIZE", cfg.Audio.ChunkSize)

	cfg.Rules.Path = envOrDefault("TIMESCRIBE_RULES_FILE", cfg.Rules.Path)
	cfg.Rules.IterationLimit = envOrDefaultInt("TIMESCRIBE_RULE_ITERATION_LIMIT", cfg.Rules.IterationLimit)

	cfg.Journal.Path = envOrDefault("TIMESCRIBE_JOURNAL_PATH", cfg.Journal.Path)
	cfg.Metrics.Addr = envOrDefault("TIMESCRIBE_METRICS_ADDR", cfg.Metrics.Addr)

	cfg.Log.Level = envOrDefault("TIMESCRIBE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("TIMESCRIBE_LOG_FORMAT", cfg.Log.Format)
	cfg.Log.File = envOrDefault("TIMESCRIBE_LOG_FILE", cfg.Log.File)
}

func (c *Config) sanitize() {
	c.Server.URL = strings.TrimSpace(c.Server.URL)
	if c.Server.URL == "" {
		c.Server.URL = DefaultServerURL
	}
	if c.Server.TimeoutMS < 0 {
		c.Server.TimeoutMS = 0
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 48000
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.ChunkSize < 256 {
		c.Audio.ChunkSize = 4096
	}
	if c.Rules.IterationLimit <= 0 {
		c.Rules.IterationLimit = 30
	}
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
