package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points HOME and the .env lookup at a temp dir and clears every key
// Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TIMESCRIBE_ENV_FILE", filepath.Join(home, "missing.env"))
	for _, key := range []string{
		"TIMESCRIBE_CONFIG",
		"TIMESCRIBE_SERVER_URL",
		"TIMESCRIBE_HTTP_TIMEOUT_MS",
		"TIMESCRIBE_FFMPEG_COMMAND",
		"TIMESCRIBE_PLAYER_COMMAND",
		"TIMESCRIBE_AUDIO_INPUT_FORMAT",
		"TIMESCRIBE_AUDIO_INPUT_DEVICE",
		"TIMESCRIBE_SAMPLE_RATE",
		"TIMESCRIBE_CHANNELS",
		"TIMESCRIBE_AUDIO_CHUNK_SIZE",
		"TIMESCRIBE_RULES_FILE",
		"TIMESCRIBE_RULE_ITERATION_LIMIT",
		"TIMESCRIBE_JOURNAL_PATH",
		"TIMESCRIBE_METRICS_ADDR",
		"TIMESCRIBE_LOG_LEVEL",
		"TIMESCRIBE_LOG_FORMAT",
		"TIMESCRIBE_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.URL != DefaultServerURL {
		t.Fatalf("unexpected server url %q", cfg.Server.URL)
	}
	if cfg.Server.Timeout() != 0 {
		t.Fatalf("expected no default timeout, got %s", cfg.Server.Timeout())
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Channels != 1 || cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("unexpected audio defaults %#v", cfg.Audio)
	}
	if cfg.Audio.RecorderCommand != "ffmpeg" || cfg.Audio.PlayerCommand != "ffplay" {
		t.Fatalf("unexpected commands %#v", cfg.Audio)
	}
	if cfg.Rules.Path != "" || cfg.Rules.IterationLimit != 30 {
		t.Fatalf("unexpected rules defaults %#v", cfg.Rules)
	}
	if cfg.Journal.Path != "" || cfg.Metrics.Addr != "" {
		t.Fatalf("journal and metrics should be disabled by default")
	}
}

func TestLoadPicksUpDefaultRulesFile(t *testing.T) {
	home := isolate(t)
	rules := filepath.Join(home, ".config", "timescribe", "substitutions.rules")
	if err := os.MkdirAll(filepath.Dir(rules), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(rules, []byte("a => b\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Rules.Path != rules {
		t.Fatalf("expected default rules file, got %q", cfg.Rules.Path)
	}
}

func TestLoadRespectsOverridesAndFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("TIMESCRIBE_SERVER_URL", "http://journal.local:9000")
	t.Setenv("TIMESCRIBE_HTTP_TIMEOUT_MS", "2500")
	t.Setenv("TIMESCRIBE_FFMPEG_COMMAND", "/usr/bin/ffmpeg")
	t.Setenv("TIMESCRIBE_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("TIMESCRIBE_AUDIO_INPUT_DEVICE", "hw:1")
	t.Setenv("TIMESCRIBE_SAMPLE_RATE", "-1")
	t.Setenv("TIMESCRIBE_CHANNELS", "2")
	t.Setenv("TIMESCRIBE_AUDIO_CHUNK_SIZE", "12")
	t.Setenv("TIMESCRIBE_RULE_ITERATION_LIMIT", "nope")
	t.Setenv("TIMESCRIBE_METRICS_ADDR", "127.0.0.1:9464")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.URL != "http://journal.local:9000" || cfg.Server.Timeout() != 2500*time.Millisecond {
		t.Fatalf("unexpected server config %#v", cfg.Server)
	}
	if cfg.Audio.InputFormat != "alsa" || cfg.Audio.InputDevice != "hw:1" || cfg.Audio.Channels != 2 {
		t.Fatalf("unexpected audio overrides %#v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Fatalf("expected invalid sample rate to fall back, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ChunkSize != 4096 {
		t.Fatalf("expected small chunk size to fall back, got %d", cfg.Audio.ChunkSize)
	}
	if cfg.Rules.IterationLimit != 30 {
		t.Fatalf("expected unparsable limit to fall back, got %d", cfg.Rules.IterationLimit)
	}
	if cfg.Metrics.Addr != "127.0.0.1:9464" {
		t.Fatalf("unexpected metrics addr %q", cfg.Metrics.Addr)
	}
}

func TestLoadYAMLOverlayThenEnvWins(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "timescribe.yaml")
	yamlConfig := `
server:
  url: http://from-yaml:8001
  timeout_ms: 1000
audio:
  input_device: yaml-mic
journal:
  path: /tmp/journal.db
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yamlConfig), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("TIMESCRIBE_CONFIG", path)
	t.Setenv("TIMESCRIBE_AUDIO_INPUT_DEVICE", "env-mic")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.URL != "http://from-yaml:8001" || cfg.Server.TimeoutMS != 1000 {
		t.Fatalf("yaml server values not applied: %#v", cfg.Server)
	}
	if cfg.Audio.InputDevice != "env-mic" {
		t.Fatalf("env should win over yaml, got %q", cfg.Audio.InputDevice)
	}
	if cfg.Audio.InputFormat != "pulse" {
		t.Fatalf("yaml should keep unspecified defaults, got %q", cfg.Audio.InputFormat)
	}
	if cfg.Journal.Path != "/tmp/journal.db" || cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Fatalf("yaml values not applied: %#v %#v", cfg.Journal, cfg.Log)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("TIMESCRIBE_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	home := isolate(t)
	envFile := filepath.Join(home, "test.env")
	content := "TIMESCRIBE_DOTENV_PROBE_URL=http://from-dotenv:1\nTIMESCRIBE_DOTENV_PROBE_DEVICE=dotenv-mic\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("TIMESCRIBE_ENV_FILE", envFile)
	t.Setenv("TIMESCRIBE_DOTENV_PROBE_DEVICE", "real-mic")
	// godotenv sets variables directly; register cleanup for the one it adds.
	t.Setenv("TIMESCRIBE_DOTENV_PROBE_URL", "")
	if err := os.Unsetenv("TIMESCRIBE_DOTENV_PROBE_URL"); err != nil {
		t.Fatalf("unsetenv failed: %v", err)
	}

	if _, err := Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := os.Getenv("TIMESCRIBE_DOTENV_PROBE_URL"); got != "http://from-dotenv:1" {
		t.Fatalf("expected dotenv value, got %q", got)
	}
	if got := os.Getenv("TIMESCRIBE_DOTENV_PROBE_DEVICE"); got != "real-mic" {
		t.Fatalf("dotenv must not override the environment, got %q", got)
	}
}

func TestNewLoggerWritesToFallbackAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := LogConfig{Level: "warn"}.NewLogger(&buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timescribe.log")
	logger, closeFn, err := LogConfig{Format: "json", File: path}.NewLogger(nil)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) {
		t.Fatalf("unexpected log file %q", data)
	}
}
