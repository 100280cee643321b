package config

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

type ServerConfig struct {
	Scheme string `koanf:"scheme" default:"http"`
	Port   int    `koanf:"port" default:"8084"`
	Host   string `koanf:"host" default:"localhost"`

	ReadTimeout     time.Duration `koanf:"read_timeout" default:"5s"`
	WriteTimeout    time.Duration `koanf:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" default:"30s"`

	AllowOrigins []string `koanf:"alloworigins" default:"[]"`
	HealthCheck  bool     `koanf:"health_check" default:"true"`
}

func (s *ServerConfig) GetServerURL() string {
	return s.Scheme + "://" + s.Host + ":" + strconv.Itoa(s.Port)
}

type APPConfig struct {
	Environtment string        `koanf:"environtment" default:"development"`
	LogLevel     zerolog.Level `koanf:"log_level" default:"debug"`
}

type CacheSettings struct {
	BadgerPath string `koanf:"badger_path" default:""`
	InMemory   bool   `koanf:"in_memory" default:"true"`

	// Bucket widths for the time-keyed status caches. Lookups inside the
	// same bucket address the same key, so these double as TTLs.
	ScanBucket time.Duration `koanf:"scan_bucket" default:"5s"`
	TestBucket time.Duration `koanf:"test_bucket" default:"10s"`
}

type UpstreamConfig struct {
	BaseURL     string        `koanf:"base_url" default:"http://localhost:9080"`
	TestPrompt  string        `koanf:"test_prompt" default:"ping"`
	TestTimeout time.Duration `koanf:"test_timeout" default:"10s"`
}

type CoordinatorConfig struct {
	ScanInterval      time.Duration `koanf:"scan_interval" default:"15s"`
	ReleaseGraceDelay time.Duration `koanf:"release_grace_delay" default:"100ms"`
	TestConcurrency   int           `koanf:"test_concurrency" default:"8"`
	RunAtStartup      bool          `koanf:"run_at_startup" default:"true"`

	// Records stuck in checking longer than StaleAfter are flagged as
	// errored by the watchdog job. Zero disables the watchdog.
	StaleAfter time.Duration `koanf:"stale_after" default:"30s"`
}

type ProviderConfig struct {
	// Provider ids tracked by the registry. Fixed for the process lifetime.
	Enabled []string `koanf:"enabled" default:"[openai,anthropic,gemini,mistral,cohere]"`
}

type Config struct {
	APP         APPConfig
	Server      ServerConfig
	Cache       CacheSettings
	Upstream    UpstreamConfig
	Coordinator CoordinatorConfig
	Provider    ProviderConfig
}
