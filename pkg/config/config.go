package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// EnvPrefix is prepended to every environment override, e.g. READTUBE_SERVER_PORT.
const EnvPrefix = "READTUBE"

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		// .env is optional; real environment variables win over it
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			initErr = fmt.Errorf("error loading .env: %w", err)
			return
		}

		setDefaults()

		viper.SetEnvPrefix(EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		cfg, err := GetConfig()
		if err != nil {
			initErr = err
			return
		}
		if err := cfg.Validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// Reset clears viper state and allows Init to run again. Tests only.
func Reset() {
	viper.Reset()
	once = sync.Once{}
	initErr = nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// Set overrides a config value at runtime (CLI flags)
func Set(key string, value any) {
	viper.Set(key, value)
}

// Validate validates a Config struct
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Speech.Prefer {
	case "auto", "remote", "local":
	default:
		return fmt.Errorf("invalid speech.prefer %q: want auto, remote or local", c.Speech.Prefer)
	}

	local := c.Speech.Local
	if local.ShortThreshold <= 0 || local.LongThreshold <= local.ShortThreshold {
		return fmt.Errorf("speech.local thresholds must satisfy 0 < short (%s) < long (%s)",
			local.ShortThreshold, local.LongThreshold)
	}
	if local.Overlap >= local.Window {
		return fmt.Errorf("speech.local.overlap (%s) must be shorter than window (%s)", local.Overlap, local.Window)
	}

	switch c.Usage.Backend {
	case "sqlite":
	case "redis":
		if c.Usage.RedisURL == "" {
			return fmt.Errorf("usage.redis_url is required when usage.backend is redis")
		}
	default:
		return fmt.Errorf("invalid usage.backend %q: want sqlite or redis", c.Usage.Backend)
	}

	if c.Cache.Freshness <= 0 {
		return fmt.Errorf("cache.freshness must be positive")
	}

	if c.Processing.Workers < 0 {
		c.Processing.Workers = 0
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 11*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 15*time.Second)
	viper.SetDefault("server.max_header_bytes", 1<<20)
	viper.SetDefault("server.max_request_bytes", 4<<20)

	// Database defaults
	viper.SetDefault("database.path", "./data/readtube.db")
	viper.SetDefault("database.verbose", false)

	// Video platform defaults
	viper.SetDefault("youtube.base_url", "https://www.youtube.com")
	viper.SetDefault("youtube.innertube_url", "https://www.youtube.com/youtubei/v1/player")
	viper.SetDefault("youtube.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	viper.SetDefault("youtube.timeout", 15*time.Second)
	viper.SetDefault("youtube.requests_per_second", 5.0)
	viper.SetDefault("youtube.burst", 10)
	viper.SetDefault("youtube.metadata_ttl", 24*time.Hour)

	// Caption defaults
	viper.SetDefault("captions.max_attempts", 3)
	viper.SetDefault("captions.base_delay", time.Second)
	viper.SetDefault("captions.max_delay", 5*time.Second)
	viper.SetDefault("captions.max_size", 5<<20)
	viper.SetDefault("captions.default_languages", []string{"en", "en-US", "en-GB"})

	// Audio defaults
	viper.SetDefault("audio.identities", []string{"ANDROID", "IOS", "TVHTML5_SIMPLY_EMBEDDED_PLAYER"})
	viper.SetDefault("audio.max_attempts", 3)
	viper.SetDefault("audio.backoff_base", time.Second)
	viper.SetDefault("audio.chunk_size", 4<<20)
	viper.SetDefault("audio.max_bytes", 500<<20)

	// Speech defaults
	viper.SetDefault("speech.prefer", "auto")
	viper.SetDefault("speech.remote_max_duration", 2*time.Hour)

	viper.SetDefault("speech.local.enabled", true)
	viper.SetDefault("speech.local.ffmpeg_path", "ffmpeg")
	viper.SetDefault("speech.local.whisper_path", "whisper-cli")
	viper.SetDefault("speech.local.model_dir", "./models")
	viper.SetDefault("speech.local.threads", 4)
	viper.SetDefault("speech.local.window", 20*time.Second)
	viper.SetDefault("speech.local.overlap", 2*time.Second)
	viper.SetDefault("speech.local.short_threshold", 3*time.Minute)
	viper.SetDefault("speech.local.long_threshold", 10*time.Minute)
	viper.SetDefault("speech.local.short_model", "tiny")
	viper.SetDefault("speech.local.medium_model", "base")
	viper.SetDefault("speech.local.long_model", "tiny")
	viper.SetDefault("speech.local.decode_timeout", 10*time.Minute)

	viper.SetDefault("speech.remote.api_key", "")
	viper.SetDefault("speech.remote.base_url", "https://api.assemblyai.com")
	viper.SetDefault("speech.remote.speech_model", "best")
	viper.SetDefault("speech.remote.http_timeout", 2*time.Minute)
	viper.SetDefault("speech.remote.min_poll_interval", 3*time.Second)
	viper.SetDefault("speech.remote.max_poll_interval", 10*time.Second)
	viper.SetDefault("speech.remote.poll_per_mb", 250*time.Millisecond)
	viper.SetDefault("speech.remote.growth_after", 3)
	viper.SetDefault("speech.remote.growth_factor", 1.2)
	viper.SetDefault("speech.remote.max_wait", 5*time.Minute)
	viper.SetDefault("speech.remote.max_upload_bytes", 200<<20)

	// Pipeline defaults
	viper.SetDefault("pipeline.request_timeout", 10*time.Minute)
	viper.SetDefault("pipeline.stage_timeouts.captions", 45*time.Second)
	viper.SetDefault("pipeline.stage_timeouts.remote_speech", 6*time.Minute)
	viper.SetDefault("pipeline.stage_timeouts.local_speech", 8*time.Minute)
	viper.SetDefault("pipeline.stage_timeouts.client_fallback", 10*time.Second)

	// Usage defaults
	viper.SetDefault("usage.backend", "sqlite")
	viper.SetDefault("usage.default_granted_minutes", 60)
	viper.SetDefault("usage.redis_url", "")
	viper.SetDefault("usage.key_prefix", "readtube:usage:")

	// Cache defaults
	viper.SetDefault("cache.freshness", 7*24*time.Hour)
	viper.SetDefault("cache.memory.ttl", time.Hour)
	viper.SetDefault("cache.memory.cleanup_interval", 5*time.Minute)
	viper.SetDefault("cache.memory.max_entries", 1000)
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.key_prefix", "readtube:transcript:")

	// Storage defaults
	viper.SetDefault("storage.temp_dir", "./tmp")
	viper.SetDefault("storage.max_temp_age", 6*time.Hour)
	viper.SetDefault("storage.cleanup_interval", 30*time.Minute)

	// Processing defaults
	viper.SetDefault("processing.workers", 2)
	viper.SetDefault("processing.poll_interval", 2*time.Second)
	viper.SetDefault("processing.max_retries", 2)
	viper.SetDefault("processing.job_retention", 7*24*time.Hour)

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.transcripts_rps", 2)
	viper.SetDefault("rate_limiting.transcripts_burst", 5)
	viper.SetDefault("rate_limiting.default_rps", 10)
	viper.SetDefault("rate_limiting.default_burst", 20)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.file_path", "./logs/readtube.log")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 10)
	viper.SetDefault("logging.max_age", 30)
	viper.SetDefault("logging.compress", true)
}
