package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment  string           `mapstructure:"environment"`
	Server       ServerConfig     `mapstructure:"server"`
	Database     DatabaseConfig   `mapstructure:"database"`
	YouTube      YouTubeConfig    `mapstructure:"youtube"`
	Captions     CaptionsConfig   `mapstructure:"captions"`
	Audio        AudioConfig      `mapstructure:"audio"`
	Speech       SpeechConfig     `mapstructure:"speech"`
	Pipeline     PipelineConfig   `mapstructure:"pipeline"`
	Usage        UsageConfig      `mapstructure:"usage"`
	Cache        CacheConfig      `mapstructure:"cache"`
	Storage      StorageConfig    `mapstructure:"storage"`
	Processing   ProcessingConfig `mapstructure:"processing"`
	RateLimiting RateLimitConfig  `mapstructure:"rate_limiting"`
	Logging      LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxRequestBytes int64         `mapstructure:"max_request_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// YouTubeConfig contains video platform client settings
type YouTubeConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	InnertubeURL      string        `mapstructure:"innertube_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MetadataTTL       time.Duration `mapstructure:"metadata_ttl"`
}

// CaptionsConfig contains caption fetch settings
type CaptionsConfig struct {
	MaxAttempts      int           `mapstructure:"max_attempts"`
	BaseDelay        time.Duration `mapstructure:"base_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	MaxSize          int64         `mapstructure:"max_size"`
	DefaultLanguages []string      `mapstructure:"default_languages"`
}

// AudioConfig contains audio rendition settings
type AudioConfig struct {
	Identities  []string      `mapstructure:"identities"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	ChunkSize   int64         `mapstructure:"chunk_size"`
	MaxBytes    int64         `mapstructure:"max_bytes"`
}

// SpeechConfig contains speech-to-text settings
type SpeechConfig struct {
	Prefer            string             `mapstructure:"prefer"` // auto, remote or local
	RemoteMaxDuration time.Duration      `mapstructure:"remote_max_duration"`
	Local             LocalSpeechConfig  `mapstructure:"local"`
	Remote            RemoteSpeechConfig `mapstructure:"remote"`
}

// LocalSpeechConfig contains local engine settings
type LocalSpeechConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	FFmpegPath     string        `mapstructure:"ffmpeg_path"`
	WhisperPath    string        `mapstructure:"whisper_path"`
	ModelDir       string        `mapstructure:"model_dir"`
	Threads        int           `mapstructure:"threads"`
	Window         time.Duration `mapstructure:"window"`
	Overlap        time.Duration `mapstructure:"overlap"`
	ShortThreshold time.Duration `mapstructure:"short_threshold"`
	LongThreshold  time.Duration `mapstructure:"long_threshold"`
	ShortModel     string        `mapstructure:"short_model"`
	MediumModel    string        `mapstructure:"medium_model"`
	LongModel      string        `mapstructure:"long_model"`
	DecodeTimeout  time.Duration `mapstructure:"decode_timeout"`
}

// RemoteSpeechConfig contains remote transcription API settings
type RemoteSpeechConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	SpeechModel     string        `mapstructure:"speech_model"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	MinPollInterval time.Duration `mapstructure:"min_poll_interval"`
	MaxPollInterval time.Duration `mapstructure:"max_poll_interval"`
	PollPerMB       time.Duration `mapstructure:"poll_per_mb"`
	GrowthAfter     int           `mapstructure:"growth_after"`
	GrowthFactor    float64       `mapstructure:"growth_factor"`
	MaxWait         time.Duration `mapstructure:"max_wait"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// PipelineConfig contains cascade timeouts
type PipelineConfig struct {
	RequestTimeout time.Duration       `mapstructure:"request_timeout"`
	StageTimeouts  StageTimeoutsConfig `mapstructure:"stage_timeouts"`
}

// StageTimeoutsConfig holds one budget per cascade stage
type StageTimeoutsConfig struct {
	Captions       time.Duration `mapstructure:"captions"`
	RemoteSpeech   time.Duration `mapstructure:"remote_speech"`
	LocalSpeech    time.Duration `mapstructure:"local_speech"`
	ClientFallback time.Duration `mapstructure:"client_fallback"`
}

// UsageConfig contains quota ledger settings
type UsageConfig struct {
	Backend               string `mapstructure:"backend"` // sqlite or redis
	DefaultGrantedMinutes int64  `mapstructure:"default_granted_minutes"`
	RedisURL              string `mapstructure:"redis_url"`
	KeyPrefix             string `mapstructure:"key_prefix"`
}

// CacheConfig contains transcript cache settings
type CacheConfig struct {
	Freshness time.Duration     `mapstructure:"freshness"`
	Memory    MemoryCacheConfig `mapstructure:"memory"`
	RedisURL  string            `mapstructure:"redis_url"`
	KeyPrefix string            `mapstructure:"key_prefix"`
}

// MemoryCacheConfig contains in-memory cache settings
type MemoryCacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxEntries      int           `mapstructure:"max_entries"`
}

// StorageConfig contains storage settings
type StorageConfig struct {
	TempDir         string        `mapstructure:"temp_dir"`
	MaxTempAge      time.Duration `mapstructure:"max_temp_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// ProcessingConfig contains async job settings
type ProcessingConfig struct {
	Workers      int           `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
	JobRetention time.Duration `mapstructure:"job_retention"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	TranscriptsRPS   int  `mapstructure:"transcripts_rps"`
	TranscriptsBurst int  `mapstructure:"transcripts_burst"`
	DefaultRPS       int  `mapstructure:"default_rps"`
	DefaultBurst     int  `mapstructure:"default_burst"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}
