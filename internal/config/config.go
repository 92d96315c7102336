package config

import "time"

// Engine kinds accepted in EngineConfig.Kind.
const (
	EngineLiveKit = "livekit"
	EngineJitsi   = "jitsi"
)

// Config holds configuration for every subcommand.
type Config struct {
	LogLevel  string       `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string       `mapstructure:"log_format" yaml:"log_format"`
	Server    ServerConfig `mapstructure:"server" yaml:"server"`
	Engine    EngineConfig `mapstructure:"engine" yaml:"engine"`
	Agent     AgentConfig  `mapstructure:"agent" yaml:"agent"`
}

// ServerConfig configures the backend capacity service (serve).
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	Managers    []string      `mapstructure:"managers" yaml:"managers"`

	// RedisURL enables capacity publishing when set.
	RedisURL    string        `mapstructure:"redis_url" yaml:"redis_url"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl" yaml:"snapshot_ttl"`

	// ActivityRateLimit is the number of activity records a user may post per minute. 0 disables it.
	ActivityRateLimit int `mapstructure:"activity_rate_limit" yaml:"activity_rate_limit"`

	// ArchiveInterval of 0 disables the inactive room archiver.
	ArchiveInterval time.Duration `mapstructure:"archive_interval" yaml:"archive_interval"`
	ArchiveMaxIdle  time.Duration `mapstructure:"archive_max_idle" yaml:"archive_max_idle"`
}

// EngineConfig selects and configures the conferencing engine.
type EngineConfig struct {
	Kind string `mapstructure:"kind" yaml:"kind"`

	LiveKitURL       string `mapstructure:"livekit_url" yaml:"livekit_url"`
	LiveKitAPIKey    string `mapstructure:"livekit_api_key" yaml:"livekit_api_key"`
	LiveKitAPISecret string `mapstructure:"livekit_api_secret" yaml:"livekit_api_secret"`

	JitsiDomain    string `mapstructure:"jitsi_domain" yaml:"jitsi_domain"`
	JitsiAppID     string `mapstructure:"jitsi_app_id" yaml:"jitsi_app_id"`
	JitsiAppSecret string `mapstructure:"jitsi_app_secret" yaml:"jitsi_app_secret"`

	StartAudioMuted bool `mapstructure:"start_audio_muted" yaml:"start_audio_muted"`
	StartVideoMuted bool `mapstructure:"start_video_muted" yaml:"start_video_muted"`
}

// AgentConfig configures the tracking agent (attach).
type AgentConfig struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	BackendURL   string `mapstructure:"backend_url" yaml:"backend_url"`
	BackendToken string `mapstructure:"backend_token" yaml:"backend_token"`

	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	TeardownTimeout time.Duration `mapstructure:"teardown_timeout" yaml:"teardown_timeout"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`

	// OriginPatterns restricts which page origins may connect. Empty allows all.
	OriginPatterns []string `mapstructure:"origin_patterns" yaml:"origin_patterns"`

	// RenderTerminal draws capacity bars on stderr.
	RenderTerminal bool `mapstructure:"render_terminal" yaml:"render_terminal"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "console",
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			DatabasePath:      "wirepresence.db",
			JWTSecret:         "change-me",
			JWTIssuer:         "wirepresence",
			JWTAudience:       "wirepresence",
			JWTTTL:            24 * time.Hour,
			SnapshotTTL:       time.Hour,
			ActivityRateLimit: 120,
			ArchiveInterval:   time.Hour,
			ArchiveMaxIdle:    30 * 24 * time.Hour,
		},
		Engine: EngineConfig{
			Kind:            EngineJitsi,
			JitsiDomain:     "meet.jit.si",
			StartAudioMuted: true,
		},
		Agent: AgentConfig{
			Addr:            ":8090",
			BackendURL:      "http://localhost:8080",
			RequestTimeout:  10 * time.Second,
			TeardownTimeout: 3 * time.Second,
			MaxMessageBytes: 1 << 20,
		},
	}
}
