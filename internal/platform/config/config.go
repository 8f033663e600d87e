package config

import (
	"time"
)

type Config struct {
	Server        ServerConfig              `yaml:"server"`
	Log           LogConfig                 `yaml:"log"`
	Web           WebConfig                 `yaml:"web"`
	Observability ObservabilityConfig       `yaml:"observability"`
	Storage       StorageConfig             `yaml:"storage"`
	Compression   CompressionConfig         `yaml:"compression"`
	Instagram     InstagramConfig           `yaml:"instagram"`
	History       HistoryConfig             `yaml:"history"`
	Security      SecurityConfig            `yaml:"security"`
	Selected      SelectedConfig            `yaml:"selected_module"`
	LLM           map[string]LLMConfig      `yaml:"LLM"`
	ImageGen      map[string]ImageGenConfig `yaml:"ImageGen"`
	TopPrompts    []string                  `yaml:"top_prompts"`
}

type ServerConfig struct {
	IP    string     `yaml:"ip"`
	Port  int        `yaml:"port"`
	Token string     `yaml:"token"`
	Auth  AuthConfig `yaml:"auth"`
}

// AuthConfig 控制变更类接口的 JWT 校验
type AuthConfig struct {
	Enabled bool          `yaml:"enabled"`
	Expiry  time.Duration `yaml:"expiry"`
	Issuer  string        `yaml:"issuer"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled      bool     `yaml:"enabled"`
	StaticDir    string   `yaml:"static_dir"`
	AllowOrigins []string `yaml:"allow_origins"`
}

type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StorageConfig SQLite 持久化（历史记录与发布审计）
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	// AuditRetention 启动时清理更早的发布记录，0 表示永久保留
	AuditRetention time.Duration `yaml:"audit_retention"`
}

// CompressionConfig 图片压缩参数，质量取值范围 (0, 1]
type CompressionConfig struct {
	MaxDimension     int     `yaml:"max_dimension"`
	InitialQuality   float64 `yaml:"initial_quality"`
	MinQuality       float64 `yaml:"min_quality"`
	QualityStep      float64 `yaml:"quality_step"`
	DefaultMaxSizeKB float64 `yaml:"default_max_size_kb"`
}

type InstagramConfig struct {
	Username            string        `yaml:"username"`
	Password            string        `yaml:"password"`
	BaseURL             string        `yaml:"base_url"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	PublishTimeout      time.Duration `yaml:"publish_timeout"`
	PostLoginTimeout    time.Duration `yaml:"post_login_timeout"`
	PostLoginSimulation bool          `yaml:"post_login_simulation"`
	MaxImageBytes       int64         `yaml:"max_image_bytes"`
}

type HistoryConfig struct {
	Driver string             `yaml:"driver"`
	Limit  int                `yaml:"limit"`
	Redis  HistoryRedisConfig `yaml:"redis,omitempty"`
}

type HistoryRedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Key      string `yaml:"key,omitempty"`
}

// SecurityConfig 输入图片的安全限制
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`
	MaxPixels      int64    `yaml:"max_pixels"`
	MaxWidth       int      `yaml:"max_width"`
	MaxHeight      int      `yaml:"max_height"`
	AllowedFormats []string `yaml:"allowed_formats"`
}

type SelectedConfig struct {
	LLM      string `yaml:"LLM"`
	ImageGen string `yaml:"ImageGen"`
}

type LLMConfig struct {
	Type        string  `yaml:"type"`
	ModelName   string  `yaml:"model_name"`
	BaseURL     string  `yaml:"url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type ImageGenConfig struct {
	Type      string `yaml:"type"`
	ModelName string `yaml:"model_name"`
	BaseURL   string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	Size      string `yaml:"size"`
}
