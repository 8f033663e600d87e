package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "github.com/arth-1/socialpost/internal/platform/errors"
)

const (
	EnvInstagramUsername = "IG_USERNAME"
	EnvInstagramPassword = "IG_PASSWORD"
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvPort              = "SOCIALPOST_PORT"
	EnvToken             = "SOCIALPOST_TOKEN"
)

var defaultPaths = []string{".config.yaml", "config.yaml"}

// Loader reads YAML configuration on top of DefaultConfig and applies
// environment overrides.
type Loader struct {
	useDotEnv bool
	paths     []string
	lookupEnv func(string) (string, bool)
}

func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		paths:     defaultPaths,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPaths overrides the candidate config files, first existing wins.
func (l *Loader) WithPaths(paths ...string) *Loader {
	if len(paths) > 0 {
		l.paths = paths
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("未找到 .env 文件，使用系统环境变量")
		}
	}

	cfg := DefaultConfig()
	path := "defaults"
	for _, candidate := range l.paths {
		data, err := os.ReadFile(candidate)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.read", "读取配置文件失败", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.parse", "解析配置文件失败: "+candidate, err)
		}
		path = candidate
		break
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v, ok := l.env(EnvInstagramUsername); ok {
		cfg.Instagram.Username = v
	}
	if v, ok := l.env(EnvInstagramPassword); ok {
		cfg.Instagram.Password = v
	}
	if v, ok := l.env(EnvToken); ok {
		cfg.Server.Token = v
	}
	if v, ok := l.env(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindConfig, "config.env", EnvPort+" 不是有效端口", err)
		}
		cfg.Server.Port = port
	}
	if key, ok := l.env(EnvOpenAIKey); ok {
		for name, llm := range cfg.LLM {
			if llm.Type == "openai" && llm.APIKey == "" {
				llm.APIKey = key
				cfg.LLM[name] = llm
			}
		}
		for name, gen := range cfg.ImageGen {
			if gen.Type == "openai" && gen.APIKey == "" {
				gen.APIKey = key
				cfg.ImageGen[name] = gen
			}
		}
	}
	return nil
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (l *Loader) validate(cfg *Config) error {
	fail := func(msg string) error {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", msg)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fail(fmt.Sprintf("server.port 超出范围: %d", cfg.Server.Port))
	}

	c := cfg.Compression
	if c.MaxDimension <= 0 {
		return fail("compression.max_dimension 必须大于 0")
	}
	if c.MinQuality <= 0 || c.InitialQuality > 1 || c.MinQuality > c.InitialQuality {
		return fail("compression 质量需满足 0 < min_quality <= initial_quality <= 1")
	}
	if c.QualityStep <= 0 {
		return fail("compression.quality_step 必须大于 0")
	}
	if c.DefaultMaxSizeKB <= 0 {
		return fail("compression.default_max_size_kb 必须大于 0")
	}

	if cfg.Storage.AuditRetention < 0 {
		return fail("storage.audit_retention 不能为负数")
	}

	ig := cfg.Instagram
	if ig.RequestTimeout <= 0 || ig.PublishTimeout <= 0 || ig.PostLoginTimeout <= 0 {
		return fail("instagram 超时配置必须大于 0")
	}
	if ig.MaxImageBytes <= 0 {
		return fail("instagram.max_image_bytes 必须大于 0")
	}

	switch strings.ToLower(cfg.History.Driver) {
	case "memory", "sqlite", "redis":
	default:
		return fail("history.driver 不支持: " + cfg.History.Driver)
	}
	if cfg.History.Limit <= 0 {
		return fail("history.limit 必须大于 0")
	}
	if strings.EqualFold(cfg.History.Driver, "sqlite") && !cfg.Storage.Enabled {
		return fail("history.driver=sqlite 需要启用 storage")
	}
	if cfg.Server.Auth.Enabled && strings.TrimSpace(cfg.Server.Token) == "" {
		return fail("server.auth.enabled 需要配置 server.token")
	}
	return nil
}
