package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:    "0.0.0.0",
			Port:  8080,
			Token: "change_me",
			Auth: AuthConfig{
				Enabled: false,
				Expiry:  24 * time.Hour,
				Issuer:  "socialpost",
			},
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:      true,
			StaticDir:    "web",
			AllowOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Enabled:        true,
			DSN:            "data/socialpost.db",
			AuditRetention: 90 * 24 * time.Hour,
		},
		Compression: CompressionConfig{
			MaxDimension:     1024,
			InitialQuality:   0.9,
			MinQuality:       0.1,
			QualityStep:      0.1,
			DefaultMaxSizeKB: 1000,
		},
		Instagram: InstagramConfig{
			BaseURL:             "https://i.instagram.com",
			RequestTimeout:      30 * time.Second,
			PublishTimeout:      2 * time.Minute,
			PostLoginTimeout:    20 * time.Second,
			PostLoginSimulation: true,
			MaxImageBytes:       8 << 20,
		},
		History: HistoryConfig{
			Driver: "memory",
			Limit:  10,
			Redis: HistoryRedisConfig{
				Addr: "127.0.0.1:6379",
				Key:  "socialpost:history",
			},
		},
		Security: SecurityConfig{
			MaxFileSize:    16 << 20,
			MaxPixels:      40_000_000,
			MaxWidth:       8192,
			MaxHeight:      8192,
			AllowedFormats: []string{"jpeg", "png", "gif", "webp"},
		},
		Selected: SelectedConfig{
			LLM:      "OpenAILLM",
			ImageGen: "OpenAIImage",
		},
		LLM: map[string]LLMConfig{
			"OpenAILLM": {
				Type:        "openai",
				ModelName:   "gpt-4o-mini",
				BaseURL:     "https://api.openai.com/v1",
				Temperature: 0.7,
				MaxTokens:   300,
			},
		},
		ImageGen: map[string]ImageGenConfig{
			"OpenAIImage": {
				Type:      "openai",
				ModelName: "dall-e-3",
				BaseURL:   "https://api.openai.com/v1",
				Size:      "1024x1024",
			},
		},
		TopPrompts: []string{
			"A futuristic city skyline at sunset",
			"A cat astronaut floating in space",
			"A serene mountain landscape with a lake",
			"A vibrant street market in Tokyo",
			"A vintage car driving through the desert",
		},
	}
}
