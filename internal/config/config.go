package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	LLM      LLMConfig      `mapstructure:"llm"`
	TTS      TTSConfig      `mapstructure:"tts"`
	Fanvue   FanvueConfig   `mapstructure:"fanvue"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type WebhookConfig struct {
	// SigningSecret is the shared secret Fanvue uses to sign payloads.
	SigningSecret string `mapstructure:"signing_secret"`
	// SignatureHeaders is the ordered list of header names checked for the
	// signature; the first present value wins. Fanvue's docs do not pin the
	// name down, so it stays configurable.
	SignatureHeaders []string `mapstructure:"signature_headers"`
	// RequireSignature rejects requests carrying no signature header. When
	// false such requests proceed unverified (logged at warn).
	RequireSignature bool  `mapstructure:"require_signature"`
	MaxBodySize      int64 `mapstructure:"max_body_size"`
}

type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type TTSConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	VoiceID    string        `mapstructure:"voice_id"`
	Model      string        `mapstructure:"model"`
	Stability  float64       `mapstructure:"stability"`
	Similarity float64       `mapstructure:"similarity"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type FanvueConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// SendEnabled gates the upload-and-send step. When false the pipeline
	// synthesizes audio and stops, which is useful before the platform API
	// credentials are provisioned.
	SendEnabled bool `mapstructure:"send_enabled"`
}

type PipelineConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

type StorageConfig struct {
	Driver string       `mapstructure:"driver"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("fanvoice")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/fanvoice")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FANVOICE")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports missing required settings. Called at startup so that a
// misconfigured process refuses to start instead of failing on the first
// webhook.
func (c *Config) Validate() error {
	if c.Webhook.RequireSignature && c.Webhook.SigningSecret == "" {
		return fmt.Errorf("webhook.signing_secret is required when webhook.require_signature is set")
	}
	if len(c.Webhook.SignatureHeaders) == 0 {
		return fmt.Errorf("webhook.signature_headers must list at least one header name")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if c.TTS.APIKey == "" {
		return fmt.Errorf("tts.api_key is required")
	}
	if c.TTS.VoiceID == "" {
		return fmt.Errorf("tts.voice_id is required")
	}
	if c.Fanvue.SendEnabled && c.Fanvue.APIKey == "" {
		return fmt.Errorf("fanvue.api_key is required when fanvue.send_enabled is set")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}
	if c.Pipeline.QueueSize < 1 {
		return fmt.Errorf("pipeline.queue_size must be at least 1")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("webhook.signature_headers", []string{"x-fanvue-signature", "x-signature"})
	viper.SetDefault("webhook.require_signature", true)
	viper.SetDefault("webhook.max_body_size", int64(256*1024))

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.max_tokens", 150)
	viper.SetDefault("llm.temperature", 0.9)
	viper.SetDefault("llm.timeout", 30*time.Second)

	viper.SetDefault("tts.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("tts.model", "eleven_multilingual_v2")
	viper.SetDefault("tts.stability", 0.5)
	viper.SetDefault("tts.similarity", 0.75)
	viper.SetDefault("tts.timeout", 60*time.Second)

	viper.SetDefault("fanvue.base_url", "https://api.fanvue.com")
	viper.SetDefault("fanvue.timeout", 30*time.Second)
	viper.SetDefault("fanvue.send_enabled", false)

	viper.SetDefault("pipeline.workers", 4)
	viper.SetDefault("pipeline.queue_size", 64)

	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.sqlite.path", "./data/fanvoice.db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
