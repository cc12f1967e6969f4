package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

// EnvPrefix prefixes every environment override, e.g. TASKCHAT_SERVER_PORT.
const EnvPrefix = "TASKCHAT"

type Config struct {
	Mode    Mode          `mapstructure:"mode"`
	Server  ServerConfig  `mapstructure:"server"`
	Chatbot ChatbotConfig `mapstructure:"chatbot"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type ChatbotConfig struct {
	SessionTTLSeconds   int           `mapstructure:"session_ttl_seconds"`
	MaxContextMessages  int           `mapstructure:"max_context_messages"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	CleanupInterval     time.Duration `mapstructure:"cleanup_interval"`
	ProviderTimeout     time.Duration `mapstructure:"provider_timeout"`
	StoreTimeout        time.Duration `mapstructure:"store_timeout"`
}

func (c ChatbotConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

type LLMConfig struct {
	Provider        string  `mapstructure:"provider"` // "mock", "gemini" or "openai"
	Model           string  `mapstructure:"model"`
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	GCPProject      string  `mapstructure:"gcp_project"`
	GCPLocation     string  `mapstructure:"gcp_location"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxOutputTokens int32   `mapstructure:"max_output_tokens"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend"` // "memory", "sqlite" or "firestore"
	SQLitePath string `mapstructure:"sqlite_path"`
	GCPProject string `mapstructure:"gcp_project"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeLocal))
	v.SetDefault("server.port", "8080")

	v.SetDefault("chatbot.session_ttl_seconds", 1800)
	v.SetDefault("chatbot.max_context_messages", 10)
	v.SetDefault("chatbot.confidence_threshold", 0.7)
	v.SetDefault("chatbot.cleanup_interval", "1m")
	v.SetDefault("chatbot.provider_timeout", "15s")
	v.SetDefault("chatbot.store_timeout", "5s")

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.gcp_project", "")
	v.SetDefault("llm.gcp_location", "us-central1")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_output_tokens", 500)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.sqlite_path", "taskchat.db")
	v.SetDefault("storage.gcp_project", "")

	v.SetDefault("log.level", "info")
}

// Load builds the config from defaults, an optional YAML file and
// TASKCHAT_* environment variables, in increasing precedence.
// An empty configPath looks for config.yaml in the working directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Mode = Mode(strings.ToLower(string(cfg.Mode)))
	if cfg.LLM.Provider == "" {
		// Local development never needs credentials.
		cfg.LLM.Provider = "mock"
		if cfg.Mode == ModeGCP {
			cfg.LLM.Provider = "gemini"
		}
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLocal, ModeGCP:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeLocal, ModeGCP, c.Mode)
	}
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Chatbot.SessionTTLSeconds <= 0 {
		return errors.New("chatbot.session_ttl_seconds must be positive")
	}
	if c.Chatbot.MaxContextMessages <= 0 {
		return errors.New("chatbot.max_context_messages must be positive")
	}
	if c.Chatbot.ConfidenceThreshold < 0 || c.Chatbot.ConfidenceThreshold > 1 {
		return errors.New("chatbot.confidence_threshold must be within [0, 1]")
	}

	switch c.LLM.Provider {
	case "mock":
	case "gemini":
		if c.LLM.APIKey == "" && c.LLM.GCPProject == "" {
			return errors.New("llm.provider gemini needs llm.api_key or llm.gcp_project")
		}
	case "openai":
		if c.LLM.APIKey == "" {
			return errors.New("llm.provider openai needs llm.api_key")
		}
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}

	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for the sqlite backend")
		}
	case "firestore":
		if c.Storage.GCPProject == "" {
			return errors.New("storage.gcp_project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}
