package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/spf13/viper"
)

// Config rappresenta la configurazione completa dell'applicazione
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   database.Config  `yaml:"database"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Review     ReviewConfig     `yaml:"review"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig configurazione del server
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// ProvidersConfig configurazione dei provider LLM. Un provider con
// APIKey vuota non viene costruito.
type ProvidersConfig struct {
	DefaultTimeout string              `yaml:"default_timeout" mapstructure:"default_timeout"`
	OpenAI         ProviderCredentials `yaml:"openai"`
	Anthropic      ProviderCredentials `yaml:"anthropic"`
	Google         ProviderCredentials `yaml:"google"`
}

// ProviderCredentials identifica un singolo provider
type ProviderCredentials struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// Configured indica se il provider ha credenziali
func (p ProviderCredentials) Configured() bool {
	return p.APIKey != ""
}

// Timeout restituisce il timeout parsato, o il default di 30s
func (p ProvidersConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(p.DefaultTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// ReviewConfig configurazione della revisione umana
type ReviewConfig struct {
	AmountThreshold float64  `yaml:"amount_threshold" mapstructure:"amount_threshold"`
	Markers         []string `yaml:"markers"`
}

// MonitoringConfig configurazione monitoring
type MonitoringConfig struct {
	Prometheus struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"prometheus"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load carica la configurazione da file e ambiente
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvCredentials(&cfg)

	return &cfg, nil
}

// applyEnvCredentials accetta anche i nomi convenzionali delle variabili
// d'ambiente dei vendor
func applyEnvCredentials(cfg *Config) {
	if cfg.Providers.OpenAI.APIKey == "" {
		cfg.Providers.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Providers.Anthropic.APIKey == "" {
		cfg.Providers.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.Providers.Google.APIKey == "" {
		cfg.Providers.Google.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
}

// setDefaults imposta i valori di default
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.connection", "./data/agriconnect.db")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.log_level", "warn")

	// Providers defaults
	v.SetDefault("providers.default_timeout", "30s")
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("providers.google.model", "gemini-2.0-flash")

	// Review defaults
	v.SetDefault("review.amount_threshold", 10000.0)
	v.SetDefault("review.markers", []string{"quality issue", "dispute"})

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.logging.level", "info")
	v.SetDefault("monitoring.logging.format", "json")
}

// Validate valida la configurazione
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Review.AmountThreshold < 0 {
		return fmt.Errorf("invalid review amount threshold: %g", c.Review.AmountThreshold)
	}
	return nil
}
