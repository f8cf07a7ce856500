package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the resolution service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Search    SearchConfig    `mapstructure:"search"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Address       string        `mapstructure:"address"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	RateLimit     int           `mapstructure:"rate_limit"`
	RateWindow    time.Duration `mapstructure:"rate_window"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
}

// LLMConfig configures the reasoning backend. The engine only depends on the
// "generate text from a prompt pair" capability, not on a specific vendor.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	if l.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be > 0")
	}
	return nil
}

// ResolverConfig tunes the swarm-verify pipeline.
type ResolverConfig struct {
	AgentTimeout         time.Duration `mapstructure:"agent_timeout"`
	AutoResolveThreshold int           `mapstructure:"auto_resolve_threshold"`
	SecondPassThreshold  int           `mapstructure:"second_pass_threshold"`
	SecondPassPenalty    int           `mapstructure:"second_pass_penalty"`
	InvestigatorAPIKey   string        `mapstructure:"investigator_api_key"`
	Weights              ScoreWeights  `mapstructure:"weights"`
}

// ScoreWeights blends the four scoring dimensions into a final confidence.
type ScoreWeights struct {
	Factual     float64 `mapstructure:"factual"`
	Consistency float64 `mapstructure:"consistency"`
	Timestamp   float64 `mapstructure:"timestamp"`
	Sentiment   float64 `mapstructure:"sentiment"`
}

func (r ResolverConfig) Validate() error {
	if r.AgentTimeout <= 0 {
		return fmt.Errorf("resolver.agent_timeout must be > 0")
	}
	if r.SecondPassThreshold >= r.AutoResolveThreshold {
		return fmt.Errorf("resolver.second_pass_threshold must be below auto_resolve_threshold")
	}
	sum := r.Weights.Factual + r.Weights.Consistency + r.Weights.Timestamp + r.Weights.Sentiment
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("resolver.weights must sum to 1.0, got %.2f", sum)
	}
	return nil
}

// SearchConfig configures the keyless instant-answer search endpoint used by
// the web-fact-checker agent.
type SearchConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StorageConfig contains storage and persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// TelemetryConfig contains telemetry and monitoring settings.
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PeriodicLogs bool `mapstructure:"periodic_logs"`
}

// LoadConfig loads config from file, with SWARMVERIFY_* env overrides.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("server.address", ":10010")
	viper.SetDefault("server.rate_limit", 30)
	viper.SetDefault("server.rate_window", time.Minute)
	viper.SetDefault("server.sweep_schedule", "@hourly")
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.timeout", 30*time.Second)
	viper.SetDefault("resolver.agent_timeout", 12*time.Second)
	viper.SetDefault("resolver.auto_resolve_threshold", 90)
	viper.SetDefault("resolver.second_pass_threshold", 85)
	viper.SetDefault("resolver.second_pass_penalty", 5)
	viper.SetDefault("resolver.weights.factual", 0.45)
	viper.SetDefault("resolver.weights.consistency", 0.25)
	viper.SetDefault("resolver.weights.timestamp", 0.20)
	viper.SetDefault("resolver.weights.sentiment", 0.10)
	viper.SetDefault("search.endpoint", "https://api.duckduckgo.com/")
	viper.SetDefault("search.timeout", 10*time.Second)
	viper.SetDefault("telemetry.enabled", true)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("SWARMVERIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.LLM.Validate(); err != nil {
		panic(err)
	}
	if err := config.Resolver.Validate(); err != nil {
		panic(err)
	}
	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	return &config
}
