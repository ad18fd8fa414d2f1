// Package config loads runtime configuration from the environment and an
// optional building-agent.yaml file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the agent
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	TimeSeries TimeSeriesConfig `mapstructure:"timeseries"`
	Langfuse   LangfuseConfig   `mapstructure:"langfuse"`
}

// LLMConfig selects and configures the completion provider
type LLMConfig struct {
	Provider     string `mapstructure:"provider"` // "gemini" or "openai"
	Model        string `mapstructure:"model"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
}

// Neo4jConfig configures the topology graph connection
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// TimeSeriesConfig configures the sensor-readings store
type TimeSeriesConfig struct {
	Backend     string `mapstructure:"backend"` // "influxdb" or "postgres"
	Host        string `mapstructure:"host"`
	Token       string `mapstructure:"token"`
	Database    string `mapstructure:"database"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// LangfuseConfig configures trace export. Tracing is enabled only when both
// keys are present.
type LangfuseConfig struct {
	PublicKey string `mapstructure:"public_key"`
	SecretKey string `mapstructure:"secret_key"`
	Host      string `mapstructure:"host"`
}

// Load reads configuration from environment variables and, when present, a
// building-agent.yaml file in the working directory. Environment variables
// take precedence over the file.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "")
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "neo4j")
	v.SetDefault("timeseries.backend", "influxdb")
	v.SetDefault("timeseries.host", "http://localhost:8181")
	v.SetDefault("timeseries.token", "")
	v.SetDefault("timeseries.database", "sensor_data")
	v.SetDefault("langfuse.host", "https://cloud.langfuse.com")

	bindings := map[string]string{
		"llm.provider":            "LLM_PROVIDER",
		"llm.model":               "LLM_MODEL",
		"llm.gemini_api_key":      "GEMINI_API_KEY",
		"llm.openai_api_key":      "OPENAI_API_KEY",
		"neo4j.uri":               "NEO4J_URI",
		"neo4j.username":          "NEO4J_USER",
		"neo4j.password":          "NEO4J_PASSWORD",
		"timeseries.backend":      "TIMESERIES_BACKEND",
		"timeseries.host":         "INFLUXDB_HOST",
		"timeseries.token":        "INFLUXDB_TOKEN",
		"timeseries.database":     "INFLUXDB_DATABASE",
		"timeseries.postgres_dsn": "TIMESERIES_POSTGRES_DSN",
		"langfuse.public_key":     "LANGFUSE_PUBLIC_KEY",
		"langfuse.secret_key":     "LANGFUSE_SECRET_KEY",
		"langfuse.host":           "LANGFUSE_HOST",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	v.SetConfigName("building-agent")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported llm provider %q (expected gemini or openai)", c.LLM.Provider)
	}

	switch strings.ToLower(c.TimeSeries.Backend) {
	case "influxdb", "postgres":
	default:
		return fmt.Errorf("unsupported timeseries backend %q (expected influxdb or postgres)", c.TimeSeries.Backend)
	}
	return nil
}
