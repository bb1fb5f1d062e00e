package config

import (
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/medigraph/medigraph/internal/platform/errs"
)

type Config struct {
	Port             string `mapstructure:"PORT"`
	Env              string `mapstructure:"ENV"`
	SourceDriver     string `mapstructure:"SOURCE_DRIVER"`
	SourceURL        string `mapstructure:"SOURCE_DATABASE_URL"`
	SnowflakeUser    string `mapstructure:"SNOWFLAKE_USER"`
	SnowflakePass    string `mapstructure:"SNOWFLAKE_PASSWORD"`
	SnowflakeAcct    string `mapstructure:"SNOWFLAKE_ACCOUNT"`
	SnowflakeWH      string `mapstructure:"SNOWFLAKE_WAREHOUSE"`
	SnowflakeDB      string `mapstructure:"SNOWFLAKE_DATABASE"`
	SnowflakeSchema  string `mapstructure:"SNOWFLAKE_SCHEMA"`
	SnowflakeRole    string `mapstructure:"SNOWFLAKE_ROLE"`
	Neo4jURI         string `mapstructure:"NEO4J_URI"`
	Neo4jUser        string `mapstructure:"NEO4J_USER"`
	Neo4jPassword    string `mapstructure:"NEO4J_PASSWORD"`
	Neo4jDatabase    string `mapstructure:"NEO4J_DATABASE"`
	MaxRowsPerEntity int    `mapstructure:"MAX_ROWS_PER_ENTITY"`
	LLMEnabled       bool   `mapstructure:"LLM_ENABLED"`
	OpenAIAPIKey     string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel      string `mapstructure:"OPENAI_MODEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("SOURCE_DRIVER", "snowflake")
	v.SetDefault("NEO4J_DATABASE", "neo4j")
	v.SetDefault("MAX_ROWS_PER_ENTITY", 7000)
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT",
		"ENV",
		"SOURCE_DRIVER",
		"SOURCE_DATABASE_URL",
		"SNOWFLAKE_USER",
		"SNOWFLAKE_PASSWORD",
		"SNOWFLAKE_ACCOUNT",
		"SNOWFLAKE_WAREHOUSE",
		"SNOWFLAKE_DATABASE",
		"SNOWFLAKE_SCHEMA",
		"SNOWFLAKE_ROLE",
		"NEO4J_URI",
		"NEO4J_USER",
		"NEO4J_PASSWORD",
		"NEO4J_DATABASE",
		"MAX_ROWS_PER_ENTITY",
		"LLM_ENABLED",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &errs.ConfigurationError{Reason: "unmarshal config: " + err.Error()}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ValidateGraph checks the graph-store connection parameters. Every command
// touches Neo4j, so this runs before any connection attempt.
func (c *Config) ValidateGraph() error {
	var missing []string
	if c.Neo4jURI == "" {
		missing = append(missing, "NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		missing = append(missing, "NEO4J_USER")
	}
	if c.Neo4jPassword == "" {
		missing = append(missing, "NEO4J_PASSWORD")
	}
	if len(missing) > 0 {
		return &errs.ConfigurationError{
			Reason: "missing required environment variables: " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// ValidateSource checks the relational-source parameters for the configured
// driver. Only the sync and health commands need these.
func (c *Config) ValidateSource() error {
	switch c.SourceDriver {
	case "snowflake":
		var missing []string
		for key, val := range map[string]string{
			"SNOWFLAKE_USER":      c.SnowflakeUser,
			"SNOWFLAKE_PASSWORD":  c.SnowflakePass,
			"SNOWFLAKE_ACCOUNT":   c.SnowflakeAcct,
			"SNOWFLAKE_WAREHOUSE": c.SnowflakeWH,
			"SNOWFLAKE_DATABASE":  c.SnowflakeDB,
			"SNOWFLAKE_SCHEMA":    c.SnowflakeSchema,
			"SNOWFLAKE_ROLE":      c.SnowflakeRole,
		} {
			if val == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			return &errs.ConfigurationError{
				Reason: "missing required environment variables: " + strings.Join(missing, ", "),
			}
		}
	case "postgres":
		if c.SourceURL == "" {
			return &errs.ConfigurationError{Reason: "SOURCE_DATABASE_URL is required when SOURCE_DRIVER is \"postgres\""}
		}
	default:
		return &errs.ConfigurationError{Reason: "SOURCE_DRIVER must be \"snowflake\" or \"postgres\", got \"" + c.SourceDriver + "\""}
	}
	return nil
}

// ValidateLLM checks the optional translator configuration.
func (c *Config) ValidateLLM() error {
	if c.LLMEnabled && c.OpenAIAPIKey == "" {
		return &errs.ConfigurationError{Reason: "OPENAI_API_KEY is required when LLM_ENABLED is true"}
	}
	return nil
}
