package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/SAP-F-2025/login-approval-service/internal/utils"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	DBSSL       bool
	StoreDriver string
	AutoMigrate bool

	RedisURL string

	Casdoor        CasdoorConfig
	ProfessorToken string
	CORSOrigins    []string

	KafkaBrokers []string
	EventsTopic  string

	PollInterval          time.Duration
	PollTimeout           time.Duration
	GoogleProviderDefault bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_SSL", false)
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("EVENTS_TOPIC", "login-approval.events")
	v.SetDefault("POLL_INTERVAL", "2s")
	v.SetDefault("POLL_TIMEOUT", "300s")
	v.SetDefault("GOOGLE_PROVIDER_DEFAULT", true)
}

// LoadConfig reads .env (if present), the optional YAML file and the
// environment, in increasing precedence.
func LoadConfig(configFile ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if len(configFile) > 0 && configFile[0] != "" {
		v.SetConfigFile(configFile[0])
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    utils.ParseLevel(v.GetString("LOG_LEVEL")),

		DatabaseURL: v.GetString("DATABASE_URL"),
		DBSSL:       v.GetBool("DB_SSL"),
		StoreDriver: strings.ToLower(v.GetString("STORE_DRIVER")),
		AutoMigrate: v.GetBool("AUTO_MIGRATE"),

		RedisURL: v.GetString("REDIS_URL"),

		Casdoor: CasdoorConfig{
			Endpoint:     v.GetString("CASDOOR_ENDPOINT"),
			ClientID:     v.GetString("CASDOOR_CLIENT_ID"),
			ClientSecret: v.GetString("CASDOOR_CLIENT_SECRET"),
			Cert:         v.GetString("CASDOOR_CERT"),
			Organization: v.GetString("CASDOOR_ORGANIZATION"),
			Application:  v.GetString("CASDOOR_APPLICATION"),
		},
		ProfessorToken: v.GetString("PROFESSOR_TOKEN"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),

		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		EventsTopic:  v.GetString("EVENTS_TOPIC"),

		PollInterval:          v.GetDuration("POLL_INTERVAL"),
		PollTimeout:           v.GetDuration("POLL_TIMEOUT"),
		GoogleProviderDefault: v.GetBool("GOOGLE_PROVIDER_DEFAULT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.PollInterval <= 0 || c.PollTimeout <= 0 {
		return fmt.Errorf("POLL_INTERVAL and POLL_TIMEOUT must be positive")
	}
	if c.Casdoor.Endpoint == "" && c.ProfessorToken == "" && c.IsProduction() {
		return fmt.Errorf("either CASDOOR_ENDPOINT or PROFESSOR_TOKEN must be set in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CasdoorEnabled reports whether professor auth goes through Casdoor
func (c *Config) CasdoorEnabled() bool {
	return c.Casdoor.Endpoint != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
