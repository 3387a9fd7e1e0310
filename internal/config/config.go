package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	EventSubjectPrefix string
	JWTSecret          string
	DashboardCacheTTL  time.Duration
	StoreTimeout       time.Duration
	RemediationLockTTL time.Duration
	RemediationRateMax int
	RemediationRateTTL time.Duration
	AllowOrigins       []string
	Location           *time.Location
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ACADEMY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Academy Reconciliation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("dashboard.cache_ttl", "2m")
	v.SetDefault("store.timeout", "5s")
	v.SetDefault("remediation.lock_ttl", "15s")
	v.SetDefault("events.subject_prefix", "academy")
	v.SetDefault("remediation.rate_limit", 30)
	v.SetDefault("remediation.rate_window", "1m")

	cacheTTL, err := parseDuration(v, "dashboard.cache_ttl", 2*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dashboard cache ttl: %w", err)
	}

	storeTimeout, err := parseDuration(v, "store.timeout", 5*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid store timeout: %w", err)
	}

	lockTTL, err := parseDuration(v, "remediation.lock_ttl", 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid remediation lock ttl: %w", err)
	}

	rateWindow, err := parseDuration(v, "remediation.rate_window", time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid remediation rate window: %w", err)
	}

	location, err := time.LoadLocation(v.GetString("app.timezone"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid timezone: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		EventSubjectPrefix: v.GetString("events.subject_prefix"),
		JWTSecret:          v.GetString("jwt.secret"),
		DashboardCacheTTL:  cacheTTL,
		StoreTimeout:       storeTimeout,
		RemediationLockTTL: lockTTL,
		RemediationRateMax: v.GetInt("remediation.rate_limit"),
		RemediationRateTTL: rateWindow,
		AllowOrigins:       splitList(v.GetString("cors.allow_origins")),
		Location:           location,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
