package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	NATSURL         string
	Routes          []string
	JoinTimeout     time.Duration
	APIBaseURL      string
	DatabaseURL     string
	MetricsAddr     string
	LogNATSSubjects bool

	SimPublishInterval  time.Duration
	SimVehiclesPerRoute int
	SimAuthExpireAfter  time.Duration
}

// Load reads .env (if present) into the environment and builds a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

// Reload re-reads .env, overriding variables already in the environment,
// so edits made while running take effect.
func Reload() (*Config, error) {
	if err := godotenv.Overload(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reload .env: %w", err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{}

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.Routes = ParseRoutes(os.Getenv("SKATE_ROUTES"))
	cfg.APIBaseURL = getenvDefault("API_BASE_URL", "http://127.0.0.1:4000")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	var err error
	if cfg.JoinTimeout, err = durationMS("JOIN_TIMEOUT_MS", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SimPublishInterval, err = durationMS("SIM_PUBLISH_INTERVAL_MS", time.Second); err != nil {
		return nil, err
	}

	if v := os.Getenv("SIM_VEHICLES_PER_ROUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid SIM_VEHICLES_PER_ROUTE: %q", v)
		}
		cfg.SimVehiclesPerRoute = n
	} else {
		cfg.SimVehiclesPerRoute = 3
	}

	// Zero disables the simulated auth expiry.
	if v := os.Getenv("SIM_AUTH_EXPIRE_AFTER_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("invalid SIM_AUTH_EXPIRE_AFTER_SEC: %q", v)
		}
		cfg.SimAuthExpireAfter = time.Duration(sec) * time.Second
	}

	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		cfg.LogNATSSubjects = parseBool(v)
	}

	cfg.DatabaseURL = databaseURL()

	return cfg, nil
}

// ParseRoutes splits a comma separated route list, dropping blanks.
func ParseRoutes(s string) []string {
	var routes []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			routes = append(routes, r)
		}
	}
	return routes
}

// databaseURL prefers DATABASE_URL / PG_DSN and otherwise builds a DSN from
// PG* variables. Empty when no database is configured.
func databaseURL() string {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn
	}
	db := os.Getenv("PGDATABASE")
	if db == "" {
		return ""
	}
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
}

func durationMS(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
