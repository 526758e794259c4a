package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses durations for the sweeper settings
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Token lifetimes are kept in milliseconds to
// match how they are communicated to clients; the accessors below convert
// them to time.Duration for internal use.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // base64-encoded secret used to sign tokens
	AccessTTLMs   int64         // access token time-to-live in milliseconds
	RefreshTTLMs  int64         // refresh token time-to-live in milliseconds
	PageLimit     int           // default and maximum page size for note listings
	SweepInterval time.Duration // how often the expiration sweeper runs
	SweepPageSize int           // how many expired notes a sweep fetches per page
	BcryptCost    int           // bcrypt cost for password hashing
}

// Load reads configuration values from environment variables and returns
// a Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. Lifetimes and
// pagination fall back to the documented defaults when unset.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"), // empty allowed
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMs:   envInt64("ACCESS_TOKEN_TTL_MS", 1_800_000),    // 30 minutes
		RefreshTTLMs:  envInt64("REFRESH_TOKEN_TTL_MS", 259_200_000), // 3 days
		PageLimit:     envInt("PAGE_LIMIT", 1000),
		SweepInterval: envDur("SWEEP_INTERVAL", time.Minute),
		SweepPageSize: envInt("SWEEP_PAGE_SIZE", 100),
		BcryptCost:    envInt("BCRYPT_COST", 10),
	}
}

// AccessTTL returns the access token lifetime as a duration.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMs) * time.Millisecond }

// RefreshTTL returns the refresh token lifetime as a duration.
func (c Config) RefreshTTL() time.Duration { return time.Duration(c.RefreshTTLMs) * time.Millisecond }

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envInt64(k string, d int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
