// Package config loads application configuration from environment variables.
// A .env file in the working directory is read first when present, so local
// setups can keep secrets out of the shell profile.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	Debug          bool   // verbose logging and echo debug mode
	LogFile        string // optional file that receives a copy of the logs
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	SecretKey      string // secret used to sign session tokens
	SessionTTLMin  int    // session lifetime in minutes
	BcryptCost     int    // bcrypt cost for password hashing
	CookieSecure   bool   // set the Secure attribute on session cookies
	RabbitURL      string // broker URL for the welcome notification queue
	Storage        StorageConfig
	Archive        ArchiveStoreConfig
	Mail           MailConfig
}

// Load reads the optional .env file and the environment and returns a
// Config. Missing required variables cause the program to exit with a fatal
// log message.
func Load() Config {
	_ = godotenv.Load()
	cfg, err := parse(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

type lookupFunc func(key string) (string, bool)

// parse builds a Config from lookup. It is separated from Load so tests can
// feed a fixed environment.
func parse(lookup lookupFunc) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Env:           e.str("APP_ENV", "dev"),
		Port:          e.str("APP_PORT", "5000"),
		Debug:         e.boolean("DEBUG", false),
		LogFile:       e.str("LOG_FILE", ""),
		DBUser:        e.must("DB_USER"),
		DBPass:        e.str("DB_PASS", ""),
		DBHost:        e.must("DB_HOST"),
		DBPort:        e.str("DB_PORT", "3306"),
		DBName:        e.must("DB_NAME"),
		SecretKey:     e.must("SECRET_KEY"),
		SessionTTLMin: e.integer("SESSION_TTL_MIN", 24*60),
		BcryptCost:    e.integer("BCRYPT_COST", 12),
		CookieSecure:  e.boolean("COOKIE_SECURE", false),
		RabbitURL:     e.str("RABBITMQ_URL", e.str("AMQP_URL", "")),
		Storage:       loadStorage(&e),
		Archive:       loadArchiveStore(&e),
		Mail:          loadMail(&e),
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// env wraps a lookup function and remembers the first error so parse can
// read every key before reporting.
type env struct {
	lookup lookupFunc
	err    error
}

func (e *env) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// must retrieves the value of a required environment variable.
func (e *env) must(key string) string {
	v := e.str(key, "")
	if v == "" {
		e.fail(fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (e *env) integer(key string, def int) int {
	s := e.str(key, "")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		e.fail(fmt.Errorf("invalid int for %s: %q", key, s))
		return def
	}
	return n
}

func (e *env) int64(key string, def int64) int64 {
	s := e.str(key, "")
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		e.fail(fmt.Errorf("invalid int for %s: %q", key, s))
		return def
	}
	return n
}

func (e *env) boolean(key string, def bool) bool {
	return parseBool(e.str(key, ""), def)
}

// list reads a JSON array of strings such as ["zip"] or ["html","css"]. A
// plain comma separated value is accepted as well.
func (e *env) list(key string, def []string) []string {
	s := e.str(key, "")
	if s == "" {
		return def
	}
	if strings.HasPrefix(s, "[") {
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			e.fail(fmt.Errorf("invalid JSON list for %s: %w", key, err))
			return def
		}
		return out
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func parseBool(v string, def bool) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	s := e.str(key, "")
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		e.fail(fmt.Errorf("invalid duration for %s: %q", key, s))
		return def
	}
	return d
}

// SessionTTL returns the session lifetime as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

// DSN builds the MySQL data source name. parseTime is required so DATETIME
// columns scan into time.Time.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}
