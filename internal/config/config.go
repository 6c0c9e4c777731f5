// Package config loads server settings from the environment.
//
// LOADING ORDER:
//  1. An optional .env file is read with godotenv. Variables that are already
//     set in the real environment win; .env only fills gaps.
//  2. Each setting is read from its environment variable, falling back to a
//     default when unset.
//
// A value that is set but unparseable (PORT=abc, SESSION_TTL=forever) is a
// load error rather than a silent fallback.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server needs.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs session cookies. When JWT_SECRET is unset a random
	// secret is generated and JWTSecretGenerated is true; sessions then do
	// not survive a restart.
	JWTSecret          string
	JWTSecretGenerated bool

	SessionTTL   time.Duration
	CookieSecure bool
	LogLevel     slog.Level

	// RedisAddr switches session storage to Redis when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SeedCategories and SeedTags override the built-in vocabulary when set.
	SeedCategories []string
	SeedTags       []string
}

const (
	defaultPort       = 8080
	defaultDBPath     = "data/forum.db"
	defaultSessionTTL = 24 * time.Hour
)

// Load reads the given .env files (".env" when none are named), then the
// environment. Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: reading %s: %w", f, err)
		}
	}

	cfg := &Config{
		DBPath:        getString("DB_PATH", defaultDBPath),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.Port, err = getInt("PORT", defaultPort); err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: PORT %d is out of range", cfg.Port)
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", defaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("config: SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = getLevel("LOG_LEVEL", slog.LevelInfo); err != nil {
		return nil, err
	}

	cfg.SeedCategories = getList("SEED_CATEGORIES")
	cfg.SeedTags = getList("SEED_TAGS")

	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
		cfg.JWTSecretGenerated = true
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, v)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a boolean", key, v)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration (try 24h or 30m)", key, v)
	}
	return d, nil
}

// getLevel accepts the names slog itself prints: debug, info, warn, error.
func getLevel(key string, def slog.Level) (slog.Level, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return def, fmt.Errorf("config: %s=%q is not a log level", key, v)
	}
	return level, nil
}

// getList splits a comma-separated variable, dropping blank items.
// Unset or empty yields nil.
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("config: generating JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
