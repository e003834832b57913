package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one route. A Path ending in "/" matches every path below it.
type Rule struct {
	Method string
	Path   string
	Limit  int // requests per Window; zero or less means unlimited
	Window time.Duration
	Burst  int // bucket capacity, Limit when zero
}

// Config holds rate limiting settings.
type Config struct {
	Enabled       bool
	DefaultLimit  int
	DefaultWindow time.Duration
	IdleTTL       time.Duration // buckets unused this long are dropped
	SweepInterval time.Duration
	Allow         map[string]bool // clients never limited
	Deny          map[string]bool // clients always rejected
	Rules         []Rule
}

// DefaultConfig returns the settings used when no environment overrides apply.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  600,
		DefaultWindow: time.Minute,
		IdleTTL:       time.Hour,
		SweepInterval: 5 * time.Minute,
		Allow:         map[string]bool{},
		Deny:          map[string]bool{},
		Rules:         DefaultRules(),
	}
}

// LoadConfig reads RATE_LIMIT_* environment variables over DefaultConfig.
func LoadConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = envBool("RATE_LIMIT_ENABLED", cfg.Enabled)
	cfg.DefaultLimit = envInt("RATE_LIMIT_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.DefaultWindow = envDuration("RATE_LIMIT_DEFAULT_WINDOW", cfg.DefaultWindow)
	cfg.SweepInterval = envDuration("RATE_LIMIT_CLEANUP_INTERVAL", cfg.SweepInterval)
	cfg.Allow = splitSet(os.Getenv("RATE_LIMIT_WHITELIST"))
	cfg.Deny = splitSet(os.Getenv("RATE_LIMIT_BLACKLIST"))
	return cfg
}

// DefaultRules limits the routes that reach the remote backend or send SMS.
func DefaultRules() []Rule {
	return []Rule{
		{Method: "POST", Path: "/api/sessions", Limit: 30, Window: time.Minute, Burst: 10},

		// Backend generation calls.
		{Method: "POST", Path: "/api/profile", Limit: 20, Window: time.Minute, Burst: 5},
		{Method: "POST", Path: "/api/profile/document", Limit: 10, Window: time.Minute, Burst: 2},
		{Method: "POST", Path: "/api/cv", Limit: 20, Window: time.Minute, Burst: 5},
		{Method: "GET", Path: "/api/cv/pdf", Limit: 10, Window: time.Minute, Burst: 3},
		{Method: "POST", Path: "/api/voice/events", Limit: 120, Window: time.Minute, Burst: 20},

		// Verification codes go out by SMS.
		{Method: "POST", Path: "/api/auth/signup", Limit: 5, Window: 10 * time.Minute, Burst: 2},
		{Method: "POST", Path: "/api/auth/verify", Limit: 10, Window: 10 * time.Minute, Burst: 5},
		{Method: "POST", Path: "/api/auth/login", Limit: 10, Window: time.Minute, Burst: 5},

		{Method: "GET", Path: "/health", Limit: 0},
		{Method: "GET", Path: "/api/events", Limit: 0},
	}
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func splitSet(list string) map[string]bool {
	out := make(map[string]bool)
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}
