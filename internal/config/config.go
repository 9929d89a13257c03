package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Store      string // "memory" | "redis" | "sqlite"
	SQLitePath string // database file when Store is sqlite
	SeedFile   string // optional YAML fixture loaded at startup (empty = disabled)

	JWTSecret string // HS256 secret for bearer tokens

	// Decision engine
	RecencyWindow    time.Duration // candidate lookback and cluster window (default: 14d)
	CandidateLimit   int           // max items considered per recompute (default: 200)
	MaxClusterSize   int           // max members per decision group (default: 5)
	TitleOverlapMin  float64       // title token overlap gate, 0 disables it
	LockTTL          time.Duration // collection lease lifetime
	LockWait         time.Duration // how long recompute waits for a busy collection
	StaleGCInterval  time.Duration // stale group sweep interval, 0 disables it
	StaleGCThreshold time.Duration // idle time before a group counts as stale

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	RateBurst    int      // requests allowed in a burst per client
	RatePerMin   int      // sustained requests per minute per client
	AllowedCIDRS []string // optional, restrict /metrics to these networks
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SHORTLIST_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHORTLIST_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("SHORTLIST_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SHORTLIST_PRETTY_LOG", true),

		// Storage
		Store:      strings.ToLower(getenv("SHORTLIST_STORE", StoreMemory)),
		SQLitePath: getenv("SHORTLIST_SQLITE_PATH", "./shortlist.db"),
		SeedFile:   getenv("SHORTLIST_SEED_FILE", ""),

		JWTSecret: requireEnv("SHORTLIST_JWT_SECRET"),

		// Decision engine
		RecencyWindow:    mustDuration("SHORTLIST_RECENCY_WINDOW", 14*24*time.Hour),
		CandidateLimit:   getenvInt("SHORTLIST_CANDIDATE_LIMIT", 200),
		MaxClusterSize:   getenvInt("SHORTLIST_MAX_CLUSTER_SIZE", 5),
		TitleOverlapMin:  getenvFloat("SHORTLIST_TITLE_OVERLAP_MIN", 0),
		LockTTL:          mustDuration("SHORTLIST_LOCK_TTL", 30*time.Second),
		LockWait:         mustDuration("SHORTLIST_LOCK_WAIT", 2*time.Second),
		StaleGCInterval:  mustDuration("SHORTLIST_STALE_GC_INTERVAL", 0),
		StaleGCThreshold: mustDuration("SHORTLIST_STALE_GC_THRESHOLD", 30*24*time.Hour),

		// Redis settings
		RedisAddr:             getenv("SHORTLIST_REDIS_ADDR", "localhost:6379"),
		RedisUser:             getenv("SHORTLIST_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("SHORTLIST_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("SHORTLIST_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("SHORTLIST_REDIS_DB", 0),
		RedisDT:               mustDuration("SHORTLIST_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("SHORTLIST_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("SHORTLIST_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("SHORTLIST_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("SHORTLIST_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("SHORTLIST_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("SHORTLIST_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("SHORTLIST_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("SHORTLIST_REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		RateBurst:    getenvInt("SHORTLIST_RATE_BURST", 20),
		RatePerMin:   getenvInt("SHORTLIST_RATE_PER_MIN", 120),
		AllowedCIDRS: parseAllowedIPs(getenv("SHORTLIST_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("SHORTLIST_TRUST_PROXY", false),
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: SHORTLIST_REDIS_PASSWORD is required when SHORTLIST_REDIS_PASSWORD_REQUIRED=true")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: SHORTLIST_STORE must be one of memory, redis, sqlite (got %q)", cfg.Store))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		cfgCopy.JWTSecret = "***REDACTED***"
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := parseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parseDuration extends time.ParseDuration with a whole-day suffix.
// Examples: "14d" -> 336h, "90m" -> 90m
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
