package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Registry backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":5000"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request bound for short routes
	WriteTimeout    time.Duration // server write deadline, must cover pull + create

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Workspaces
	CatalogFile      string // compose-style service catalog (yaml, json or jsonc)
	ProjectDir       string // base for relative catalog host paths (default: catalog directory)
	DataDir          string // per-workspace data directories live under it
	PublicHost       string // host used to build workspace URLs
	WebBasePort      int    // first host port tried for the web UI
	WebContainerPort int    // port the web UI listens on inside the container
	PortProbeLimit   int    // consecutive ports probed before giving up

	// Container runtime
	DockerBin      string
	PullTimeout    time.Duration
	CreateTimeout  time.Duration
	StopTimeout    time.Duration
	InspectTimeout time.Duration
	SettleInterval time.Duration // wait after start before reading the status
	LogTail        int           // default number of log lines returned

	StatusSweepInterval time.Duration // 0 = sweeper disabled

	// Registry
	RegistryBackend string // file | sqlite | redis | memory
	RegistryFile    string // JSON document for the file backend
	RegistrySQLite  string // database path for the sqlite backend

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisKeyPrefix        string        // prefix of the registry keys
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts
}

// Load reads the configuration from the environment. It panics on values
// the process cannot run with.
func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BERTH_LISTEN_PORT", ":5000"),
		ShutdownTimeout: mustDuration("BERTH_SHUTDOWN_TIMEOUT", 15*time.Second),
		RequestTimeout:  mustDuration("BERTH_REQUEST_TIMEOUT", 10*time.Second),
		WriteTimeout:    mustDuration("BERTH_WRITE_TIMEOUT", 10*time.Minute),

		// Logging
		LogLevel:  getenv("BERTH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("BERTH_PRETTY_LOG", true),

		// Workspaces
		CatalogFile:      getenv("BERTH_CATALOG_FILE", "services.yaml"),
		ProjectDir:       getenv("BERTH_PROJECT_DIR", ""),
		DataDir:          getenv("BERTH_DATA_DIR", "data"),
		PublicHost:       getenv("BERTH_PUBLIC_HOST", "localhost"),
		WebBasePort:      getenvInt("BERTH_WEB_BASE_PORT", 3000),
		WebContainerPort: getenvInt("BERTH_WEB_CONTAINER_PORT", 3000),
		PortProbeLimit:   getenvInt("BERTH_PORT_PROBE_LIMIT", 1000),

		// Container runtime
		DockerBin:      getenv("BERTH_DOCKER_BIN", "docker"),
		PullTimeout:    mustDuration("BERTH_PULL_TIMEOUT", 300*time.Second),
		CreateTimeout:  mustDuration("BERTH_CREATE_TIMEOUT", 120*time.Second),
		StopTimeout:    mustDuration("BERTH_STOP_TIMEOUT", 10*time.Second),
		InspectTimeout: mustDuration("BERTH_INSPECT_TIMEOUT", 10*time.Second),
		SettleInterval: mustDuration("BERTH_SETTLE_INTERVAL", 2*time.Second),
		LogTail:        getenvInt("BERTH_LOG_TAIL", 100),

		StatusSweepInterval: mustDuration("BERTH_STATUS_SWEEP_INTERVAL", 0),

		// Registry
		RegistryBackend: strings.ToLower(getenv("BERTH_REGISTRY_BACKEND", BackendFile)),
		RegistryFile:    getenv("BERTH_REGISTRY_FILE", "workspaces.json"),
		RegistrySQLite:  getenv("BERTH_REGISTRY_SQLITE", "berth.db"),

		// Redis settings
		RedisAddr:             getenv("BERTH_REDIS_ADDR", "localhost:6379"),
		RedisUser:             getenv("BERTH_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("BERTH_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("BERTH_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("BERTH_REDIS_DB", 0),
		RedisKeyPrefix:        getenv("BERTH_REDIS_KEY", "berth:"),
		RedisDT:               mustDuration("BERTH_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("BERTH_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("BERTH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("BERTH_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("BERTH_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("BERTH_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("BERTH_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("BERTH_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("BERTH_REDIS_WARN_THRESHOLD", 3),
	}

	if cfg.RegistryBackend == BackendRedis {
		cfg.RedisAddr = requireEnv("BERTH_REDIS_ADDR")
	}
	if cfg.ProjectDir == "" {
		cfg.ProjectDir = filepath.Dir(cfg.CatalogFile)
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}

func (c *Config) validate() error {
	switch c.RegistryBackend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.RedisPasswordRequired && c.RedisPassword == "" {
			return fmt.Errorf("BERTH_REDIS_PASSWORD is required when BERTH_REDIS_PASSWORD_REQUIRED=true")
		}
	default:
		return fmt.Errorf("unknown BERTH_REGISTRY_BACKEND %q (want file, sqlite, redis or memory)", c.RegistryBackend)
	}

	if !validPort(c.WebBasePort) {
		return fmt.Errorf("BERTH_WEB_BASE_PORT out of range: %d", c.WebBasePort)
	}
	if !validPort(c.WebContainerPort) {
		return fmt.Errorf("BERTH_WEB_CONTAINER_PORT out of range: %d", c.WebContainerPort)
	}
	if c.PortProbeLimit <= 0 {
		return fmt.Errorf("BERTH_PORT_PROBE_LIMIT must be > 0, got %d", c.PortProbeLimit)
	}
	if c.LogTail <= 0 {
		return fmt.Errorf("BERTH_LOG_TAIL must be > 0, got %d", c.LogTail)
	}
	for name, d := range map[string]time.Duration{
		"BERTH_PULL_TIMEOUT":    c.PullTimeout,
		"BERTH_CREATE_TIMEOUT":  c.CreateTimeout,
		"BERTH_STOP_TIMEOUT":    c.StopTimeout,
		"BERTH_INSPECT_TIMEOUT": c.InspectTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0, got %v", name, d)
		}
	}
	return nil
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

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
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
