package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"

	StoreLocal = "local"
	StoreS3    = "s3"
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Mode string
	Port int

	ScriptPath    string
	ScriptDir     string
	ScriptEnv     []string
	ScriptTimeout time.Duration
	DevPython     string
	ProdPython    string

	ArtifactPath   string
	ArtifactStore  string
	ArtifactBucket string

	BuildDir  string
	ExportDir string

	LockBackend string
	LockTTL     time.Duration
	RedisHost   string
	RedisPort   int

	XRayEnabled bool
	LogLevel    string
}

// IsProduction reports whether the gateway runs in the restricted mode.
func (c *Config) IsProduction() bool {
	return c.Mode == ModeProduction
}

// Interpreter returns the program used to launch the insight script.
func (c *Config) Interpreter() string {
	if c.IsProduction() {
		return c.ProdPython
	}
	return c.DevPython
}

// IndexPath is the SPA entry document served for client-side routes.
func (c *Config) IndexPath() string {
	return filepath.Join(c.BuildDir, "index.html")
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Load reads the optional env file and then builds a Config from the
// process environment.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using lookup for every key.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Mode:           ModeDevelopment,
		ScriptPath:     get("SCRIPT_PATH", filepath.Join("data_processing", "generate_insights.py")),
		DevPython:      get("PYTHON_DEV_CMD", "python"),
		ProdPython:     get("PYTHON_PROD_CMD", "python3"),
		ArtifactPath:   get("ARTIFACT_PATH", filepath.Join("dashboard", "public", "exported_results", "call_3_result.txt")),
		ArtifactStore:  get("ARTIFACT_STORE", StoreLocal),
		ArtifactBucket: get("ARTIFACT_BUCKET", ""),
		BuildDir:       get("BUILD_DIR", filepath.Join("dashboard", "build")),
		ExportDir:      get("EXPORT_DIR", filepath.Join("dashboard", "public", "exported_results")),
		LockBackend:    get("LOCK_BACKEND", LockLocal),
		RedisHost:      get("REDIS_HOST", "localhost"),
		LogLevel:       get("LOG_LEVEL", "info"),
	}
	cfg.ScriptDir = get("SCRIPT_DIR", filepath.Dir(cfg.ScriptPath))

	mode := get("APP_ENV", get("NODE_ENV", ModeDevelopment))
	if mode == ModeProduction {
		cfg.Mode = ModeProduction
	}

	var err error
	if cfg.Port, err = strconv.Atoi(get("PORT", "5000")); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if cfg.RedisPort, err = strconv.Atoi(get("REDIS_PORT", "6379")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	if cfg.ScriptTimeout, err = time.ParseDuration(get("SCRIPT_TIMEOUT", "0s")); err != nil {
		return nil, fmt.Errorf("invalid SCRIPT_TIMEOUT: %w", err)
	}
	if cfg.LockTTL, err = time.ParseDuration(get("LOCK_TTL", "15m")); err != nil {
		return nil, fmt.Errorf("invalid LOCK_TTL: %w", err)
	}
	if cfg.XRayEnabled, err = strconv.ParseBool(get("XRAY_ENABLED", "false")); err != nil {
		return nil, fmt.Errorf("invalid XRAY_ENABLED: %w", err)
	}

	if raw := get("SCRIPT_ENV", ""); raw != "" {
		for _, kv := range strings.Split(raw, ",") {
			kv = strings.TrimSpace(kv)
			if !strings.Contains(kv, "=") {
				return nil, fmt.Errorf("invalid SCRIPT_ENV entry %q: want KEY=VALUE", kv)
			}
			cfg.ScriptEnv = append(cfg.ScriptEnv, kv)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LockBackend {
	case LockNone, LockLocal, LockRedis:
	default:
		return fmt.Errorf("unknown LOCK_BACKEND: %s", c.LockBackend)
	}
	switch c.ArtifactStore {
	case StoreLocal:
	case StoreS3:
		if c.ArtifactBucket == "" {
			return errors.New("ARTIFACT_BUCKET is required when ARTIFACT_STORE=s3")
		}
	default:
		return fmt.Errorf("unknown ARTIFACT_STORE: %s", c.ArtifactStore)
	}
	if c.ScriptTimeout < 0 {
		return errors.New("SCRIPT_TIMEOUT must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
