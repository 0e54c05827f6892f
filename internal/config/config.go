package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends understood by STORAGE_BACKEND.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds application configuration from an optional YAML file and the environment.
type Config struct {
	HTTPPort string `yaml:"http_port"`

	StorageBackend string `yaml:"storage_backend"`
	StorageDir     string `yaml:"storage_dir"`
	StorageKey     string `yaml:"storage_key"`
	SQLitePath     string `yaml:"sqlite_path"`
	DatabaseURL    string `yaml:"database_url"`
	DBPoolSize     int    `yaml:"db_pool_size"`
	RedisURL       string `yaml:"redis_url"`
	RedisPoolSize  int    `yaml:"redis_pool_size"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`

	KafkaBrokers      []string `yaml:"kafka_brokers"`
	KafkaEventTopic   string   `yaml:"kafka_event_topic"`
	KafkaCommandTopic string   `yaml:"kafka_command_topic"`
	KafkaPartitions   int      `yaml:"kafka_partitions"`

	JWTSecret string `yaml:"jwt_secret"`

	TickInterval            time.Duration `yaml:"tick_interval"`
	AlertRepeatInterval     time.Duration `yaml:"alert_repeat_interval"`
	AlertMaxDuration        time.Duration `yaml:"alert_max_duration"`
	AlertMaxBeeps           int           `yaml:"alert_max_beeps"`
	AlertToastDuration      time.Duration `yaml:"alert_toast_duration"`
	ValidationToastDuration time.Duration `yaml:"validation_toast_duration"`
	NarrowViewportWidth     int           `yaml:"narrow_viewport_width"`

	LogLevel string `yaml:"log_level"`
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		HTTPPort:                "8080",
		StorageBackend:          BackendFile,
		StorageDir:              ".timerdeck",
		StorageKey:              "timers",
		SQLitePath:              "timerdeck.db",
		DBPoolSize:              10,
		RedisURL:                "redis://localhost:6379/0",
		RedisPoolSize:           10,
		RedisKeyPrefix:          "timerdeck:",
		KafkaEventTopic:         "timer-events",
		KafkaCommandTopic:       "timer-commands",
		KafkaPartitions:         1,
		TickInterval:            time.Second,
		AlertRepeatInterval:     800 * time.Millisecond,
		AlertMaxDuration:        5 * time.Second,
		AlertMaxBeeps:           6,
		AlertToastDuration:      5 * time.Second,
		ValidationToastDuration: 4 * time.Second,
		NarrowViewportWidth:     768,
		LogLevel:                "info",
	}
}

// Get returns the application config (loads once from CONFIG_FILE and env).
func Get() *Config {
	cfgOnce.Do(func() {
		c, err := Load(os.Getenv("CONFIG_FILE"))
		if err != nil {
			// Fall back to defaults + env; main logs the file problem via Load.
			c, _ = Load("")
		}
		cfg = &c
	})
	return cfg
}

// Load builds a Config from defaults, the YAML file at path (if non-empty),
// then environment overrides.
func Load(path string) (Config, error) {
	c := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, err
		}
	}
	applyEnv(&c)
	return c, nil
}

func applyEnv(c *Config) {
	c.HTTPPort = getEnv("HTTP_PORT", c.HTTPPort)
	c.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", c.StorageBackend))
	c.StorageDir = getEnv("STORAGE_DIR", c.StorageDir)
	c.StorageKey = getEnv("STORAGE_KEY", c.StorageKey)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DBPoolSize = getIntEnv("DB_POOL_SIZE", c.DBPoolSize)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.RedisPoolSize = getIntEnv("REDIS_POOL_SIZE", c.RedisPoolSize)
	c.RedisKeyPrefix = getEnv("REDIS_KEY_PREFIX", c.RedisKeyPrefix)
	c.KafkaBrokers = getSliceEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaEventTopic = getEnv("KAFKA_EVENT_TOPIC", c.KafkaEventTopic)
	c.KafkaCommandTopic = getEnv("KAFKA_COMMAND_TOPIC", c.KafkaCommandTopic)
	c.KafkaPartitions = getIntEnv("KAFKA_PARTITIONS", c.KafkaPartitions)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.TickInterval = getDurationEnv("TICK_INTERVAL", c.TickInterval)
	c.AlertRepeatInterval = getDurationEnv("ALERT_REPEAT_INTERVAL", c.AlertRepeatInterval)
	c.AlertMaxDuration = getDurationEnv("ALERT_MAX_DURATION", c.AlertMaxDuration)
	c.AlertMaxBeeps = getIntEnv("ALERT_MAX_BEEPS", c.AlertMaxBeeps)
	c.AlertToastDuration = getDurationEnv("ALERT_TOAST_DURATION", c.AlertToastDuration)
	c.ValidationToastDuration = getDurationEnv("VALIDATION_TOAST_DURATION", c.ValidationToastDuration)
	c.NarrowViewportWidth = getIntEnv("NARROW_VIEWPORT_WIDTH", c.NarrowViewportWidth)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// GetJWTSecret returns JWT secret from config (for middleware that only has context).
func GetJWTSecret(ctx context.Context) string {
	return Get().JWTSecret
}

// KafkaEnabled reports whether any broker is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// getDurationEnv accepts Go durations ("800ms") or bare integers as milliseconds.
func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Millisecond
	}
	return defaultVal
}

func getSliceEnv(key string, defaultVal []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
