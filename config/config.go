package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env into the process environment. A missing file is fine:
// the variables may already be set some other way.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
}

type SequenceBackend string

const (
	SequenceDB    SequenceBackend = "db"
	SequenceRedis SequenceBackend = "redis"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr string
	RedisPwd  string

	WebOrigin  string
	Port       string
	SessionTTL time.Duration

	SweepInterval   time.Duration
	SweepOnStart    bool
	SequenceBackend SequenceBackend
	NotifyChannel   string
	LogLevel        string
}

// Load reads Config from the environment, falling back to defaults.
func Load() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}

	ttl := 24 * time.Hour
	if n, err := strconv.Atoi(get("SESSION_TTL_SECONDS", "86400")); err == nil && n > 0 {
		ttl = time.Duration(n) * time.Second
	}
	sweep := time.Minute
	if d, err := time.ParseDuration(get("SWEEP_INTERVAL", "1m")); err == nil && d > 0 {
		sweep = d
	}
	onStart, err := strconv.ParseBool(get("SWEEP_ON_START", "true"))
	if err != nil {
		onStart = true
	}
	backend := SequenceBackend(strings.ToLower(get("SEQUENCE_BACKEND", string(SequenceDB))))
	if backend != SequenceRedis {
		backend = SequenceDB
	}

	return Config{
		DBHost:     get("DB_HOST", "127.0.0.1"),
		DBUser:     get("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     get("DB_NAME", "lending"),
		DBPort:     get("DB_PORT", "5432"),

		RedisAddr: get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:  os.Getenv("REDIS_PASSWORD"),

		WebOrigin:  get("WEB_ORIGIN", "http://localhost:5173"),
		Port:       get("PORT", "3001"),
		SessionTTL: ttl,

		SweepInterval:   sweep,
		SweepOnStart:    onStart,
		SequenceBackend: backend,
		NotifyChannel:   get("NOTIFY_CHANNEL", "lending:events"),
		LogLevel:        strings.ToLower(get("LOG_LEVEL", "info")),
	}
}
