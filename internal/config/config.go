// Package config holds every tunable of the order-lifecycle subsystem. All
// intervals and caps live here so tests can inject zero delays.
package config

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	APIBaseURL string
	RedisAddr  string
	MongoURI   string
	MongoDB    string
	JWTSecret  []byte

	// store registry
	StoreIdleTTL  time.Duration
	SweepInterval time.Duration

	// order polling
	PollUrgent    time.Duration
	PollBase      time.Duration
	PollIdle      time.Duration
	FetchThrottle time.Duration

	// payment return handling
	Countdown      time.Duration
	SuccessGrace   time.Duration
	ReturnDedupCap int

	// repair protocols
	ClearAttempts   int
	ClearSettle     time.Duration
	RestoreAttempts int
}

func Default() Config {
	return Config{
		StoreIdleTTL:    10 * time.Minute,
		SweepInterval:   time.Minute,
		PollUrgent:      10 * time.Second,
		PollBase:        20 * time.Second,
		PollIdle:        60 * time.Second,
		FetchThrottle:   5 * time.Second,
		Countdown:       3 * time.Second,
		SuccessGrace:    3 * time.Second,
		ReturnDedupCap:  50,
		ClearAttempts:   5,
		ClearSettle:     100 * time.Millisecond,
		RestoreAttempts: 3,
	}
}

// Load reads the environment on top of the defaults. A missing .env file is
// fine; explicit env vars win either way.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := Default()
	cfg.APIBaseURL = getenv("API_BASE_URL", "http://localhost:8080")
	cfg.RedisAddr = getenv("REDIS_ADDR", "localhost:6379")
	cfg.MongoURI = os.Getenv("MONGO_URI")
	cfg.MongoDB = getenv("MONGO_DB", "zonak")
	cfg.JWTSecret = []byte(os.Getenv("JWT_SECRET"))

	cfg.StoreIdleTTL = getenvDuration("STORE_IDLE_TTL", cfg.StoreIdleTTL)
	cfg.FetchThrottle = getenvDuration("FETCH_THROTTLE", cfg.FetchThrottle)
	cfg.ClearAttempts = getenvInt("CLEAR_ATTEMPTS", cfg.ClearAttempts)
	cfg.RestoreAttempts = getenvInt("RESTORE_ATTEMPTS", cfg.RestoreAttempts)
	return cfg
}

func MustInitRedis(cfg Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	return client
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s: %q, using default", key, v)
		return fallback
	}
	return d
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid int for %s: %q, using default", key, v)
		return fallback
	}
	return n
}
