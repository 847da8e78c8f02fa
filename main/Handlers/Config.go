package Handlers

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	MongoHost           string
	FirebaseCredentials string
	StorageBucket       string
	MapBaseUrl          string
	MapApiKey           string
	MapUserAgent        string
	ResolveWorkers      int
	ResolveItemTimeout  time.Duration
	ResolveBatchTimeout time.Duration
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded")
	}
	return Config{
		Port:                getEnv("PORT", "8080"),
		MongoHost:           getEnv("MONGO_HOST", "localhost"),
		FirebaseCredentials: os.Getenv("FIREBASE_CONFIG"),
		StorageBucket:       os.Getenv("FIREBASE_STORAGE_BUCKET"),
		MapBaseUrl:          getEnv("MAP_BASE_URL", "https://nominatim.openstreetmap.org"),
		MapApiKey:           os.Getenv("MAP_API_KEY"),
		MapUserAgent:        getEnv("MAP_USER_AGENT", "tr-backend/1.0"),
		ResolveWorkers:      getInt("RESOLVE_WORKERS", 8),
		ResolveItemTimeout:  getDuration("RESOLVE_ITEM_TIMEOUT", 5*time.Second),
		ResolveBatchTimeout: getDuration("RESOLVE_BATCH_TIMEOUT", 20*time.Second),
	}
}
