package config

import (
	"log"
	"os"
	"strings"

	"github.com/go-redis/redis/v8"
)

var Redis *redis.Client

// ConnectRedis sets up the optional duplicate-confirmation suppressor.
// Leaving REDIS_URL unset disables it; every caller is nil-safe.
func ConnectRedis() {
	addr := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if addr == "" {
		log.Println("ℹ️  REDIS_URL not set; duplicate-confirmation suppression disabled")
		return
	}

	Redis = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	log.Println("🔧 Redis initialized with address:", addr)
}
