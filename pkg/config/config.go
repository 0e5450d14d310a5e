package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetSeconds retrieves an environment variable holding a whole number of
// seconds and returns it as a duration, or fallback when unset or invalid.
func GetSeconds(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			log.Printf("invalid value for %s: %q", key, value)
			return fallback
		}
		return time.Duration(parsed) * time.Second
	}
	return fallback
}
