package helper

import (
	"os"
	"strconv"
)

// GetEnvOrDefault returns environment variable value or default if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntOrDefault returns the environment variable as int, or the default
// if it is not set or not a number.
func GetEnvIntOrDefault(key string, defaultValue int) int {
	value, err := strconv.Atoi(GetEnvOrDefault(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}
