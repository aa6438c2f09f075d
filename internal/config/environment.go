package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv retrieves an environment variable or returns a default value if not found
func GetEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvAsBool retrieves an environment variable as a boolean or returns a default value if not found
func GetEnvAsBool(key string, defaultValue bool) bool {
	boolValue, err := strconv.ParseBool(GetEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return boolValue
}

// GetEnvAsInt retrieves an environment variable as an integer or returns a default value if not found
func GetEnvAsInt(key string, defaultValue int) int {
	intValue, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return intValue
}

// GetEnvAsDuration parses values like "5s" or "2m"
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
