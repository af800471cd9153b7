package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/lguibr/cacophony/log"
)

// ParseString reads a string from an environment variable or returns the
// default value, logging the source for observability.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	if value, exists := os.LookupEnv(key); exists && value != "" {
		logger.Debug().
			Str("key", key).
			Str("value", value).
			Str("source", "environment").
			Msg("using environment variable")
		return value
	}
	logger.Debug().
		Str("key", key).
		Str("default", defaultValue).
		Str("source", "default").
		Msg("using default value")
	return defaultValue
}

// ParseInt reads an integer from an environment variable or returns the
// default value. Malformed values fall back to the default with a warning.
func ParseInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			logger := log.WithComponent("config")
			logger.Warn().
				Str("key", key).
				Str("value", value).
				Int("default", defaultValue).
				Msg("malformed integer in environment, using default")
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

// ParseDuration reads a time.Duration from an environment variable or returns
// the default value. Malformed values fall back to the default with a warning.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			logger := log.WithComponent("config")
			logger.Warn().
				Str("key", key).
				Str("value", value).
				Dur("default", defaultValue).
				Msg("malformed duration in environment, using default")
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
