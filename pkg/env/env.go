// Package env reads process environment variables with fallbacks, for the
// few knobs that live outside the envconfig-managed Config (LOG_FORMAT, PORT).
package env

import "os"

// Get returns the named environment variable, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
