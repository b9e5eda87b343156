// Package env reads the handful of settings needed before config.Load runs.
package env

import (
	"os"
	"slices"
	"strings"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// OneOf returns the lowercased value of key when it is one of allowed and
// fallback otherwise.
func OneOf(key, fallback string, allowed ...string) string {
	val := strings.ToLower(Get(key, fallback))
	if slices.Contains(allowed, val) {
		return val
	}
	return fallback
}
