package cache

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TTL bounds and defaults.
const (
	// DefaultTTLSeconds is the default entry lifetime (1 hour).
	DefaultTTLSeconds = 3600

	// MinTTLSeconds is the shortest accepted TTL (1 minute).
	MinTTLSeconds = 60

	// MaxTTLSeconds is the longest accepted TTL (7 days).
	MaxTTLSeconds = 604800

	// DefaultMaxSizeMB is the default size cap.
	DefaultMaxSizeMB = 50

	minutesPerHour = 60
	hoursPerDay    = 24
)

// Environment overrides.
const (
	EnvTTLSeconds = "DYNTREE_CACHE_TTL_SECONDS"
	EnvEnabled    = "DYNTREE_CACHE_ENABLED"
	EnvDir        = "DYNTREE_CACHE_DIR"
	EnvMaxSizeMB  = "DYNTREE_CACHE_MAX_SIZE_MB"
)

// ErrInvalidTTL is returned for a TTL outside [MinTTLSeconds, MaxTTLSeconds].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %d and %d seconds", MinTTLSeconds, MaxTTLSeconds)

// TTLFromEnv returns the TTL from DYNTREE_CACHE_TTL_SECONDS, or fallback
// when the variable is unset or out of range.
func TTLFromEnv(fallback int) int {
	v := os.Getenv(EnvTTLSeconds)
	if v == "" {
		return fallback
	}
	ttl, err := ParseTTL(v)
	if err != nil {
		return fallback
	}
	return ttl
}

// EnabledFromEnv returns DYNTREE_CACHE_ENABLED parsed as a bool, or fallback.
func EnabledFromEnv(fallback bool) bool {
	v := os.Getenv(EnvEnabled)
	if v == "" {
		return fallback
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return enabled
}

// DirFromEnv returns DYNTREE_CACHE_DIR, or fallback when unset.
func DirFromEnv(fallback string) string {
	if v := os.Getenv(EnvDir); v != "" {
		return v
	}
	return fallback
}

// MaxSizeFromEnv returns DYNTREE_CACHE_MAX_SIZE_MB, or fallback when unset
// or negative.
func MaxSizeFromEnv(fallback int) int {
	v := os.Getenv(EnvMaxSizeMB)
	if v == "" {
		return fallback
	}
	size, err := strconv.Atoi(v)
	if err != nil || size < 0 {
		return fallback
	}
	return size
}

// ParseTTL accepts integer seconds ("3600") or a duration ("1h30m").
func ParseTTL(s string) (int, error) {
	seconds, err := strconv.Atoi(s)
	if err != nil {
		d, durErr := time.ParseDuration(s)
		if durErr != nil {
			return 0, fmt.Errorf("invalid TTL format: %w", durErr)
		}
		seconds = int(d.Seconds())
	}

	if seconds < MinTTLSeconds || seconds > MaxTTLSeconds {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidTTL, seconds)
	}
	return seconds, nil
}

// FormatDuration renders d compactly: "45s", "30m", "1h30m", "2d3h".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	case d < hoursPerDay*time.Hour:
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	default:
		days := int(d.Hours()) / hoursPerDay
		hours := int(d.Hours()) % hoursPerDay
		if hours == 0 {
			return fmt.Sprintf("%dd", days)
		}
		return fmt.Sprintf("%dd%dh", days, hours)
	}
}
