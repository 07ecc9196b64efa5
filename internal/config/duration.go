package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses an optional, non-negative duration such as
// "15s". An empty value is 0. Errors name the config key.
func ParseDurationField(key, raw string) (time.Duration, error) {
	return ParseDurationOrDefault(key, raw, 0)
}

// ParseDurationOrDefault is ParseDurationField with def standing in for an
// empty or zero value.
func ParseDurationOrDefault(key, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: %q is not a duration: %w", key, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: %q is negative", key, raw)
	case d == 0:
		return def, nil
	}
	return d, nil
}
