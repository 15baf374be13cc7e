// Package config holds the closed set of typed queuectl settings and their
// validation rules. Values themselves live in the Store's config table
// (see internal/store); this package only knows how to parse, validate and
// default them, in the spirit of the teacher's Config struct.
package config

import (
	"errors"
	"fmt"
	"strconv"
)

// Key names, exactly the closed set from the spec.
const (
	KeyMaxRetries    = "max-retries"
	KeyBackoffBase   = "backoff-base"
	KeyPollInterval  = "poll-interval-seconds"
	KeyStuckTimeout  = "stuck-timeout-seconds"
)

// ErrUnknownKey is returned for any key outside the closed set.
var ErrUnknownKey = errors.New("unknown config key")

// Keys lists the closed key set in a stable display order.
var Keys = []string{KeyMaxRetries, KeyBackoffBase, KeyPollInterval, KeyStuckTimeout}

// Defaults returns the default string-encoded value for each key.
func Defaults() map[string]string {
	return map[string]string{
		KeyMaxRetries:   "3",
		KeyBackoffBase:  "2",
		KeyPollInterval: "1",
		KeyStuckTimeout: "3600",
	}
}

// Values is the typed view over the four settings, loaded from the store.
type Values struct {
	MaxRetries          int
	BackoffBase         int
	PollIntervalSeconds float64
	StuckTimeoutSeconds int
}

// Validate parses and validates a raw value for key, returning the
// canonical string form to persist. Unknown keys return ErrUnknownKey.
func Validate(key, raw string) (string, error) {
	switch key {
	case KeyMaxRetries:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return "", fmt.Errorf("max-retries must be an integer >= 0, got %q", raw)
		}
		return strconv.Itoa(n), nil
	case KeyBackoffBase:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return "", fmt.Errorf("backoff-base must be an integer >= 1, got %q", raw)
		}
		return strconv.Itoa(n), nil
	case KeyPollInterval:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f <= 0 {
			return "", fmt.Errorf("poll-interval-seconds must be a number > 0, got %q", raw)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case KeyStuckTimeout:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return "", fmt.Errorf("stuck-timeout-seconds must be an integer >= 0, got %q", raw)
		}
		return strconv.Itoa(n), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// ParseValues turns a raw string map (as returned by the store) into typed
// Values, falling back to defaults for anything missing.
func ParseValues(raw map[string]string) (Values, error) {
	merged := Defaults()
	for k, v := range raw {
		merged[k] = v
	}

	maxRetries, err := strconv.Atoi(merged[KeyMaxRetries])
	if err != nil {
		return Values{}, fmt.Errorf("stored max-retries is invalid: %w", err)
	}
	backoffBase, err := strconv.Atoi(merged[KeyBackoffBase])
	if err != nil {
		return Values{}, fmt.Errorf("stored backoff-base is invalid: %w", err)
	}
	pollInterval, err := strconv.ParseFloat(merged[KeyPollInterval], 64)
	if err != nil {
		return Values{}, fmt.Errorf("stored poll-interval-seconds is invalid: %w", err)
	}
	stuckTimeout, err := strconv.Atoi(merged[KeyStuckTimeout])
	if err != nil {
		return Values{}, fmt.Errorf("stored stuck-timeout-seconds is invalid: %w", err)
	}

	return Values{
		MaxRetries:          maxRetries,
		BackoffBase:         backoffBase,
		PollIntervalSeconds: pollInterval,
		StuckTimeoutSeconds: stuckTimeout,
	}, nil
}

// IsKnownKey reports whether key is part of the closed set.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
