package config

import (
	"fmt"
	"time"
)

// ValidatePositiveDuration validates that a duration is greater than zero.
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateIntRange validates that v lies in [min, max].
func ValidateIntRange(v, min, max int) error {
	if v < min || v > max {
		return fmt.Errorf("value %d must be between %d and %d", v, min, max)
	}
	return nil
}

// ValidateOneOf validates that v is one of the allowed values.
func ValidateOneOf(v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("value %q must be one of %v", v, allowed)
}
