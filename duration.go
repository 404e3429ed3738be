package rwlock

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/juju/errors"
)

// WarnTimeoutEnv names the environment variable holding the default warning
// threshold for slow acquisitions.
const WarnTimeoutEnv = "RWLOCK_WARN_TIMEOUT"

const defaultWarnTimeout = time.Second

var dayUnit = regexp.MustCompile(`([-+]?[0-9]*\.?[0-9]+)d`)

// ParseDuration parses a duration string like time.ParseDuration does, and
// also accepts a "d" unit of 24 hours, e.g. "1.5d" or "2d12h".
func ParseDuration(s string) (time.Duration, error) {
	var convErr error
	s = dayUnit.ReplaceAllStringFunc(s, func(m string) string {
		days, err := strconv.ParseFloat(m[:len(m)-1], 64)
		if err != nil {
			convErr = err
			return m
		}
		return strconv.FormatFloat(days*24, 'f', -1, 64) + "h"
	})
	if convErr != nil {
		return 0, errors.Annotatef(convErr, "parsing duration %q", s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return d, nil
}

// GetDurationEnvOrDefault returns the duration held in the environment
// variable key, or defaultValue when it is unset or cannot be parsed.
func GetDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

// DefaultWarnTimeout is the warning threshold used when none is given:
// RWLOCK_WARN_TIMEOUT if set, one second otherwise.
func DefaultWarnTimeout() time.Duration {
	return GetDurationEnvOrDefault(WarnTimeoutEnv, defaultWarnTimeout)
}
