package rwlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	const day = 24 * time.Hour
	for _, tc := range []struct {
		input  string
		expect time.Duration
	}{
		{input: "3h", expect: 3 * time.Hour},
		{input: "1d", expect: day},
		{input: "1d30m", expect: day + 30*time.Minute},
		{input: "1m2d", expect: time.Minute + day*2},
		{input: "1m2d30s", expect: time.Minute + day*2 + 30*time.Second},
		{input: "1d2d", expect: 3 * day},
		{input: "1.5d", expect: time.Duration(1.5 * float64(day))},
		{input: "4m1.25d", expect: 4*time.Minute + time.Duration(1.25*float64(day))},
		{input: "-1.25d12h", expect: time.Duration(-1.25*float64(day)) - 12*time.Hour},
	} {
		t.Run(tc.input, func(t *testing.T) {
			actual, err := ParseDuration(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expect, actual)
		})
	}
}

func TestParseDurationInvalid(t *testing.T) {
	for _, input := range []string{"", "invalid", "d", "1x"} {
		_, err := ParseDuration(input)
		assert.Error(t, err, input)
	}
}

func TestGetDurationEnvOrDefault(t *testing.T) {
	for _, tc := range []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{name: "env not set returns default", envValue: "", want: 5 * time.Second},
		{name: "valid duration returns parsed value", envValue: "10s", want: 10 * time.Second},
		{name: "invalid duration returns default", envValue: "invalid", want: 5 * time.Second},
		{name: "days duration parsed correctly", envValue: "2d", want: 48 * time.Hour},
	} {
		t.Run(tc.name, func(t *testing.T) {
			const key = "RWLOCK_TEST_DURATION"
			t.Setenv(key, tc.envValue)
			assert.Equal(t, tc.want, GetDurationEnvOrDefault(key, 5*time.Second))
		})
	}
}

func TestDefaultWarnTimeout(t *testing.T) {
	t.Setenv(WarnTimeoutEnv, "")
	assert.Equal(t, time.Second, DefaultWarnTimeout())

	t.Setenv(WarnTimeoutEnv, "250ms")
	assert.Equal(t, 250*time.Millisecond, DefaultWarnTimeout())

	lock := NewNamed("env-default", 0, nil)
	defer lock.Close()
	assert.Equal(t, 250*time.Millisecond, lock.core.warnTimeout)
}
