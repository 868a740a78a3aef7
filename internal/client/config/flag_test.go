package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "https://auth.example.com", "-k", "anon", "-d", "/tmp/c.db", "-s", "pw", "-i", "10", "-r", "2"},
			expected: &Config{
				AuthorityURL:            "https://auth.example.com",
				APIKey:                  "anon",
				CachePath:               "/tmp/c.db",
				CacheSecret:             "pw",
				RefreshCheckInterval:    10 * time.Second,
				OnboardingRetryAttempts: 2,
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"cmd", "-c", "conf.json", "-i", "5", "-v"},
			expected: &Config{RefreshCheckInterval: 5 * time.Second},
		},
		{name: "incorrect check interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
