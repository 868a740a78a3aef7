package config

import (
	"os"
	"path/filepath"
	"time"
)

// ConfigEnvVar names the environment variable consulted for the JSON config
// path when neither -c nor -config is given.
const ConfigEnvVar = "DAILYBREAD_CONFIG"

// Config holds runtime settings for the dailybread CLI.
//
// Fields:
//   - AuthorityURL / APIKey: base URL and public key of the remote authority.
//   - CachePath / CacheSecret: local SQLite file and the secret its values
//     are sealed with.
//   - RequestTimeout: per-request HTTP timeout.
//   - RefreshCheckInterval / RefreshMargin: how often the session expiry is
//     checked and how early it is refreshed.
//   - OnboardingRetryAttempts / OnboardingRetryDelay: retries of a failed
//     onboarding fetch; 0 attempts disables retrying.
//   - GoogleRevokeURL: token revocation endpoint torn down on sign-out.
type Config struct {
	AuthorityURL            string
	APIKey                  string
	CachePath               string
	CacheSecret             string
	RequestTimeout          time.Duration
	RefreshCheckInterval    time.Duration
	RefreshMargin           time.Duration
	OnboardingRetryAttempts int
	OnboardingRetryDelay    time.Duration
	GoogleRevokeURL         string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.AuthorityURL = "http://127.0.0.1:8080"
	c.APIKey = "dev-anon-key"
	c.CachePath = defaultCachePath()
	c.CacheSecret = "dailybread-device"
	c.RequestTimeout = 10 * time.Second
	c.RefreshCheckInterval = 30 * time.Second
	c.RefreshMargin = time.Minute
	c.OnboardingRetryAttempts = 0
	c.OnboardingRetryDelay = time.Second
	c.GoogleRevokeURL = ""
}

func defaultCachePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "dailybread.db"
	}
	return filepath.Join(dir, "dailybread", "cache.db")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
