package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/dailybread/internal/flagx"
	"github.com/dmitrijs2005/dailybread/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Intervals use
// timex.Duration so the file may say "3s" or give integer nanoseconds.
type JsonConfig struct {
	AuthorityURL            string         `json:"authority_url"`
	APIKey                  string         `json:"api_key"`
	CachePath               string         `json:"cache_path"`
	CacheSecret             string         `json:"cache_secret"`
	RequestTimeout          timex.Duration `json:"request_timeout"`
	RefreshCheckInterval    timex.Duration `json:"refresh_check_interval"`
	RefreshMargin           timex.Duration `json:"refresh_margin"`
	OnboardingRetryAttempts *int           `json:"onboarding_retry_attempts"`
	OnboardingRetryDelay    timex.Duration `json:"onboarding_retry_delay"`
	GoogleRevokeURL         string         `json:"google_revoke_url"`
}

// parseJson overlays Config with the values present in the JSON file named
// by -c/-config (or $DAILYBREAD_CONFIG). Absent keys keep their current
// value. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFile(ConfigEnvVar)
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.AuthorityURL, jc.AuthorityURL)
	setString(&cfg.APIKey, jc.APIKey)
	setString(&cfg.CachePath, jc.CachePath)
	setString(&cfg.CacheSecret, jc.CacheSecret)
	setString(&cfg.GoogleRevokeURL, jc.GoogleRevokeURL)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.RefreshCheckInterval, jc.RefreshCheckInterval)
	setDuration(&cfg.RefreshMargin, jc.RefreshMargin)
	setDuration(&cfg.OnboardingRetryDelay, jc.OnboardingRetryDelay)
	if jc.OnboardingRetryAttempts != nil {
		cfg.OnboardingRetryAttempts = *jc.OnboardingRetryAttempts
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
