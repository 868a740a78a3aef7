// Package config loads runtime configuration for the dailybread CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c / -config, or $DAILYBREAD_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   authority base URL
//	-k string   authority API key
//	-d string   local cache file
//	-s string   local cache secret
//	-i int      session refresh check interval (seconds)
//	-r int      onboarding fetch retry attempts
//
// # JSON schema
//
// Intervals are timex.Duration values, so they may be strings like "30s" or
// integer nanoseconds. Keys left out keep their default:
//
//	{
//	  "authority_url": "https://auth.example.com",
//	  "api_key": "anon-key",
//	  "cache_path": "/var/lib/dailybread/cache.db",
//	  "cache_secret": "device-secret",
//	  "request_timeout": "10s",
//	  "refresh_check_interval": "30s",
//	  "refresh_margin": "1m",
//	  "onboarding_retry_attempts": 3,
//	  "onboarding_retry_delay": "1s",
//	  "google_revoke_url": "https://oauth2.googleapis.com/revoke"
//	}
package config
