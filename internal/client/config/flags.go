package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/dailybread/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   authority base URL
//	-k string   authority API key
//	-d string   local cache file
//	-s string   local cache secret
//	-i int      session refresh check interval in seconds
//	-r int      onboarding fetch retry attempts
//
// os.Args is filtered with flagx.FilterArgs first so other flag sets can
// share the command line.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-d", "-s", "-i", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.AuthorityURL, "a", cfg.AuthorityURL, "authority base URL")
	fs.StringVar(&cfg.APIKey, "k", cfg.APIKey, "authority API key")
	fs.StringVar(&cfg.CachePath, "d", cfg.CachePath, "local cache file")
	fs.StringVar(&cfg.CacheSecret, "s", cfg.CacheSecret, "local cache secret")
	refreshCheckInterval := fs.Int("i", int(cfg.RefreshCheckInterval.Seconds()), "session refresh check interval (in seconds)")
	fs.IntVar(&cfg.OnboardingRetryAttempts, "r", cfg.OnboardingRetryAttempts, "onboarding fetch retry attempts")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RefreshCheckInterval = time.Duration(*refreshCheckInterval) * time.Second
}
