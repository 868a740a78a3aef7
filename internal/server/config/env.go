package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded into the process environment if present. Variables that
// are already set win over the file.
var envFile = ".env"

// parseEnv overlays Config with DAILYBREAD_* environment variables after
// loading envFile. A missing file is fine; a malformed one panics.
//
//	DAILYBREAD_HTTP_ADDR      bind address
//	DAILYBREAD_DATABASE_DSN   PostgreSQL DSN
//	DAILYBREAD_SECRET_KEY     JWT HMAC secret
//	DAILYBREAD_API_KEY        apikey header value
//	DAILYBREAD_ACCESS_TTL     access token validity, minutes
//	DAILYBREAD_REFRESH_TTL    refresh token validity, minutes
func parseEnv(cfg *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	setString(&cfg.HTTPAddr, os.Getenv("DAILYBREAD_HTTP_ADDR"))
	setString(&cfg.DatabaseDSN, os.Getenv("DAILYBREAD_DATABASE_DSN"))
	setString(&cfg.SecretKey, os.Getenv("DAILYBREAD_SECRET_KEY"))
	setString(&cfg.APIKey, os.Getenv("DAILYBREAD_API_KEY"))
	setMinutes(&cfg.AccessTokenValidityDuration, os.Getenv("DAILYBREAD_ACCESS_TTL"))
	setMinutes(&cfg.RefreshTokenValidityDuration, os.Getenv("DAILYBREAD_REFRESH_TTL"))
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setMinutes(dst *time.Duration, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	m, err := strconv.Atoi(v)
	if err != nil || m <= 0 {
		panic("invalid minutes value: " + v)
	}
	*dst = time.Duration(m) * time.Minute
}
