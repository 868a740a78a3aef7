package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/dmitrijs2005/dailybread/internal/client/authstate"
	"github.com/dmitrijs2005/dailybread/internal/client/cache"
	"github.com/dmitrijs2005/dailybread/internal/client/client"
	"github.com/dmitrijs2005/dailybread/internal/client/config"
	"github.com/dmitrijs2005/dailybread/internal/client/identity"
	"github.com/dmitrijs2005/dailybread/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dailybread/internal/client/services"
	"github.com/dmitrijs2005/dailybread/internal/filex"
	"github.com/dmitrijs2005/dailybread/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config      *config.Config
	authService services.AuthService
	autoRefresh func(ctx context.Context)
	log         logging.Logger
	reader      *bufio.Reader
	out         io.Writer
	db          *sql.DB
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.NewTextLogger(os.Stderr, slog.LevelWarn)

	path, err := filex.EnsureParentDir(c.CachePath)
	if err != nil {
		return nil, fmt.Errorf("prepare cache directory: %w", err)
	}

	db, err := client.InitDatabase(ctx, path)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", path, "err", err)
		return nil, err
	}

	store, err := cache.NewSecureStore(ctx, metadata.NewSQLiteRepository(db), []byte(c.CacheSecret))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: c.RequestTimeout}
	authority := client.NewHTTPClient(c.AuthorityURL, c.APIKey, client.NewCacheSessionStore(store), log,
		client.WithHTTPClient(httpClient))

	var idp identity.Provider = identity.Noop{}
	if c.GoogleRevokeURL != "" {
		idp = identity.NewGoogle(c.GoogleRevokeURL, httpClient)
	}

	var opts []authstate.Option
	if c.OnboardingRetryAttempts > 0 {
		opts = append(opts, authstate.WithRetry(authstate.DefaultRetryPolicy(c.OnboardingRetryAttempts, c.OnboardingRetryDelay)))
	}

	lc := cache.NewLogged(store, log)
	writer := cache.NewWriter(lc, 32)
	engine := authstate.New(authority, lc, writer, idp, log, opts...)

	return &App{
		config:      c,
		authService: services.NewAuthService(authority, engine, writer),
		autoRefresh: func(ctx context.Context) {
			authority.StartAutoRefresh(ctx, c.RefreshCheckInterval, c.RefreshMargin)
		},
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		db:     db,
	}, nil
}

// Run starts the synchronizer and the background token refresher, then
// blocks in the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	if err := a.authService.Start(ctx); err != nil {
		return err
	}
	if a.autoRefresh != nil {
		go a.autoRefresh(ctx)
	}

	a.Root(ctx)
	return nil
}

func (a *App) close() {
	a.authService.Close()
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.authService.Snapshot().User != nil
}
