// Package identity wraps third-party identity providers used to obtain the
// initial sign-in. The app's own session stays the source of truth: a
// provider failure never blocks an app sign-out.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/dmitrijs2005/dailybread/internal/netx"
)

var ErrProvider = errors.New("identity provider error")

// Provider is the teardown side of an external sign-in.
type Provider interface {
	Name() string
	SignOut(ctx context.Context) error
}

// Noop is used when the user never signed in through a provider.
type Noop struct{}

func (Noop) Name() string                  { return "none" }
func (Noop) SignOut(context.Context) error { return nil }

// DefaultGoogleRevokeURL is Google's OAuth token revocation endpoint.
const DefaultGoogleRevokeURL = "https://oauth2.googleapis.com/revoke"

// Google revokes the OAuth token obtained during Google sign-in.
type Google struct {
	revokeURL string
	http      *http.Client

	mu    sync.Mutex
	token string
}

func NewGoogle(revokeURL string, c *http.Client) *Google {
	if revokeURL == "" {
		revokeURL = DefaultGoogleRevokeURL
	}
	if c == nil {
		c = http.DefaultClient
	}
	return &Google{revokeURL: revokeURL, http: c}
}

func (g *Google) Name() string { return "google" }

// SetToken records the token handed out by the Google sign-in flow.
func (g *Google) SetToken(token string) {
	g.mu.Lock()
	g.token = token
	g.mu.Unlock()
}

// SignOut revokes the held token. Without a token there is nothing to do.
func (g *Google) SignOut(ctx context.Context) error {
	g.mu.Lock()
	token := g.token
	g.token = ""
	g.mu.Unlock()

	if token == "" {
		return nil
	}
	if err := netx.PostForm(ctx, g.http, g.revokeURL, url.Values{"token": {token}}); err != nil {
		return fmt.Errorf("%w: google revoke: %w", ErrProvider, err)
	}
	return nil
}
