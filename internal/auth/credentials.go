// Package auth acquires and caches service-to-service bearer credentials
// for the Microsoft Graph API.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sshaikhIntervision/Brinkmann/internal/config"
	"github.com/sshaikhIntervision/Brinkmann/internal/logger"
)

// TokenProvider yields a valid bearer token for Graph API calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// AuthError indicates that a credential could not be acquired. It is fatal
// to the enclosing ingestion run: no further API calls can succeed.
type AuthError struct {
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("acquire credential: %v", e.Err)
}

// Unwrap returns the underlying provider error.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Credential is a bearer token with its absolute expiry instant. Replaced
// wholesale on refresh, never mutated.
type Credential struct {
	AccessToken string
	Expiry      time.Time
}

// CredentialCache caches a single shared credential behind a mutex. A
// credential within the safety margin of expiry is refreshed synchronously
// while the lock is held, so concurrent callers block rather than issue
// duplicate refreshes.
type CredentialCache struct {
	mu       sync.Mutex
	current  *Credential
	cc       clientcredentials.Config
	client   *http.Client
	margin   time.Duration
	lifetime time.Duration
	now      func() time.Time
	log      logger.Interface
}

// NewCredentialCache creates a cache performing client-credentials grants
// against the Microsoft identity platform for the configured tenant.
func NewCredentialCache(cfg config.GraphConfig, client *http.Client, log logger.Interface) *CredentialCache {
	return &CredentialCache{
		cc: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", cfg.AuthorityURL, cfg.TenantID),
			Scopes:       []string{cfg.Scope},
		},
		client:   client,
		margin:   config.TokenMargin(),
		lifetime: config.TokenLifetime(),
		now:      time.Now,
		log:      log,
	}
}

// Token returns a valid bearer token, refreshing it first when none is
// cached or the cached one is within the safety margin of expiry.
func (c *CredentialCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.now().Before(c.current.Expiry.Add(-c.margin)) {
		return c.current.AccessToken, nil
	}

	cred, err := c.refresh(ctx)
	if err != nil {
		return "", err
	}
	c.current = cred
	c.log.Debug("credential refreshed", "expiry", cred.Expiry)
	return cred.AccessToken, nil
}

// Invalidate drops the cached credential so the next Token call refreshes.
func (c *CredentialCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// refresh exchanges the service identity for a fresh token. Called with the
// cache lock held.
func (c *CredentialCache) refresh(ctx context.Context) (*Credential, error) {
	if c.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	}

	tok, err := c.cc.Token(ctx)
	if err != nil {
		// oauth2.RetrieveError carries the provider's error payload in
		// its message, so wrapping is enough to surface it.
		return nil, &AuthError{Err: err}
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		// Provider declared no lifetime. Assume a conservative one.
		expiry = c.now().Add(c.lifetime)
	}

	return &Credential{AccessToken: tok.AccessToken, Expiry: expiry}, nil
}
