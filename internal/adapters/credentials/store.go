// Package credentials caches OAuth2 client-credentials bearer tokens per provider.
package credentials

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"trip_planner/internal/adapters/httpclient"
	"trip_planner/internal/adapters/observability"
	"trip_planner/internal/domain"
)

// ClientCredentials is the out-of-band configuration of one OAuth provider.
type ClientCredentials struct {
	Provider     string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

func (c ClientCredentials) Configured() bool {
	return c.TokenURL != "" && c.ClientID != "" && c.ClientSecret != ""
}

func (c ClientCredentials) key() string { return c.TokenURL + "|" + c.ClientID }

// Credential is reused only while now < ExpiresAt.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

const defaultExchangeTimeout = 30 * time.Second

// Store is the process-owned token cache injected into provider clients.
type Store struct {
	hc       *httpclient.Client
	now      func() time.Time
	exchTime time.Duration
	mu       sync.RWMutex
	creds    map[string]Credential
	sf       singleflight.Group
}

type Option func(*Store)

// WithClock replaces time.Now, for expiry tests.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithExchangeTimeout bounds one token exchange regardless of who is waiting on it.
func WithExchangeTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.exchTime = d
		}
	}
}

func NewStore(hc *httpclient.Client, opts ...Option) *Store {
	if hc == nil {
		hc = httpclient.New("oauth")
	}
	s := &Store{hc: hc, now: time.Now, exchTime: defaultExchangeTimeout, creds: make(map[string]Credential)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Token returns a valid bearer token, exchanging client credentials when the
// cached one is missing or expired. Failures leave the cache untouched, so the
// next call retries the exchange.
func (s *Store) Token(ctx context.Context, cc ClientCredentials) (string, error) {
	if !cc.Configured() {
		return "", domain.ErrConfigAbsent
	}
	if c, ok := s.Cached(cc); ok {
		return c.Token, nil
	}

	// the shared exchange runs detached from whichever caller started it;
	// each caller waits on its own ctx
	ch := s.sf.DoChan(cc.key(), func() (any, error) {
		// a concurrent refresh may have landed while we queued
		if c, ok := s.Cached(cc); ok {
			return c.Token, nil
		}
		xctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.exchTime)
		defer cancel()
		c, err := s.exchange(xctx, cc)
		observability.ObserveTokenRefresh(cc.Provider, err)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.creds[cc.key()] = c
		s.mu.Unlock()
		return c.Token, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for token: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			log.Warn().Str("provider", cc.Provider).Err(res.Err).Msg("token exchange failed")
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Cached returns the stored credential if it has not expired.
func (s *Store) Cached(cc ClientCredentials) (Credential, bool) {
	s.mu.RLock()
	c, ok := s.creds[cc.key()]
	s.mu.RUnlock()
	if !ok || !s.now().Before(c.ExpiresAt) {
		return Credential{}, false
	}
	return c, true
}

func (s *Store) exchange(ctx context.Context, cc ClientCredentials) (Credential, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {cc.ClientID},
		"client_secret": {cc.ClientSecret},
	}
	var tr tokenResponse
	if err := s.hc.PostForm(ctx, "token", cc.TokenURL, form, &tr); err != nil {
		if ctx.Err() != nil {
			return Credential{}, fmt.Errorf("token exchange: %w", err)
		}
		return Credential{}, fmt.Errorf("%w: %w", domain.ErrAuthFailed, err)
	}
	if tr.AccessToken == "" {
		return Credential{}, fmt.Errorf("%w: response has no access_token", domain.ErrAuthFailed)
	}
	return Credential{
		Token:     tr.AccessToken,
		ExpiresAt: s.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
