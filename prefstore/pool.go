package prefstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"immodex/config"
)

// Conn is one authenticated connection to the preference store. A Conn is
// never shared between concurrent callers: the pool's lease/return
// discipline guarantees exclusive use, so no locking happens here.
type Conn struct {
	id        string
	cfg       config.FirebaseConfig
	client    *http.Client
	idToken   string
	refresh   string
	refreshed time.Time
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
}

func newConn(ctx context.Context, cfg config.FirebaseConfig, id int) (*Conn, error) {
	c := &Conn{
		id:     fmt.Sprintf("firebase_%d", id),
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	if err := c.signIn(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conn) signIn(ctx context.Context) error {
	body, _ := json.Marshal(map[string]any{
		"email":             c.cfg.Login,
		"password":          c.cfg.Password,
		"returnSecureToken": true,
	})

	endpoint := fmt.Sprintf("%s/v1/accounts:signInWithPassword?key=%s", c.cfg.AuthURL, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &StoreError{Op: "signin", Path: c.id, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return &StoreError{Op: "signin", Path: c.id, Err: fmt.Errorf("status %d: %s", resp.StatusCode, data)}
	}

	var parsed signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return &StoreError{Op: "signin", Path: c.id, Err: err}
	}

	c.idToken = parsed.IDToken
	c.refresh = parsed.RefreshToken
	c.refreshed = time.Now()
	return nil
}

// Token returns the current auth token, refreshing it through the
// refresh-credential grant once its age exceeds the configured TTL. A
// refresh failure fails the caller's current operation only: the
// connection stays in the pool and the refresh is retried on the next
// lease.
func (c *Conn) Token(ctx context.Context) (string, error) {
	if time.Since(c.refreshed) <= c.cfg.TokenTTL {
		return c.idToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", c.refresh)

	endpoint := fmt.Sprintf("%s/v1/token?key=%s", c.cfg.TokenURL, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &StoreError{Op: "refresh", Path: c.id, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return "", &StoreError{Op: "refresh", Path: c.id, Err: fmt.Errorf("status %d: %s", resp.StatusCode, data)}
	}

	var parsed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &StoreError{Op: "refresh", Path: c.id, Err: err}
	}

	c.idToken = parsed.IDToken
	if parsed.RefreshToken != "" {
		c.refresh = parsed.RefreshToken
	}
	// reset the clock, otherwise the token would be refreshed on every
	// call from now on
	c.refreshed = time.Now()
	log.Printf("Token for %s refreshed", c.id)

	return c.idToken, nil
}

// Pool holds a fixed set of long-lived authenticated connections. Its
// size is the maximum concurrency against the preference store: callers
// beyond that bound block in Acquire until a connection is released.
type Pool struct {
	conns chan *Conn
}

// NewPool opens size connections eagerly and fails if any sign-in fails.
func NewPool(ctx context.Context, cfg config.FirebaseConfig) (*Pool, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}

	p := &Pool{conns: make(chan *Conn, cfg.PoolSize)}
	for i := 0; i < cfg.PoolSize; i++ {
		conn, err := newConn(ctx, cfg, i)
		if err != nil {
			return nil, fmt.Errorf("open connection %d: %w", i, err)
		}
		p.conns <- conn
	}
	return p, nil
}

// Acquire leases a connection, blocking until one is available. The
// release func must be called on every exit path (defer it); calling it
// more than once is harmless.
func (p *Pool) Acquire(ctx context.Context) (*Conn, func(), error) {
	select {
	case conn := <-p.conns:
		var released bool
		release := func() {
			if released {
				return
			}
			released = true
			p.conns <- conn
		}
		return conn, release, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
