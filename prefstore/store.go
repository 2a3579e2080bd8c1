package prefstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Store is the typed facade over the pooled, cached preference store.
// Values are addressed by a tenant path ("root/{kind}/{zone-or-id}") and a
// key, and cross the wire in flattened form (see codec.go).
type Store struct {
	pool   *Pool
	cache  *TenantCache
	dbURL  string
	client *http.Client
}

func NewStore(pool *Pool, cache *TenantCache, dbURL string) *Store {
	return &Store{
		pool:   pool,
		cache:  cache,
		dbURL:  strings.TrimRight(dbURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Store) path(tenant, key string) string {
	if key == "" {
		return fmt.Sprintf("%s/%s.json", s.dbURL, tenant)
	}
	return fmt.Sprintf("%s/%s/%s.json", s.dbURL, tenant, key)
}

func (s *Store) do(ctx context.Context, method, tenant, key string, body any) (any, error) {
	conn, release, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	token, err := conn.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &StoreError{Op: method, Path: tenant + "/" + key, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	endpoint := s.path(tenant, key) + "?auth=" + token
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &StoreError{Op: method, Path: tenant + "/" + key, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return nil, &StoreError{
			Op:   method,
			Path: tenant + "/" + key,
			Err:  fmt.Errorf("status %d: %s", resp.StatusCode, data),
		}
	}

	var value any
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil && err != io.EOF {
		return nil, &StoreError{Op: method, Path: tenant + "/" + key, Err: err}
	}
	return value, nil
}

// Get fetches the value of a key under a tenant. With useCache=false the
// live store is always hit; use that wherever read-your-writes
// consistency matters, e.g. right after a write.
func (s *Store) Get(ctx context.Context, tenant, key string, useCache bool) (any, error) {
	if strings.TrimSpace(tenant) == "" || strings.TrimSpace(key) == "" {
		return nil, ErrInvalidArgument
	}

	load := func() (any, error) {
		value, err := s.do(ctx, http.MethodGet, tenant, key, nil)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, ErrNotFound
		}
		return value, nil
	}

	if useCache {
		return s.cache.Get(tenant, key, load)
	}
	return load()
}

// Set stores a key/value entry in flattened wire form and invalidates the
// tenant cache. The invalidate-on-every-write rule admits no exceptions.
func (s *Store) Set(ctx context.Context, tenant, key string, value any) error {
	if strings.TrimSpace(tenant) == "" {
		return ErrInvalidArgument
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: cannot set a value with a blank key", ErrInvalidArgument)
	}

	if _, err := s.do(ctx, http.MethodPut, tenant, key, Flatten(value)); err != nil {
		return err
	}

	s.cache.Invalidate(tenant)
	return nil
}

// Delete removes the key and its value, then invalidates the tenant cache.
func (s *Store) Delete(ctx context.Context, tenant, key string) error {
	if strings.TrimSpace(tenant) == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidArgument
	}

	if _, err := s.do(ctx, http.MethodDelete, tenant, key, nil); err != nil {
		return err
	}
	log.Printf("Removed key %s/%s", tenant, key)

	s.cache.Invalidate(tenant)
	return nil
}

// ListAll returns all values stored under the tenant path, uncached.
func (s *Store) ListAll(ctx context.Context, tenant string) ([]any, error) {
	if strings.TrimSpace(tenant) == "" {
		return nil, ErrInvalidArgument
	}

	value, err := s.do(ctx, http.MethodGet, tenant, "", nil)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	entries, ok := value.(map[string]any)
	if !ok {
		return nil, &StoreError{Op: "list", Path: tenant, Err: fmt.Errorf("unexpected shape %T", value)}
	}

	out := make([]any, 0, len(entries))
	for _, v := range entries {
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}
