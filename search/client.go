package search

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"immodex/config"
)

// Client wraps the search store connection. Each zone maps to one index;
// per-zone operations go through a Session obtained with Zone.
type Client struct {
	es  *elasticsearch.Client
	cfg config.ElasticConfig
}

func New(cfg config.ElasticConfig) (*Client, error) {
	return newWithTransport(cfg, nil)
}

func newWithTransport(cfg config.ElasticConfig, transport http.RoundTripper) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Host},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("search: create client: %w", err)
	}
	return &Client{es: es, cfg: cfg}, nil
}

// Zone returns a session bound to the zone's index.
func (c *Client) Zone(zone string) *Session {
	return &Session{es: c.es, cfg: c.cfg, index: zone}
}

// Health pings the cluster. Used by the daemon's startup check.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return &StoreError{Op: "ping", Index: "-", Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return &StoreError{Op: "ping", Index: "-", Err: fmt.Errorf("status %s: %s", res.Status(), body)}
	}
	return nil
}
