package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"immodex/config"
)

// Session exposes the per-zone document operations. The index carries a
// folding normalizer on city and features so accents and case never
// matter at query time.
type Session struct {
	es    *elasticsearch.Client
	cfg   config.ElasticConfig
	index string
}

// Index returns the zone's index name.
func (s *Session) Index() string { return s.index }

// Get fetches a document's source by id.
func (s *Session) Get(ctx context.Context, id string) (map[string]any, error) {
	res, err := s.es.Get(s.index, id, s.es.Get.WithContext(ctx))
	if err != nil {
		return nil, &StoreError{Op: "get", Index: s.index, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, &StoreError{Op: "get", Index: s.index, Err: fmt.Errorf("status %s: %s", res.Status(), body)}
	}

	var parsed struct {
		Source map[string]any `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &StoreError{Op: "get", Index: s.index, Err: err}
	}
	return parsed.Source, nil
}

// Exists probes a document id without fetching its source.
func (s *Session) Exists(ctx context.Context, id string) (bool, error) {
	res, err := s.es.Exists(s.index, id, s.es.Exists.WithContext(ctx))
	if err != nil {
		return false, &StoreError{Op: "exists", Index: s.index, Err: err}
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &StoreError{Op: "exists", Index: s.index, Err: fmt.Errorf("status %s", res.Status())}
	}
}

// Save upserts a document under the given id. With ForceRefresh set the
// write is visible to the next search, which the tests rely on; production
// leaves it off and accepts the refresh interval.
func (s *Session) Save(ctx context.Context, id string, doc map[string]any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return &StoreError{Op: "save", Index: s.index, Err: err}
	}

	opts := []func(*esapi.IndexRequest){
		s.es.Index.WithDocumentID(id),
		s.es.Index.WithContext(ctx),
	}
	if s.cfg.ForceRefresh {
		opts = append(opts, s.es.Index.WithRefresh("true"))
	}

	res, err := s.es.Index(s.index, bytes.NewReader(body), opts...)
	if err != nil {
		return &StoreError{Op: "save", Index: s.index, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return &StoreError{Op: "save", Index: s.index, Err: fmt.Errorf("status %s: %s", res.Status(), data)}
	}
	return nil
}

// Delete removes a document by id. Deleting a missing id is not an error.
func (s *Session) Delete(ctx context.Context, id string) error {
	res, err := s.es.Delete(s.index, id, s.es.Delete.WithContext(ctx))
	if err != nil {
		return &StoreError{Op: "delete", Index: s.index, Err: err}
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return &StoreError{Op: "delete", Index: s.index, Err: fmt.Errorf("status %s", res.Status())}
	}
	return nil
}

// DeleteOlderThan removes every listing whose end date is older than the
// given number of days, returning how many were removed. Listings with no
// recent ingest are no longer offered; this is the sweep that makes user
// reference lists grow orphans.
func (s *Session) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	query := map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"scraping_end_date": map[string]any{
					"lt": fmt.Sprintf("now-%dd/d", days),
				},
			},
		},
	}
	body, _ := json.Marshal(query)

	res, err := s.es.DeleteByQuery([]string{s.index}, bytes.NewReader(body), s.es.DeleteByQuery.WithContext(ctx))
	if err != nil {
		return 0, &StoreError{Op: "delete_by_query", Index: s.index, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return 0, &StoreError{Op: "delete_by_query", Index: s.index, Err: fmt.Errorf("status %s: %s", res.Status(), data)}
	}

	var parsed struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, &StoreError{Op: "delete_by_query", Index: s.index, Err: err}
	}
	if parsed.Deleted > 0 {
		log.Printf("Deleted %d obsolete listings from %s", parsed.Deleted, s.index)
	}
	return parsed.Deleted, nil
}

// CreateIndex provisions the zone's index with the folding analysis chain
// and the listing mapping. Used by provisioning tooling, not the runtime
// path.
func (s *Session) CreateIndex(ctx context.Context) error {
	body, _ := json.Marshal(indexDefinition())

	res, err := s.es.Indices.Create(
		s.index,
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
		s.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return &StoreError{Op: "create_index", Index: s.index, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return &StoreError{Op: "create_index", Index: s.index, Err: fmt.Errorf("status %s: %s", res.Status(), data)}
	}
	log.Printf("Created index %s", s.index)
	return nil
}

// DeleteIndex drops the zone's index and everything in it.
func (s *Session) DeleteIndex(ctx context.Context) error {
	res, err := s.es.Indices.Delete([]string{s.index}, s.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return &StoreError{Op: "delete_index", Index: s.index, Err: err}
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return &StoreError{Op: "delete_index", Index: s.index, Err: fmt.Errorf("status %s", res.Status())}
	}
	log.Printf("Deleted index %s", s.index)
	return nil
}

func indexDefinition() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"analysis": map[string]any{
				"normalizer": map[string]any{
					"folding": map[string]any{
						"type":   "custom",
						"filter": []string{"lowercase", "asciifolding"},
					},
				},
				"analyzer": map[string]any{
					"folding_text": map[string]any{
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "asciifolding"},
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"sku":                 map[string]any{"type": "keyword"},
				"title":               map[string]any{"type": "text", "analyzer": "folding_text"},
				"description":         map[string]any{"type": "text", "analyzer": "folding_text"},
				"price":               map[string]any{"type": "double"},
				"area":                map[string]any{"type": "double"},
				"city":                map[string]any{"type": "keyword", "normalizer": "folding"},
				"catalog":             map[string]any{"type": "keyword"},
				"features":            map[string]any{"type": "keyword", "normalizer": "folding"},
				"media":               map[string]any{"type": "keyword", "index": false},
				"url":                 map[string]any{"type": "keyword", "index": false},
				"scraping_start_date": map[string]any{"type": "date", "format": "yyyy-MM-dd"},
				"scraping_end_date":   map[string]any{"type": "date", "format": "yyyy-MM-dd"},
				"is_new":              map[string]any{"type": "boolean"},
				"quality_index":       map[string]any{"type": "double"},
			},
		},
	}
}
