package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"immodex/config"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func esResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header: http.Header{
			"X-Elastic-Product": []string{"Elasticsearch"},
			"Content-Type":      []string{"application/json"},
		},
		Body: io.NopCloser(strings.NewReader(body)),
	}
}

func newTestSession(t *testing.T, fn rtFunc) *Session {
	t.Helper()
	client, err := newWithTransport(config.ElasticConfig{
		Host:      "http://search.local:9200",
		PageSize:  20,
		FacetSize: 20,
	}, fn)
	if err != nil {
		t.Fatalf("newWithTransport: %v", err)
	}
	return client.Zone("z1")
}

func TestFindDropsInvalidDocuments(t *testing.T) {
	broken := validSource()
	delete(broken, "title")

	hits := []map[string]any{
		{"_id": "C_A", "_source": validSource()},
		{"_id": "C_BAD", "_source": broken},
		{"_id": "C_B", "_source": validSource()},
	}
	body, _ := json.Marshal(map[string]any{
		"hits": map[string]any{
			"total": map[string]any{"value": 3},
			"hits":  hits,
		},
	})

	session := newTestSession(t, func(r *http.Request) (*http.Response, error) {
		return esResponse(http.StatusOK, string(body)), nil
	})

	page, err := session.Find(context.Background(), Predicates{}, 1)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(page.Listings) != 2 {
		t.Fatalf("got %d listings, want the broken one dropped", len(page.Listings))
	}
	if page.Total != 2 {
		t.Fatalf("total = %d, want decremented to 2", page.Total)
	}
	if page.Pages != 1 {
		t.Fatalf("pages = %d, want recomputed from corrected total", page.Pages)
	}
	if page.Listings[0].ID != "C_A" || page.Listings[1].ID != "C_B" {
		t.Fatalf("ids = %s, %s", page.Listings[0].ID, page.Listings[1].ID)
	}
}

func TestFindPaginates(t *testing.T) {
	var requested struct {
		From int `json:"from"`
		Size int `json:"size"`
	}
	session := newTestSession(t, func(r *http.Request) (*http.Response, error) {
		json.NewDecoder(r.Body).Decode(&requested)
		return esResponse(http.StatusOK, `{"hits":{"total":{"value":0},"hits":[]}}`), nil
	})

	if _, err := session.Find(context.Background(), Predicates{}, 3); err != nil {
		t.Fatalf("Find: %v", err)
	}
	if requested.From != 40 || requested.Size != 20 {
		t.Fatalf("from/size = %d/%d, want 40/20 for page 3", requested.From, requested.Size)
	}
}

func TestGetNotFound(t *testing.T) {
	session := newTestSession(t, func(r *http.Request) (*http.Response, error) {
		return esResponse(http.StatusNotFound, `{"found":false}`), nil
	})

	_, err := session.Get(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReturnsSource(t *testing.T) {
	session := newTestSession(t, func(r *http.Request) (*http.Response, error) {
		return esResponse(http.StatusOK, `{"_id":"C_X","_source":{"sku":"X","is_new":true}}`), nil
	})

	source, err := session.Get(context.Background(), "C_X")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if source["sku"] != "X" {
		t.Fatalf("source = %#v", source)
	}
}

func TestExists(t *testing.T) {
	statuses := map[int]bool{http.StatusOK: true, http.StatusNotFound: false}
	for status, want := range statuses {
		session := newTestSession(t, func(r *http.Request) (*http.Response, error) {
			return esResponse(status, ""), nil
		})
		got, err := session.Exists(context.Background(), "C_X")
		if err != nil {
			t.Fatalf("Exists(%d): %v", status, err)
		}
		if got != want {
			t.Fatalf("Exists with status %d = %v, want %v", status, got, want)
		}
	}
}

func TestExistsSurfacesStoreErrors(t *testing.T) {
	session := newTestSession(t, func(r *http.Request) (*http.Response, error) {
		return esResponse(http.StatusInternalServerError, `{"error":"boom"}`), nil
	})

	_, err := session.Exists(context.Background(), "C_X")
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	var captured string
	session := newTestSession(t, func(r *http.Request) (*http.Response, error) {
		data, _ := io.ReadAll(r.Body)
		captured = string(data)
		return esResponse(http.StatusOK, `{"deleted":4}`), nil
	})

	deleted, err := session.DeleteOlderThan(context.Background(), 30)
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if deleted != 4 {
		t.Fatalf("deleted = %d, want 4", deleted)
	}
	if !strings.Contains(captured, "now-30d/d") {
		t.Fatalf("query body %q lacks the date cutoff", captured)
	}
}

func TestCount(t *testing.T) {
	session := newTestSession(t, func(r *http.Request) (*http.Response, error) {
		return esResponse(http.StatusOK, `{"count":42}`), nil
	})

	count, err := session.Count(context.Background(), Predicates{Catalog: "c1"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 42 {
		t.Fatalf("count = %d, want 42", count)
	}
}

func TestTermFacets(t *testing.T) {
	body := `{"aggregations":{"values":{"buckets":[
		{"key":"croix","doc_count":3},
		{"key":"lille","doc_count":12}
	]}}}`
	session := newTestSession(t, func(r *http.Request) (*http.Response, error) {
		return esResponse(http.StatusOK, body), nil
	})

	facets, err := session.TermFacets(context.Background(), "city", "")
	if err != nil {
		t.Fatalf("TermFacets: %v", err)
	}
	if len(facets) != 2 || facets[0].Value != "croix" || facets[1].Count != 12 {
		t.Fatalf("facets = %#v", facets)
	}
}
