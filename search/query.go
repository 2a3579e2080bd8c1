package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"immodex/models"
	"immodex/textutil"
)

// Predicates is the declarative filter set for listing queries. Every
// predicate has a neutral zero value meaning "no constraint": an empty
// Predicates matches everything.
type Predicates struct {
	// Cities restricts to listings whose folded city matches one of the
	// given names.
	Cities []string

	// MaxPrice restricts price to [0, MaxPrice]. Zero means unset, not
	// "free only".
	MaxPrice float64

	// ExcludeIDs drops the given document ids. Blank ids are filtered out
	// before querying; an empty-string id would error the ids query.
	ExcludeIDs []string

	// RequiredFeatures must all be present on the listing.
	RequiredFeatures []string

	// Catalog is an exact match on the catalog field.
	Catalog string
}

func (p Predicates) query() map[string]any {
	var must, mustNot []any

	if len(p.Cities) > 0 {
		folded := make([]string, 0, len(p.Cities))
		for _, city := range p.Cities {
			city = strings.ToLower(textutil.Fold(strings.TrimSpace(city)))
			if city != "" {
				folded = append(folded, regexp.QuoteMeta(city))
			}
		}
		if len(folded) > 0 {
			must = append(must, map[string]any{
				"regexp": map[string]any{
					"city": ".*(" + strings.Join(folded, "|") + ").*",
				},
			})
		}
	}

	// features compose with AND, one term clause each
	for _, feature := range p.RequiredFeatures {
		feature = strings.TrimSpace(feature)
		if feature == "" {
			continue
		}
		must = append(must, map[string]any{
			"term": map[string]any{"features": feature},
		})
	}

	if p.MaxPrice > 0 {
		must = append(must, map[string]any{
			"range": map[string]any{
				"price": map[string]any{"gte": 0, "lte": p.MaxPrice},
			},
		})
	}

	if p.Catalog != "" {
		must = append(must, map[string]any{
			"term": map[string]any{"catalog": p.Catalog},
		})
	}

	ids := make([]string, 0, len(p.ExcludeIDs))
	for _, id := range p.ExcludeIDs {
		if strings.TrimSpace(id) != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		mustNot = append(mustNot, map[string]any{
			"ids": map[string]any{"values": ids},
		})
	}

	if len(must) == 0 && len(mustNot) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}

	clause := map[string]any{}
	if len(must) > 0 {
		clause["must"] = must
	}
	if len(mustNot) > 0 {
		clause["must_not"] = mustNot
	}
	return map[string]any{"bool": clause}
}

// Page is one page of validated listings plus the corrected pagination
// metadata.
type Page struct {
	Listings []models.Listing `json:"listings"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Pages    int              `json:"pages"`
}

// Facet is one distinct field value and its document count.
type Facet struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Find runs the predicate set and returns one page, ordered new-first then
// by descending quality. Documents failing schema validation are dropped
// and the count corrected; a single broken document degrades the page
// instead of failing the request.
func (s *Session) Find(ctx context.Context, p Predicates, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	pageSize := s.cfg.PageSize

	body := map[string]any{
		"query": p.query(),
		"sort": []any{
			map[string]any{"is_new": map[string]any{"order": "desc"}},
			map[string]any{"quality_index": map[string]any{"order": "desc"}},
		},
		"from": pageSize * (page - 1),
		"size": pageSize,
	}
	data, _ := json.Marshal(body)

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(data)),
		s.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, &StoreError{Op: "search", Index: s.index, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, &StoreError{Op: "search", Index: s.index, Err: fmt.Errorf("status %s: %s", res.Status(), data)}
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &StoreError{Op: "search", Index: s.index, Err: err}
	}

	total := parsed.Hits.Total.Value
	listings := make([]models.Listing, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		listing, err := decodeListing(hit.ID, hit.Source)
		if err != nil {
			log.Printf("Dropping %s from results: %v", hit.ID, err)
			total--
			continue
		}
		listings = append(listings, *listing)
	}

	pages := 0
	if total > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return &Page{
		Listings: listings,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	}, nil
}

// Count returns how many listings the predicate set matches.
func (s *Session) Count(ctx context.Context, p Predicates) (int, error) {
	body, _ := json.Marshal(map[string]any{"query": p.query()})

	res, err := s.es.Count(
		s.es.Count.WithContext(ctx),
		s.es.Count.WithIndex(s.index),
		s.es.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return 0, &StoreError{Op: "count", Index: s.index, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return 0, &StoreError{Op: "count", Index: s.index, Err: fmt.Errorf("status %s: %s", res.Status(), data)}
	}

	var parsed struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, &StoreError{Op: "count", Index: s.index, Err: err}
	}
	return parsed.Count, nil
}

// TermFacets lists distinct values of a keyword field with document
// counts, alphabetically, capped at the configured facet size. A non-empty
// prefix narrows the values; it is folded the same way the field is
// indexed.
func (s *Session) TermFacets(ctx context.Context, field, prefix string) ([]Facet, error) {
	terms := map[string]any{
		"field": field,
		"size":  s.cfg.FacetSize,
		"order": map[string]any{"_key": "asc"},
	}
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		folded := strings.ToLower(textutil.Fold(prefix))
		terms["include"] = regexp.QuoteMeta(folded) + ".*"
	}

	body, _ := json.Marshal(map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"values": map[string]any{"terms": terms},
		},
	})

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, &StoreError{Op: "facets", Index: s.index, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		return nil, &StoreError{Op: "facets", Index: s.index, Err: fmt.Errorf("status %s: %s", res.Status(), data)}
	}

	var parsed struct {
		Aggregations struct {
			Values struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int    `json:"doc_count"`
				} `json:"buckets"`
			} `json:"values"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, &StoreError{Op: "facets", Index: s.index, Err: err}
	}

	facets := make([]Facet, 0, len(parsed.Aggregations.Values.Buckets))
	for _, bucket := range parsed.Aggregations.Values.Buckets {
		facets = append(facets, Facet{Value: bucket.Key, Count: bucket.DocCount})
	}
	return facets, nil
}
