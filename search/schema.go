package search

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"immodex/models"
)

// listingSchema is the strict shape a stored listing must have to be
// served. Old documents written before a mapping change can violate it;
// those are dropped from result sets instead of failing requests.
const listingSchema = `{
	"type": "object",
	"required": ["sku", "title", "price", "city", "catalog", "scraping_start_date", "scraping_end_date", "is_new", "quality_index"],
	"properties": {
		"sku": {"type": "string", "minLength": 1},
		"title": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"price": {"type": "number", "minimum": 0},
		"area": {"type": "number", "minimum": 0},
		"city": {"type": "string"},
		"catalog": {"type": "string", "minLength": 1},
		"features": {"type": "array", "items": {"type": "string"}},
		"media": {"type": "array", "items": {"type": "string"}},
		"url": {"type": "string"},
		"scraping_start_date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"scraping_end_date": {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"is_new": {"type": "boolean"},
		"quality_index": {"type": "number", "minimum": 0}
	}
}`

var compiledListingSchema = func() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(listingSchema))
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("listing.json", doc); err != nil {
		panic(err)
	}
	return compiler.MustCompile("listing.json")
}()

// decodeListing validates a raw document source and decodes it into a
// Listing. A validation failure comes back as a SchemaError.
func decodeListing(id string, source json.RawMessage) (*models.Listing, error) {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(source))
	if err != nil {
		return nil, &SchemaError{ID: id, Err: err}
	}
	if err := compiledListingSchema.Validate(instance); err != nil {
		return nil, &SchemaError{ID: id, Err: err}
	}

	var listing models.Listing
	if err := json.Unmarshal(source, &listing); err != nil {
		return nil, &SchemaError{ID: id, Err: err}
	}
	listing.ID = id
	return &listing, nil
}
