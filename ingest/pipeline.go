package ingest

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"immodex/config"
	"immodex/models"
	"immodex/search"
	"immodex/textutil"
)

// DocStore is the slice of the search session the pipeline needs.
type DocStore interface {
	Get(ctx context.Context, id string) (map[string]any, error)
	Save(ctx context.Context, id string, doc map[string]any) error
}

// Result aggregates a batch. Created+Updated+Errors always equals the
// number of records processed; per-record errors are counted, never
// raised. Failed and Messages feed the error report job and stay out of
// the serialized result.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`

	Failed   []map[string]any `json:"-"`
	Messages []string         `json:"-"`
}

func (r *Result) fail(record map[string]any, message string) {
	r.Errors++
	if record != nil {
		r.Failed = append(r.Failed, record)
	}
	r.Messages = append(r.Messages, message)
}

// Pipeline classifies raw listing records as new vs. updated and upserts
// them into a zone's index. It is stateless between batches.
type Pipeline struct {
	stores    func(zone string) DocStore
	quality   config.QualityConfig
	extractor *Extractor
	now       func() time.Time
}

func NewPipeline(stores func(zone string) DocStore, quality config.QualityConfig) *Pipeline {
	return &Pipeline{
		stores:    stores,
		quality:   quality,
		extractor: NewExtractor(),
		now:       time.Now,
	}
}

// Run ingests a batch for one catalog and zone. A blank zone fails the
// whole batch: every record counts as an error and nothing is written.
// Individual record failures are counted and the batch continues.
//
// Dates are stamped in UTC so two daemons in different timezones agree on
// what "today" means.
func (p *Pipeline) Run(ctx context.Context, records []map[string]any, catalog, zone string) Result {
	var result Result

	if strings.TrimSpace(zone) == "" || strings.TrimSpace(catalog) == "" {
		result.Errors = len(records)
		log.Printf("Rejected batch of %d records: missing catalog or zone", len(records))
		return result
	}

	store := p.stores(zone)
	today := p.now().UTC().Format(models.DateLayout)

	for _, record := range records {
		if record == nil {
			result.fail(nil, "record is not an object")
			continue
		}

		sku := recordString(record, "sku")
		if sku == "" {
			result.fail(record, "missing sku")
			continue
		}

		// the id format is a cross-cutting contract: reconciliation and
		// the API reconstruct the same id independently
		id := textutil.SafeKey(catalog + "_" + sku)

		record["sku"] = sku
		record["catalog"] = catalog
		record["features"] = p.extractor.Extract(recordString(record, "description"))

		existing, err := store.Get(ctx, id)
		switch {
		case errors.Is(err, search.ErrNotFound):
			record["is_new"] = true
			record["scraping_start_date"] = today
			record["scraping_end_date"] = today
		case err != nil:
			log.Printf("Lookup of %s failed: %v", id, err)
			result.fail(record, err.Error())
			continue
		default:
			record["is_new"] = false
			record["scraping_end_date"] = today
			// the start date is set once at first ingest, never after
			if start := recordString(existing, "scraping_start_date"); start != "" {
				record["scraping_start_date"] = start
			} else {
				record["scraping_start_date"] = today
			}
		}

		record["quality_index"] = QualityIndex(p.quality, record)

		if err := store.Save(ctx, id, record); err != nil {
			log.Printf("Upsert of %s failed: %v", id, err)
			result.fail(record, err.Error())
			continue
		}

		if record["is_new"] == true {
			result.Created++
		} else {
			result.Updated++
		}
	}

	log.Printf("Ingested batch for %s/%s: %d created, %d updated, %d errors",
		zone, catalog, result.Created, result.Updated, result.Errors)
	return result
}
