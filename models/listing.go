package models

// Listing is a real estate ad indexed in the search store. The document id
// is SafeKey(catalog + "_" + sku): sku uniqueness is only guaranteed within
// a catalog.
type Listing struct {
	ID          string   `json:"_id,omitempty"`
	SKU         string   `json:"sku"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	City        string   `json:"city"`
	Catalog     string   `json:"catalog"`
	Price       float64  `json:"price"`
	Area        float64  `json:"area,omitempty"`
	Features    []string `json:"features,omitempty"`
	Media       []string `json:"media,omitempty"`
	URL         string   `json:"url"`

	// Calendar dates (YYYY-MM-DD, UTC). ScrapingStartDate is set at first
	// ingest and never modified; ScrapingEndDate is bumped on every ingest
	// that finds the document already present, which is how "still being
	// offered" is tracked.
	ScrapingStartDate string `json:"scraping_start_date,omitempty"`
	ScrapingEndDate   string `json:"scraping_end_date,omitempty"`

	IsNew        bool    `json:"is_new"`
	QualityIndex float64 `json:"quality_index,omitempty"`
}

// DateLayout is the calendar date format used for scraping dates.
const DateLayout = "2006-01-02"
