package models

// UserFilter carries the search preferences of a user.
type UserFilter struct {
	// City restricts results to the given cities. Empty means no
	// restriction.
	City []string `json:"city"`

	// MaxPrice is the price ceiling. Zero means "no ceiling", not "free
	// only".
	MaxPrice float64 `json:"max_price"`

	// IncludeDejaVu keeps already-seen listings in the results.
	IncludeDejaVu bool `json:"include_deja_vu"`

	// Area names a registered group of cities used as a filter shorthand.
	Area string `json:"area,omitempty"`
}

// User is a preference-store record identified by an opaque id.
//
// DejaVu and TBV map a zone to the listing ids the user has already seen,
// respectively shortlisted ("to be visited"). Ids that no longer resolve
// in the search store are orphans and are removed by the reconciliation
// job.
type User struct {
	ID        string              `json:"id"`
	Firstname string              `json:"firstname"`
	Lastname  string              `json:"lastname"`
	Filter    UserFilter          `json:"filter"`
	DejaVu    map[string][]string `json:"deja_vu"`
	TBV       map[string][]string `json:"tbv"`
}
