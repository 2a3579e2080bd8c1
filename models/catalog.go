package models

// Catalog is a named source feeding listings into a zone. ShortName is the
// stable identifier used as the catalog component of listing ids; no
// cascading delete exists, so unregistering a catalog does not delete its
// listings.
type Catalog struct {
	ShortName string `json:"short_name"`
	LongName  string `json:"long_name"`
	Zone      string `json:"zone"`
}

// ID returns the stable identifier of the catalog.
func (c Catalog) ID() string { return c.ShortName }
