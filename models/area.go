package models

// Area is a named group of cities used as a filter shorthand, unique per
// zone.
type Area struct {
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}
