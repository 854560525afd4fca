package model

import "time"

// Query describes one directory search: where to look and what for.
type Query struct {
	City     string `json:"city"`
	State    string `json:"state"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

// Location renders the query location the way directory sites expect it.
func (q Query) Location() string {
	if q.State == "" {
		return q.City
	}
	return q.City + ", " + q.State
}

// RawListing carries provider-specific fields exactly as scraped. It is
// transient: the extractor consumes it and it is never persisted.
type RawListing struct {
	Name         string    `json:"name"`
	AddressText  string    `json:"address_text,omitempty"` // unsplit "street, city, ST zip" line
	Street       string    `json:"street,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	Zip          string    `json:"zip,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Website      string    `json:"website,omitempty"`
	Email        string    `json:"email,omitempty"`
	Category     string    `json:"category,omitempty"`
	Description  string    `json:"description,omitempty"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactTitle string    `json:"contact_title,omitempty"`
	DetailURL    string    `json:"detail_url,omitempty"`
	YearBuilt    *int      `json:"year_built,omitempty"` // structured, when the source reports it
	Sqft         *int      `json:"sqft,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Source       string    `json:"source"`
	ScrapedAt    time.Time `json:"scraped_at"`
}
