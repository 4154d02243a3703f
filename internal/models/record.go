package models

import (
	"time"
)

// NotAvailable is written into every attempted field the extractor could not resolve.
const NotAvailable = "N/A"

// Record is one scraped listing. A full record carries every field its site
// attempts plus a timestamp; a degraded record only carries source, listing URL
// and error.
type Record struct {
	Source       string     `json:"source"`
	ProductTitle string     `json:"product_title,omitempty"`
	Brand        string     `json:"brand,omitempty"`
	Model        string     `json:"model,omitempty"`
	RAM          string     `json:"ram,omitempty"`
	Storage      string     `json:"storage,omitempty"`
	Condition    string     `json:"condition,omitempty"`
	Warranty     string     `json:"warranty,omitempty"`
	Price        string     `json:"price,omitempty"`
	Location     string     `json:"location,omitempty"`
	ListingURL   string     `json:"listing_url"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	Error        string     `json:"error,omitempty"`
}

func NewRecord(source, url string, at time.Time) Record {
	ts := at.UTC()
	return Record{
		Source:     source,
		ListingURL: url,
		Timestamp:  &ts,
	}
}

// Degraded builds the error-shaped record used when a listing could not be scraped.
func Degraded(source, url string, err error) Record {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Record{
		Source:     source,
		ListingURL: url,
		Error:      msg,
	}
}

func (r Record) IsDegraded() bool {
	return r.Error != ""
}

// CountDegraded returns how many records in rs carry an error.
func CountDegraded(rs []Record) int {
	n := 0
	for _, r := range rs {
		if r.IsDegraded() {
			n++
		}
	}
	return n
}
