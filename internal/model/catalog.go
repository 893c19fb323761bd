package model

import (
	"fmt"
	"time"
)

// ValidationStatusValid is stamped on every catalog built from a passing
// consensus.
const ValidationStatusValid = "VALID - Both AIs Agree"

// Catalog is a validated part record built from agreed attributes.
type Catalog struct {
	CatalogID         string                      `json:"catalog_id"`
	MPN               string                      `json:"mpn"`
	Brand             string                      `json:"brand,omitempty"`
	RunID             string                      `json:"run_id,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	ValidationStatus  string                      `json:"validation_status"`
	PrimaryAttributes map[string]CatalogAttribute `json:"primary_attributes"`
	Metadata          CatalogMetadata             `json:"metadata"`
}

// CatalogMetadata records which models produced the agreeing extractions.
type CatalogMetadata struct {
	PrimaryModel        string `json:"primary_model"`
	SecondaryModel      string `json:"secondary_model"`
	ValidationAgreement string `json:"validation_agreement"`
}

// CatalogID formats the catalog identifier for a part at time t.
func CatalogID(mpn string, t time.Time) string {
	return fmt.Sprintf("catalog_%s_%s", mpn, t.UTC().Format("20060102150405"))
}

// ReviewItem is a part queued for manual review after a failed validation.
type ReviewItem struct {
	ID            string    `json:"id"`
	RunID         string    `json:"run_id"`
	MPN           string    `json:"mpn"`
	Reason        string    `json:"reason"`
	Disagreements []string  `json:"disagreements,omitempty"`
	Resolved      bool      `json:"resolved"`
	NotionPageID  string    `json:"notion_page_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
