package model

import (
	"encoding/json"
	"strings"
)

// SupplierID identifies an upstream source of raw part data.
type SupplierID string

const (
	SupplierEncompass SupplierID = "encompass"
	SupplierMarcone   SupplierID = "marcone"
	SupplierReliable  SupplierID = "reliable"
	SupplierAmazon    SupplierID = "amazon"
)

// Suppliers lists every known supplier in report order.
var Suppliers = []SupplierID{
	SupplierEncompass,
	SupplierMarcone,
	SupplierReliable,
	SupplierAmazon,
}

// ParseSupplierID matches s against the known suppliers, ignoring case and
// surrounding whitespace.
func ParseSupplierID(s string) (SupplierID, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, id := range Suppliers {
		if string(id) == s {
			return id, true
		}
	}
	return "", false
}

// PartRequest identifies a part to look up.
type PartRequest struct {
	PartNumber string `json:"part_number"`
	Brand      string `json:"brand,omitempty"`
	Make       string `json:"make,omitempty"` // supplier make code, e.g. GEH or WPL
}

// SupplierResult is the outcome of one supplier lookup. Payloads are kept
// exactly as the supplier returned them and are never merged across sources.
type SupplierResult struct {
	Source    SupplierID      `json:"source"`
	Success   bool            `json:"success"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
	Transient bool            `json:"transient,omitempty"`
	Duration  int64           `json:"duration_ms"`
}

// SupplierSet is the stage-2 view of a fan-out: one result per supplier.
type SupplierSet []SupplierResult

// Get returns the result for the given supplier, if present.
func (s SupplierSet) Get(id SupplierID) (SupplierResult, bool) {
	for _, r := range s {
		if r.Source == id {
			return r, true
		}
	}
	return SupplierResult{}, false
}

// Succeeded counts suppliers that returned data.
func (s SupplierSet) Succeeded() int {
	n := 0
	for _, r := range s {
		if r.Success {
			n++
		}
	}
	return n
}
