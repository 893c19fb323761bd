package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// PartObject is the custom object holding the parts catalog.
const PartObject = "Part__c"

// Part represents a Part__c record.
type Part struct {
	ID           string  `json:"Id" salesforce:"Id"`
	Name         string  `json:"Name" salesforce:"Name"`
	PartNumber   string  `json:"Part_Number__c" salesforce:"Part_Number__c"`
	Description  string  `json:"Description__c" salesforce:"Description__c"`
	Price        float64 `json:"Price__c" salesforce:"Price__c"`
	ModelNumbers string  `json:"Model_Numbers__c" salesforce:"Model_Numbers__c"`
	Category     string  `json:"Category__c" salesforce:"Category__c"`
}

// partFields are the SOQL fields selected for Part__c queries.
var partFields = []string{
	"Id", "Name", "Part_Number__c", "Description__c", "Price__c",
	"Model_Numbers__c", "Category__c",
}

// Enhancement is the generated copy written back to a part.
type Enhancement struct {
	Description   string
	Features      []string
	Compatibility string
}

// Fields maps the enhancement onto Part__c field names. Features are stored
// one per line.
func (e Enhancement) Fields() map[string]any {
	return map[string]any{
		"Enhanced_Description__c": e.Description,
		"Key_Features__c":         strings.Join(e.Features, "\n"),
		"Compatibility_Info__c":   e.Compatibility,
	}
}

// FindPartByNumber returns the Part__c with the given part number, or nil
// if there is none.
func FindPartByNumber(ctx context.Context, c Client, partNumber string) (*Part, error) {
	if strings.TrimSpace(partNumber) == "" {
		return nil, eris.New("sf: part number is required")
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE Part_Number__c = '%s' LIMIT 1",
		strings.Join(partFields, ", "),
		PartObject,
		escapeSoql(partNumber),
	)

	var parts []Part
	if err := c.Query(ctx, soql, &parts); err != nil {
		return nil, eris.Wrapf(err, "sf: find part %s", partNumber)
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return &parts[0], nil
}

// FindPartsByCategory returns up to limit parts in a category. A limit of
// zero or less means 100.
func FindPartsByCategory(ctx context.Context, c Client, category string, limit int) ([]Part, error) {
	if limit <= 0 {
		limit = 100
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE Category__c = '%s' LIMIT %d",
		strings.Join(partFields, ", "),
		PartObject,
		escapeSoql(category),
		limit,
	)

	var parts []Part
	if err := c.Query(ctx, soql, &parts); err != nil {
		return nil, eris.Wrapf(err, "sf: find parts in category %s", category)
	}
	return parts, nil
}

// UpdatePartEnhancement writes generated copy to a part.
func UpdatePartEnhancement(ctx context.Context, c Client, partID string, e Enhancement) error {
	if partID == "" {
		return eris.New("sf: part id is required")
	}
	if err := c.UpdateOne(ctx, PartObject, partID, e.Fields()); err != nil {
		return eris.Wrapf(err, "sf: update part enhancement %s", partID)
	}
	return nil
}

// escapeSoql escapes backslashes and single quotes in SOQL string literals.
func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
