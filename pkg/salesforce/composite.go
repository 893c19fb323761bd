package salesforce

import (
	"context"

	"github.com/rotisserie/eris"
)

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// PartUpdate holds a Part__c ID and the fields to update.
type PartUpdate struct {
	ID     string
	Fields map[string]any
}

// BulkUpdateParts splits updates into batches of 200 (SF Collections API limit)
// and sends them via UpdateCollection. Results from batches that completed
// before a failure are returned with the error.
func BulkUpdateParts(ctx context.Context, c Client, updates []PartUpdate) ([]CollectionResult, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	var allResults []CollectionResult

	for start := 0; start < len(updates); start += maxBatchSize {
		end := min(start+maxBatchSize, len(updates))
		batch := updates[start:end]

		records := make([]CollectionRecord, len(batch))
		for i, u := range batch {
			records[i] = CollectionRecord(u)
		}

		results, err := c.UpdateCollection(ctx, PartObject, records)
		if err != nil {
			return allResults, eris.Wrapf(err, "sf: bulk update parts batch %d-%d", start, end)
		}
		allResults = append(allResults, results...)
	}

	return allResults, nil
}
