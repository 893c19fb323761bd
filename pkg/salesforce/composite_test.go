package salesforce

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpdateParts(t *testing.T) {
	t.Run("empty updates returns nil", func(t *testing.T) {
		mock := &mockClient{}
		results, err := BulkUpdateParts(context.Background(), mock, nil)
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("single batch under 200", func(t *testing.T) {
		var callCount int
		mock := &mockClient{
			updateCollectionFn: func(_ context.Context, sObject string, records []CollectionRecord) ([]CollectionResult, error) {
				callCount++
				assert.Equal(t, "Part__c", sObject)
				results := make([]CollectionResult, len(records))
				for i, r := range records {
					results[i] = CollectionResult{ID: r.ID, Success: true}
				}
				return results, nil
			},
		}

		updates := make([]PartUpdate, 50)
		for i := range updates {
			updates[i] = PartUpdate{
				ID:     "a0Bxx" + string(rune('A'+i)),
				Fields: map[string]any{"Name": "test"},
			}
		}

		results, err := BulkUpdateParts(context.Background(), mock, updates)
		require.NoError(t, err)
		assert.Len(t, results, 50)
		assert.Equal(t, 1, callCount)
	})

	t.Run("exact 200 is single batch", func(t *testing.T) {
		var callCount int
		mock := &mockClient{
			updateCollectionFn: func(_ context.Context, _ string, records []CollectionRecord) ([]CollectionResult, error) {
				callCount++
				assert.Len(t, records, 200)
				results := make([]CollectionResult, len(records))
				for i, r := range records {
					results[i] = CollectionResult{ID: r.ID, Success: true}
				}
				return results, nil
			},
		}

		updates := makeUpdates(200)
		results, err := BulkUpdateParts(context.Background(), mock, updates)
		require.NoError(t, err)
		assert.Len(t, results, 200)
		assert.Equal(t, 1, callCount)
	})

	t.Run("splits into batches of 200", func(t *testing.T) {
		var batchSizes []int
		mock := &mockClient{
			updateCollectionFn: func(_ context.Context, _ string, records []CollectionRecord) ([]CollectionResult, error) {
				batchSizes = append(batchSizes, len(records))
				results := make([]CollectionResult, len(records))
				for i, r := range records {
					results[i] = CollectionResult{ID: r.ID, Success: true}
				}
				return results, nil
			},
		}

		updates := makeUpdates(450)
		results, err := BulkUpdateParts(context.Background(), mock, updates)
		require.NoError(t, err)
		assert.Len(t, results, 450)
		require.Len(t, batchSizes, 3)
		assert.Equal(t, 200, batchSizes[0])
		assert.Equal(t, 200, batchSizes[1])
		assert.Equal(t, 50, batchSizes[2])
	})

	t.Run("201 splits into two batches", func(t *testing.T) {
		var batchSizes []int
		mock := &mockClient{
			updateCollectionFn: func(_ context.Context, _ string, records []CollectionRecord) ([]CollectionResult, error) {
				batchSizes = append(batchSizes, len(records))
				results := make([]CollectionResult, len(records))
				for i, r := range records {
					results[i] = CollectionResult{ID: r.ID, Success: true}
				}
				return results, nil
			},
		}

		updates := makeUpdates(201)
		results, err := BulkUpdateParts(context.Background(), mock, updates)
		require.NoError(t, err)
		assert.Len(t, results, 201)
		require.Len(t, batchSizes, 2)
		assert.Equal(t, 200, batchSizes[0])
		assert.Equal(t, 1, batchSizes[1])
	})

	t.Run("error in second batch returns partial results", func(t *testing.T) {
		callCount := 0
		mock := &mockClient{
			updateCollectionFn: func(_ context.Context, _ string, records []CollectionRecord) ([]CollectionResult, error) {
				callCount++
				if callCount == 2 {
					return nil, errors.New("rate limit exceeded")
				}
				results := make([]CollectionResult, len(records))
				for i, r := range records {
					results[i] = CollectionResult{ID: r.ID, Success: true}
				}
				return results, nil
			},
		}

		updates := makeUpdates(250)
		results, err := BulkUpdateParts(context.Background(), mock, updates)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "bulk update parts")
		assert.Len(t, results, 200)
	})
}

func TestMaxBatchSizeConstant(t *testing.T) {
	assert.Equal(t, 200, maxBatchSize)
}

func makeUpdates(n int) []PartUpdate {
	updates := make([]PartUpdate, n)
	for i := range updates {
		updates[i] = PartUpdate{
			ID:     fmt.Sprintf("a0B%06d", i),
			Fields: map[string]any{"Price__c": 12.5},
		}
	}
	return updates
}
