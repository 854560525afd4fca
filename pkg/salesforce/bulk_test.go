package salesforce

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecords(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{"Company": fmt.Sprintf("Company %d", i)}
	}
	return records
}

func TestBulkInsert(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		results, err := BulkInsert(context.Background(), &mockClient{}, "Lead", nil)
		require.NoError(t, err)
		assert.Nil(t, results)
	})

	t.Run("single batch", func(t *testing.T) {
		var batchSizes []int
		mc := &mockClient{
			insertCollectionFn: func(_ context.Context, sObject string, records []map[string]any) ([]CollectionResult, error) {
				assert.Equal(t, "Lead", sObject)
				batchSizes = append(batchSizes, len(records))
				results := make([]CollectionResult, len(records))
				for i := range results {
					results[i] = CollectionResult{Success: true}
				}
				return results, nil
			},
		}

		results, err := BulkInsert(context.Background(), mc, "Lead", makeRecords(42))
		require.NoError(t, err)
		assert.Len(t, results, 42)
		assert.Equal(t, []int{42}, batchSizes)
	})

	t.Run("splits at 200", func(t *testing.T) {
		var batchSizes []int
		mc := &mockClient{
			insertCollectionFn: func(_ context.Context, _ string, records []map[string]any) ([]CollectionResult, error) {
				batchSizes = append(batchSizes, len(records))
				return make([]CollectionResult, len(records)), nil
			},
		}

		results, err := BulkInsert(context.Background(), mc, "Lead", makeRecords(450))
		require.NoError(t, err)
		assert.Len(t, results, 450)
		assert.Equal(t, []int{200, 200, 50}, batchSizes)
	})

	t.Run("batch error returns collected results", func(t *testing.T) {
		calls := 0
		mc := &mockClient{
			insertCollectionFn: func(_ context.Context, _ string, records []map[string]any) ([]CollectionResult, error) {
				calls++
				if calls == 2 {
					return nil, errors.New("api error")
				}
				return make([]CollectionResult, len(records)), nil
			},
		}

		results, err := BulkInsert(context.Background(), mc, "Lead", makeRecords(450))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "batch 200-400")
		assert.Len(t, results, 200)
		assert.Equal(t, 2, calls)
	})
}
