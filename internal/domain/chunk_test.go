package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionRange(t *testing.T) {
	t.Run("ten days in chunks of seven", func(t *testing.T) {
		chunks, err := PartitionRange(dateRange(t, "2024-04-01", "2024-04-10"), 7)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "2024-04-01..2024-04-07", chunks[0].String())
		assert.Equal(t, "2024-04-08..2024-04-10", chunks[1].String())
		assert.Equal(t, 7, chunks[0].Days())
		assert.Equal(t, 3, chunks[1].Days())
	})

	t.Run("single day", func(t *testing.T) {
		chunks, err := PartitionRange(dateRange(t, "2024-04-01", "2024-04-01"), 7)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, 1, chunks[0].Days())
	})

	t.Run("exact multiple", func(t *testing.T) {
		chunks, err := PartitionRange(dateRange(t, "2024-04-01", "2024-04-14"), 7)
		require.NoError(t, err)
		assert.Len(t, chunks, 2)
	})

	t.Run("crosses month and year boundaries", func(t *testing.T) {
		chunks, err := PartitionRange(dateRange(t, "2023-12-28", "2024-01-03"), 3)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Equal(t, "2023-12-28..2023-12-30", chunks[0].String())
		assert.Equal(t, "2023-12-31..2024-01-02", chunks[1].String())
		assert.Equal(t, "2024-01-03..2024-01-03", chunks[2].String())
	})

	t.Run("zero chunk size", func(t *testing.T) {
		_, err := PartitionRange(dateRange(t, "2024-04-01", "2024-04-10"), 0)
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := PartitionRange(DateRange{Start: date(t, "2024-04-10"), End: date(t, "2024-04-01")}, 7)
		require.ErrorIs(t, err, ErrConfiguration)
	})
}

// Every date of the range lands in exactly one chunk, for a spread of sizes.
func TestPartitionRange_CoversEachDateOnce(t *testing.T) {
	r := dateRange(t, "2024-02-20", "2024-04-05")
	for chunkDays := 1; chunkDays <= 50; chunkDays++ {
		chunks, err := PartitionRange(r, chunkDays)
		require.NoError(t, err)

		seen := map[string]int{}
		for i, c := range chunks {
			assert.LessOrEqual(t, c.Days(), chunkDays)
			if i > 0 {
				assert.Equal(t, chunks[i-1].End.AddDate(0, 0, 1), c.Start, "chunks must be contiguous")
			}
			for _, d := range c.Dates() {
				seen[d]++
			}
		}
		assert.Len(t, seen, r.Days(), "chunk size %d", chunkDays)
		for d, n := range seen {
			assert.Equal(t, 1, n, "date %s covered %d times with chunk size %d", d, n, chunkDays)
		}
	}
}

func TestMergeChunk(t *testing.T) {
	t.Run("later chunk wins on shared date", func(t *testing.T) {
		first := neoJSON(t, "1", "2024-04-07", "100", "3600", 0.1, 0.2, false)
		second := neoJSON(t, "2", "2024-04-07", "200", "7200", 0.3, 0.4, true)

		merged := RawFeedResult{}
		MergeChunk(merged, dateRange(t, "2024-04-01", "2024-04-07"),
			RawFeedResult{"2024-04-07": {first}})
		MergeChunk(merged, dateRange(t, "2024-04-07", "2024-04-10"),
			RawFeedResult{"2024-04-07": {second}})

		require.Len(t, merged["2024-04-07"], 1)
		assert.JSONEq(t, string(second), string(merged["2024-04-07"][0]))
	})

	t.Run("unreported dates become empty", func(t *testing.T) {
		merged := RawFeedResult{}
		MergeChunk(merged, dateRange(t, "2024-04-01", "2024-04-03"),
			RawFeedResult{"2024-04-02": {neoJSON(t, "1", "2024-04-02", "1", "1", 1, 1, false)}})

		assert.Equal(t, []string{"2024-04-01", "2024-04-02", "2024-04-03"}, merged.Dates())
		assert.Empty(t, merged["2024-04-01"])
		assert.NotNil(t, merged["2024-04-01"])
		assert.Len(t, merged["2024-04-02"], 1)
	})

	t.Run("padding does not erase an earlier chunk's data", func(t *testing.T) {
		rec := neoJSON(t, "1", "2024-04-07", "1", "1", 1, 1, false)
		merged := RawFeedResult{"2024-04-07": {rec}}
		MergeChunk(merged, dateRange(t, "2024-04-07", "2024-04-08"), RawFeedResult{})
		assert.Len(t, merged["2024-04-07"], 1)
	})

	t.Run("null list from feed", func(t *testing.T) {
		merged := RawFeedResult{}
		MergeChunk(merged, dateRange(t, "2024-04-01", "2024-04-01"),
			RawFeedResult{"2024-04-01": nil})
		assert.Equal(t, []json.RawMessage{}, merged["2024-04-01"])
	})
}

func TestParseFeedDocument(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		raw, err := ParseFeedDocument([]byte(`{"element_count":1,"near_earth_objects":{"2024-04-01":[{"id":"1"}]}}`))
		require.NoError(t, err)
		assert.Equal(t, 1, raw.ObjectCount())
	})

	t.Run("missing objects field", func(t *testing.T) {
		_, err := ParseFeedDocument([]byte(`{"element_count":0}`))
		require.Error(t, err)
	})

	t.Run("objects field of wrong type", func(t *testing.T) {
		_, err := ParseFeedDocument([]byte(`{"near_earth_objects":[1,2,3]}`))
		require.Error(t, err)
	})

	t.Run("not JSON", func(t *testing.T) {
		_, err := ParseFeedDocument([]byte(`<html>`))
		require.Error(t, err)
	})
}

func TestDateRange(t *testing.T) {
	r := dateRange(t, "2024-04-01", "2024-04-03")
	assert.Equal(t, []string{"2024-04-01", "2024-04-02", "2024-04-03"}, r.Dates())
	assert.True(t, r.Contains(date(t, "2024-04-03")))
	assert.False(t, r.Contains(date(t, "2024-04-04")))

	_, err := NewDateRange(date(t, "2024-04-03"), date(t, "2024-04-01"))
	require.ErrorIs(t, err, ErrConfiguration)
}
