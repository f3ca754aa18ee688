package domain

import (
	"encoding/json"
	"fmt"
)

// DefaultChunkDays is the widest range the NeoWs feed accepts per request.
const DefaultChunkDays = 7

// PartitionRange splits r into consecutive closed sub-ranges of at most
// chunkDays dates each. The sub-ranges cover r with no gaps and no overlaps.
func PartitionRange(r DateRange, chunkDays int) ([]DateRange, error) {
	if chunkDays < 1 {
		return nil, fmt.Errorf("%w: chunk size must be at least 1 day, got %d", ErrConfiguration, chunkDays)
	}
	if r.Start.After(r.End) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s",
			ErrConfiguration, FormatDate(r.Start), FormatDate(r.End))
	}

	chunks := make([]DateRange, 0, (r.Days()+chunkDays-1)/chunkDays)
	for start := r.Start; !start.After(r.End); {
		end := start.AddDate(0, 0, chunkDays-1)
		if end.After(r.End) {
			end = r.End
		}
		chunks = append(chunks, DateRange{Start: start, End: end})
		start = end.AddDate(0, 0, 1)
	}
	return chunks, nil
}

// MergeChunk folds one chunk's response into dst. A date key the chunk
// returned replaces whatever an earlier chunk stored for it (last write wins).
// Dates inside the chunk range that the feed did not report are recorded as
// empty so the merged result has exactly one key per requested date.
func MergeChunk(dst RawFeedResult, chunk DateRange, got RawFeedResult) {
	for date, objs := range got {
		if objs == nil {
			objs = []json.RawMessage{}
		}
		dst[date] = objs
	}
	for _, date := range chunk.Dates() {
		if _, ok := dst[date]; !ok {
			dst[date] = []json.RawMessage{}
		}
	}
}
