// Package artifact encodes and decodes the persisted pipeline artifacts.
//
// The raw artifact is the merged feed document as JSON. The clean, scored
// and daily artifacts are CSV with a header row; decoding looks columns up
// by name, so extra or reordered columns are accepted but a missing one
// makes the artifact invalid.
package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

// Artifact names within a store.
const (
	RawName    = "asteroids_raw.json"
	CleanName  = "asteroids_clean.csv"
	ScoredName = "asteroids_analyzed.csv"
	DailyName  = "time_series_data.csv"
)

// Names lists every artifact in pipeline order.
var Names = []string{RawName, CleanName, ScoredName, DailyName}

// EncodeRaw renders the merged feed result as a feed document.
func EncodeRaw(raw domain.RawFeedResult) ([]byte, error) {
	data, err := json.Marshal(domain.FeedDocument{
		ElementCount:     raw.ObjectCount(),
		NearEarthObjects: raw,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", RawName, err)
	}
	return data, nil
}

// DecodeRaw parses a feed document written by EncodeRaw.
func DecodeRaw(data []byte) (domain.RawFeedResult, error) {
	raw, err := domain.ParseFeedDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrArtifactInvalid, RawName, err)
	}
	return raw, nil
}

// EncodeClean renders normalized records as CSV.
func EncodeClean(records []domain.ApproachRecord) ([]byte, error) {
	return encode(CleanName, approachColumns, records)
}

// DecodeClean parses a clean CSV artifact.
func DecodeClean(data []byte) ([]domain.ApproachRecord, error) {
	return decode(CleanName, approachColumns, data)
}

// EncodeScored renders scored records as CSV: the clean columns followed by
// the score columns.
func EncodeScored(records []domain.ScoredRecord) ([]byte, error) {
	return encode(ScoredName, scoredColumns, records)
}

// DecodeScored parses a scored CSV artifact.
func DecodeScored(data []byte) ([]domain.ScoredRecord, error) {
	return decode(ScoredName, scoredColumns, data)
}

// EncodeDaily renders the daily time series as CSV.
func EncodeDaily(rows []domain.DailyAggregate) ([]byte, error) {
	return encode(DailyName, dailyColumns, rows)
}

// DecodeDaily parses a daily CSV artifact.
func DecodeDaily(data []byte) ([]domain.DailyAggregate, error) {
	return decode(DailyName, dailyColumns, data)
}
