package domain

import (
	"sort"
	"time"
)

// ApproachRecord is one flattened (object, close-approach event) row.
type ApproachRecord struct {
	ObjectID            string    `json:"object_id"`
	Name                string    `json:"name"`
	ApproachDate        time.Time `json:"approach_date"`
	MissDistanceKm      float64   `json:"miss_distance_km"`
	RelativeVelocityKmH float64   `json:"relative_velocity_km_h"`
	RelativeVelocityKmS float64   `json:"relative_velocity_km_s"`
	DiameterMinKm       float64   `json:"diameter_min_km"`
	DiameterMaxKm       float64   `json:"diameter_max_km"`
	DiameterMeanKm      float64   `json:"diameter_mean_km"`
	IsHazardous         bool      `json:"is_hazardous"`
}

// RiskLevel is a coarse label for a risk score, used for dashboard grouping.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// RiskLevelFor maps a score onto five right-closed bands of width 0.2:
// [0, 0.2] very_low, (0.2, 0.4] low, (0.4, 0.6] medium, (0.6, 0.8] high,
// (0.8, 1] very_high.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score <= 0.2:
		return RiskVeryLow
	case score <= 0.4:
		return RiskLow
	case score <= 0.6:
		return RiskMedium
	case score <= 0.8:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// ScoredRecord is an ApproachRecord with its derived risk features.
type ScoredRecord struct {
	ApproachRecord

	RiskScore   float64   `json:"risk_score"`
	RiskZScore  float64   `json:"risk_zscore"`
	IsAnomalous bool      `json:"is_anomalous"`
	IsHighRisk  bool      `json:"is_high_risk"`
	RiskLevel   RiskLevel `json:"risk_level"`

	// Per-dimension z-scores for dashboard alerts. They do not feed IsAnomalous.
	DiameterZScore     float64 `json:"diameter_zscore"`
	MissDistanceZScore float64 `json:"miss_distance_zscore"`
	VelocityZScore     float64 `json:"velocity_zscore"`
}

// DailyAggregate is the per-date rollup of scored approaches.
type DailyAggregate struct {
	Date              time.Time `json:"date"`
	Count             int       `json:"count"`
	MeanRiskScore     float64   `json:"mean_risk_score"`
	MeanVelocityKmS   float64   `json:"mean_velocity_km_s"`
	MeanDiameterKm    float64   `json:"mean_diameter_km"`
	MaxMissDistanceKm float64   `json:"max_miss_distance_km"`
	MinMissDistanceKm float64   `json:"min_miss_distance_km"`
	HazardousCount    int       `json:"hazardous_count"`
	AnomalousCount    int       `json:"anomalous_count"`
	HighRiskCount     int       `json:"high_risk_count"`

	// Trailing 7-day averages (shorter windows at the start of the series).
	Count7dAvg         float64 `json:"count_7d_avg"`
	MeanRiskScore7dAvg float64 `json:"mean_risk_score_7d_avg"`
}

// DropReason names why a row was dropped during normalization.
type DropReason string

const (
	DropMissingMissDistance DropReason = "missing_miss_distance"
	DropMissingVelocity     DropReason = "missing_velocity"
	DropMissingDiameter     DropReason = "missing_diameter"
	DropBadDate             DropReason = "bad_date"
	DropMalformedRecord     DropReason = "malformed_record"
)

// QualityReport accumulates non-fatal data-quality warnings for one run.
type QualityReport struct {
	InputEvents          int                `json:"input_events"`
	EmittedRows          int                `json:"emitted_rows"`
	DroppedRows          int                `json:"dropped_rows"`
	DroppedByReason      map[DropReason]int `json:"dropped_by_reason,omitempty"`
	DegenerateDimensions []string           `json:"degenerate_dimensions,omitempty"`
}

func (q *QualityReport) drop(reason DropReason) {
	if q.DroppedByReason == nil {
		q.DroppedByReason = make(map[DropReason]int)
	}
	q.DroppedByReason[reason]++
	q.DroppedRows++
}

// HasWarnings reports whether anything was dropped or degenerate.
func (q QualityReport) HasWarnings() bool {
	return q.DroppedRows > 0 || len(q.DegenerateDimensions) > 0
}

// SortApproaches orders records by approach date, then object id. The sort
// is stable so same-day repeat approaches keep their feed order.
func SortApproaches(records []ApproachRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.ApproachDate.Equal(b.ApproachDate) {
			return a.ApproachDate.Before(b.ApproachDate)
		}
		return a.ObjectID < b.ObjectID
	})
}
