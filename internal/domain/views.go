package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Highlight thresholds for the dashboard's canned subsets.
const (
	LargeDiameterKm     = 0.5
	CloseMissDistanceKm = 10_000_000
	FastVelocityKmS     = 20
)

// Filter holds the dashboard's runtime filters. Zero dates leave that side
// of the range open.
type Filter struct {
	Start         time.Time
	End           time.Time
	RiskThreshold float64
}

// Matches reports whether t falls within the filter's date range.
func (f Filter) Matches(t time.Time) bool {
	d := truncateDate(t)
	if !f.Start.IsZero() && d.Before(truncateDate(f.Start)) {
		return false
	}
	if !f.End.IsZero() && d.After(truncateDate(f.End)) {
		return false
	}
	return true
}

// Validate rejects an inverted range or a threshold outside [0, 1].
func (f Filter) Validate() error {
	if !f.Start.IsZero() && !f.End.IsZero() && truncateDate(f.Start).After(truncateDate(f.End)) {
		return fmt.Errorf("start %s is after end %s", FormatDate(f.Start), FormatDate(f.End))
	}
	if f.RiskThreshold < 0 || f.RiskThreshold > 1 || math.IsNaN(f.RiskThreshold) {
		return fmt.Errorf("risk threshold %v outside [0, 1]", f.RiskThreshold)
	}
	return nil
}

// FilterByDate returns the records whose approach date passes the filter.
func FilterByDate(scored []ScoredRecord, f Filter) []ScoredRecord {
	out := make([]ScoredRecord, 0, len(scored))
	for _, r := range scored {
		if f.Matches(r.ApproachDate) {
			out = append(out, r)
		}
	}
	return out
}

// FilterDaily returns the aggregates whose date passes the filter.
func FilterDaily(daily []DailyAggregate, f Filter) []DailyAggregate {
	out := make([]DailyAggregate, 0, len(daily))
	for _, d := range daily {
		if f.Matches(d.Date) {
			out = append(out, d)
		}
	}
	return out
}

// AboveThreshold returns the records with RiskScore >= threshold.
func AboveThreshold(scored []ScoredRecord, threshold float64) []ScoredRecord {
	out := make([]ScoredRecord, 0)
	for _, r := range scored {
		if IsHighRisk(r.RiskScore, threshold) {
			out = append(out, r)
		}
	}
	return out
}

// Summary holds the dashboard's headline metrics.
type Summary struct {
	Total          int     `json:"total"`
	HighRisk       int     `json:"high_risk"`
	Hazardous      int     `json:"hazardous"`
	Anomalous      int     `json:"anomalous"`
	MeanDiameterKm float64 `json:"mean_diameter_km"`
	MeanRiskScore  float64 `json:"mean_risk_score"`
	MaxRiskScore   float64 `json:"max_risk_score"`
	RiskThreshold  float64 `json:"risk_threshold"`
}

// Summarize computes headline metrics. HighRisk counts records at or above
// the given threshold, which may differ from the one used at scoring time.
func Summarize(scored []ScoredRecord, threshold float64) Summary {
	s := Summary{Total: len(scored), RiskThreshold: threshold}
	if len(scored) == 0 {
		return s
	}
	var diameter, risk float64
	for _, r := range scored {
		diameter += r.DiameterMeanKm
		risk += r.RiskScore
		s.MaxRiskScore = math.Max(s.MaxRiskScore, r.RiskScore)
		if IsHighRisk(r.RiskScore, threshold) {
			s.HighRisk++
		}
		if r.IsHazardous {
			s.Hazardous++
		}
		if r.IsAnomalous {
			s.Anomalous++
		}
	}
	s.MeanDiameterKm = diameter / float64(len(scored))
	s.MeanRiskScore = risk / float64(len(scored))
	return s
}

// TopRisk returns the n highest-scoring records, highest first.
func TopRisk(scored []ScoredRecord, n int) []ScoredRecord {
	out := append([]ScoredRecord(nil), scored...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RiskScore > out[j].RiskScore })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Metric selects a z-score column for alerts.
type Metric string

const (
	MetricRisk         Metric = "risk_score"
	MetricDiameter     Metric = "diameter"
	MetricMissDistance Metric = "miss_distance"
	MetricVelocity     Metric = "velocity"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricRisk, MetricDiameter, MetricMissDistance, MetricVelocity:
		return m, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// ZScore returns the record's z-score for the metric.
func (r ScoredRecord) ZScore(m Metric) float64 {
	switch m {
	case MetricDiameter:
		return r.DiameterZScore
	case MetricMissDistance:
		return r.MissDistanceZScore
	case MetricVelocity:
		return r.VelocityZScore
	default:
		return r.RiskZScore
	}
}

// ZScoreAlerts returns the records whose |z| for the metric exceeds threshold.
func ZScoreAlerts(scored []ScoredRecord, m Metric, threshold float64) []ScoredRecord {
	out := make([]ScoredRecord, 0)
	for _, r := range scored {
		if IsAnomalous(r.ZScore(m), threshold) {
			out = append(out, r)
		}
	}
	return out
}

// Highlights groups records into the dashboard's canned subsets.
type Highlights struct {
	Hazardous []ScoredRecord `json:"hazardous"`
	Large     []ScoredRecord `json:"large"`
	Close     []ScoredRecord `json:"close"`
	Fast      []ScoredRecord `json:"fast"`
	Anomalous []ScoredRecord `json:"anomalous"`
}

// Highlight splits records into the canned subsets. A record may appear in
// several of them.
func Highlight(scored []ScoredRecord) Highlights {
	h := Highlights{
		Hazardous: []ScoredRecord{},
		Large:     []ScoredRecord{},
		Close:     []ScoredRecord{},
		Fast:      []ScoredRecord{},
		Anomalous: []ScoredRecord{},
	}
	for _, r := range scored {
		if r.IsHazardous {
			h.Hazardous = append(h.Hazardous, r)
		}
		if r.DiameterMeanKm > LargeDiameterKm {
			h.Large = append(h.Large, r)
		}
		if r.MissDistanceKm < CloseMissDistanceKm {
			h.Close = append(h.Close, r)
		}
		if r.RelativeVelocityKmS > FastVelocityKmS {
			h.Fast = append(h.Fast, r)
		}
		if r.IsAnomalous {
			h.Anomalous = append(h.Anomalous, r)
		}
	}
	return h
}
